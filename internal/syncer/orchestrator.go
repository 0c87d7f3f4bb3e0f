// Package syncer runs export cycles and owns the client's settings.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cooksync/cooksync/internal/domain"
	"github.com/cooksync/cooksync/internal/materializer"
	"github.com/cooksync/cooksync/internal/notify"
	"github.com/cooksync/cooksync/internal/settings"
	"github.com/cooksync/cooksync/internal/vault"
)

// DefaultStaleAfter is how old the last sync may be before startup
// triggers a new one.
const DefaultStaleAfter = 2 * time.Hour

// Progress label texts.
const (
	LabelIdle    = "Run sync"
	LabelSyncing = "Syncing..."
)

// User-visible notices.
const (
	MsgInProgress = "Cooksync sync already in progress"
	MsgUpToDate   = "Cooksync data is already up to date"
	MsgCompleted  = "Cooksync: sync completed"
	MsgLockFailed = "Cooksync: could not save sync state"
	MsgCancelled  = "Cooksync: sync interrupted"
)

// Label is a caller-supplied progress indicator.
type Label interface {
	SetLabel(text string)
}

// Exporter requests the records not yet imported.
type Exporter interface {
	RequestExport(ctx context.Context, token string, importedIDs []int64) domain.ExportResult
}

// Config holds orchestrator settings.
type Config struct {
	StaleAfter time.Duration
}

// Orchestrator gates export cycles behind the persisted IsSyncing flag
// and persists every settings mutation.
type Orchestrator struct {
	cfg      Config
	store    settings.Store
	exporter Exporter
	writer   *materializer.Materializer
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	settings domain.Settings

	wg sync.WaitGroup
}

// New creates an Orchestrator owning initial. Records are written
// through fs.
func New(cfg Config, store settings.Store, initial domain.Settings, exporter Exporter, fs vault.FileSystem, notifier notify.Notifier, logger *slog.Logger) *Orchestrator {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		exporter: exporter,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		settings: initial.Clone(),
	}
	o.writer = materializer.New(fs, o, notifier, logger)
	return o
}

// Load reads the persisted settings from store and creates an
// Orchestrator around them.
func Load(ctx context.Context, cfg Config, store settings.Store, exporter Exporter, fs vault.FileSystem, notifier notify.Notifier, logger *slog.Logger) (*Orchestrator, error) {
	s, err := settings.LoadMerged(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return New(cfg, store, s, exporter, fs, notifier, logger), nil
}

// Settings returns a copy of the current settings.
func (o *Orchestrator) Settings() domain.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings.Clone()
}

// update applies fn to the settings and persists the result.
func (o *Orchestrator) update(ctx context.Context, fn func(*domain.Settings)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.settings)
	return o.persistLocked(ctx)
}

func (o *Orchestrator) persistLocked(ctx context.Context) error {
	if err := o.store.Save(ctx, o.settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// StoreToken saves a token obtained from the authorization flow.
func (o *Orchestrator) StoreToken(ctx context.Context, token string) error {
	return o.update(ctx, func(s *domain.Settings) { s.Token = token })
}

// SetTargetDirectory changes where records are written. A blank dir
// resets it to the default folder.
func (o *Orchestrator) SetTargetDirectory(ctx context.Context, dir string) error {
	dir = vault.NormalizeTargetDirectory(dir)
	return o.update(ctx, func(s *domain.Settings) { s.TargetDirectory = dir })
}

// SetAutoSync toggles the startup sync.
func (o *Orchestrator) SetAutoSync(ctx context.Context, enabled bool) error {
	return o.update(ctx, func(s *domain.Settings) { s.AutoSyncOnStartup = enabled })
}

// ClearSyncLock resets IsSyncing after a cycle was interrupted by a
// crash. It reports whether the flag was set.
func (o *Orchestrator) ClearSyncLock(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.settings.IsSyncing {
		return false, nil
	}
	o.settings.IsSyncing = false
	o.logger.Warn("cleared stale sync lock")
	return true, o.persistLocked(ctx)
}

// RecordImported appends id to the imported list and stamps the last
// sync time, persisting immediately.
func (o *Orchestrator) RecordImported(ctx context.Context, id int64, at time.Time) error {
	return o.update(ctx, func(s *domain.Settings) {
		s.ImportedRecordIDs = append(s.ImportedRecordIDs, id)
		s.LastSyncTimestamp = &at
	})
}

// begin performs the check-then-set of IsSyncing. It returns
// domain.ErrSyncInProgress when the flag is already set, and leaves the
// flag clear when it cannot be persisted.
func (o *Orchestrator) begin(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.settings.IsSyncing {
		o.logger.Info("sync already in progress")
		o.notifier.Info(MsgInProgress)
		return domain.ErrSyncInProgress
	}
	o.settings.IsSyncing = true
	if err := o.persistLocked(ctx); err != nil {
		o.settings.IsSyncing = false
		o.logger.Error("persist sync start", "error", err)
		o.notifier.Error(MsgLockFailed)
		return err
	}
	return nil
}

// StartSync starts a cycle in the background. It returns false without
// side effects when a cycle is already running.
func (o *Orchestrator) StartSync(ctx context.Context) bool {
	if err := o.begin(ctx); err != nil {
		return false
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(ctx)
	}()
	return true
}

// Wait blocks until background cycles have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// SyncNow runs a cycle in the calling goroutine, updating label across
// the transition. label may be nil.
func (o *Orchestrator) SyncNow(ctx context.Context, label Label) domain.SyncOutcome {
	if err := o.begin(ctx); err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return domain.SyncOutcome{Status: domain.SyncSkipped, Message: MsgInProgress}
		}
		return domain.SyncOutcome{Status: domain.SyncFailed, Message: MsgLockFailed}
	}
	if label != nil {
		label.SetLabel(LabelSyncing)
		defer label.SetLabel(LabelIdle)
	}
	return o.run(ctx)
}

// Startup triggers a background cycle when auto sync is on and the last
// sync is missing or stale.
func (o *Orchestrator) Startup(ctx context.Context) bool {
	s := o.Settings()
	if !s.AutoSyncOnStartup {
		return false
	}
	if s.LastSyncTimestamp != nil && o.now().Sub(*s.LastSyncTimestamp) <= o.cfg.StaleAfter {
		o.logger.Debug("last sync is recent, skipping startup sync", "last_sync", *s.LastSyncTimestamp)
		return false
	}
	return o.StartSync(ctx)
}

func (o *Orchestrator) run(ctx context.Context) domain.SyncOutcome {
	s := o.Settings()
	o.logger.Info("sync started", "imported", len(s.ImportedRecordIDs), "target", s.TargetDirectory)

	res := o.exporter.RequestExport(ctx, s.Token, s.ImportedRecordIDs)
	switch res.Status {
	case domain.ExportUpToDate:
		o.finish(ctx, false)
		o.notifier.Info(MsgUpToDate)
		return domain.SyncOutcome{Status: domain.SyncUpToDate, Message: MsgUpToDate}

	case domain.ExportDelivered:
		report := o.writer.Materialize(ctx, s.TargetDirectory, res.Records)
		if report.Skipped > 0 {
			o.finish(ctx, true)
			o.logger.Warn("sync interrupted", "written", len(report.Written), "failed", len(report.Failed), "skipped", report.Skipped)
			o.notifier.Error(MsgCancelled)
			return domain.SyncOutcome{
				Status:  domain.SyncFailed,
				Written: len(report.Written),
				Failed:  len(report.Failed),
				Message: MsgCancelled,
			}
		}
		o.finish(ctx, false)
		o.logger.Info("sync completed", "written", len(report.Written), "failed", len(report.Failed))
		o.notifier.Info(MsgCompleted)
		return domain.SyncOutcome{
			Status:  domain.SyncCompleted,
			Written: len(report.Written),
			Failed:  len(report.Failed),
			Message: MsgCompleted,
		}

	default:
		o.finish(ctx, true)
		o.logger.Error("sync failed", "message", res.Message, "error", res.Err)
		o.notifier.Error(res.Message)
		return domain.SyncOutcome{Status: domain.SyncFailed, Message: res.Message}
	}
}

// finish releases the lock even when ctx has ended.
func (o *Orchestrator) finish(ctx context.Context, failed bool) {
	err := o.update(context.WithoutCancel(ctx), func(s *domain.Settings) {
		s.IsSyncing = false
		s.LastSyncFailed = failed
	})
	if err != nil {
		o.logger.Error("persist sync result", "error", err)
	}
}
