// Package materializer writes exported records into the vault as
// Markdown files without ever overwriting an existing file.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cooksync/cooksync/internal/domain"
	"github.com/cooksync/cooksync/internal/notify"
	"github.com/cooksync/cooksync/internal/vault"
)

const fileExt = ".md"

// Recorder persists that a record was imported.
type Recorder interface {
	RecordImported(ctx context.Context, id int64, at time.Time) error
}

// Report summarizes one Materialize call.
type Report struct {
	Written []string
	Failed  []domain.RecordError
	// Skipped counts records left unwritten because ctx ended.
	Skipped int
}

// Materializer writes records through a vault.FileSystem.
type Materializer struct {
	fs       vault.FileSystem
	recorder Recorder
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Materializer.
func New(fs vault.FileSystem, recorder Recorder, notifier notify.Notifier, logger *slog.Logger) *Materializer {
	return &Materializer{
		fs:       fs,
		recorder: recorder,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SanitizeTitle strips path separators from a record title.
func SanitizeTitle(title string) string {
	return strings.NewReplacer("/", "", "\\", "").Replace(title)
}

// Materialize writes each record under targetDir in order. A failing
// record is reported and skipped; its ID is not recorded so the server
// sends it again next cycle. Once ctx ends no further record is started,
// but a record already on disk is still recorded.
func (m *Materializer) Materialize(ctx context.Context, targetDir string, records []domain.ExportRecord) Report {
	var report Report
	persistCtx := context.WithoutCancel(ctx)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			report.Skipped = len(records) - i
			m.logger.Warn("materialize interrupted", "remaining", report.Skipped, "error", err)
			break
		}

		path, err := m.write(targetDir, rec)
		if err == nil {
			err = m.recorder.RecordImported(persistCtx, rec.ID, m.now())
			if err != nil {
				err = domain.NewRecordError(rec.ID, path, "record", err)
			}
		}
		if err != nil {
			var recErr *domain.RecordError
			if !errors.As(err, &recErr) {
				recErr = domain.NewRecordError(rec.ID, path, "write", err)
			}
			m.logger.Error("materialize record", "id", rec.ID, "path", recErr.Path, "op", recErr.Op, "error", recErr.Err)
			m.notifier.Error(fmt.Sprintf("Error writing file %s: %v", recErr.Path, recErr.Err))
			report.Failed = append(report.Failed, *recErr)
			continue
		}

		m.logger.Debug("wrote record", "id", rec.ID, "path", path)
		report.Written = append(report.Written, path)
	}
	return report
}

// write returns the path it wrote to.
func (m *Materializer) write(targetDir string, rec domain.ExportRecord) (string, error) {
	path := vault.NormalizePath(targetDir + "/" + SanitizeTitle(rec.Title) + fileExt)

	if parent := vault.Parent(path); parent != "" {
		exists, err := m.fs.Exists(parent)
		if err != nil {
			return path, domain.NewRecordError(rec.ID, path, "stat", err)
		}
		if !exists {
			if err := m.fs.Mkdir(parent); err != nil {
				return path, domain.NewRecordError(rec.ID, parent, "mkdir", err)
			}
		}
	}

	path, err := m.freePath(path)
	if err != nil {
		return path, domain.NewRecordError(rec.ID, path, "stat", err)
	}
	if err := m.fs.Write(path, rec.Content); err != nil {
		return path, domain.NewRecordError(rec.ID, path, "write", err)
	}
	return path, nil
}

// freePath returns path, or "name (N).md" for the smallest N >= 1 that
// is not taken.
func (m *Materializer) freePath(path string) (string, error) {
	exists, err := m.fs.Exists(path)
	if err != nil || !exists {
		return path, err
	}

	base := strings.TrimSuffix(path, fileExt)
	for n := 1; ; n++ {
		candidate := base + " (" + strconv.Itoa(n) + ")" + fileExt
		exists, err := m.fs.Exists(candidate)
		if err != nil {
			return candidate, err
		}
		if !exists {
			return candidate, nil
		}
	}
}
