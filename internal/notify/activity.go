package notify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Notice levels recorded in the activity log.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// ActivityEntry is one line of the activity log.
type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// ActivityLog keeps the most recent notices in a JSON lines file so the
// CLI can show what happened in earlier runs.
type ActivityLog struct {
	path   string
	max    int
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewActivityLog creates an activity log at path keeping at most
// maxEntries lines. An empty path disables it.
func NewActivityLog(path string, maxEntries int, logger *slog.Logger) *ActivityLog {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityLog{
		path:   path,
		max:    maxEntries,
		logger: logger,
		now:    time.Now,
	}
}

// Info implements Notifier.
func (a *ActivityLog) Info(msg string) {
	a.record(LevelInfo, msg)
}

// Error implements Notifier.
func (a *ActivityLog) Error(msg string) {
	a.record(LevelError, msg)
}

func (a *ActivityLog) record(level, msg string) {
	if err := a.Append(ActivityEntry{Level: level, Message: msg}); err != nil {
		a.logger.Warn("append activity log", "path", a.path, "error", err)
	}
}

// Append adds an entry, stamping it with the current time.
func (a *ActivityLog) Append(entry ActivityEntry) error {
	if a.path == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("create activity log dir: %w", err)
	}

	entries, err := a.readEntriesLocked()
	if err != nil {
		return err
	}

	entry.Timestamp = a.now()
	entries = append(entries, entry)
	if len(entries) > a.max {
		entries = entries[len(entries)-a.max:]
	}
	return a.writeEntriesLocked(entries)
}

// Recent returns up to limit entries, newest first. A limit of zero
// returns everything.
func (a *ActivityLog) Recent(limit int) ([]ActivityEntry, error) {
	if a.path == "" {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := a.readEntriesLocked()
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (a *ActivityLog) readEntriesLocked() ([]ActivityEntry, error) {
	f, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []ActivityEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e ActivityEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func (a *ActivityLog) writeEntriesLocked(entries []ActivityEntry) error {
	tmp := a.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, a.path)
}
