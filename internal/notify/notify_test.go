package notify

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestActivityLog_AppendAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity.jsonl")
	log := NewActivityLog(path, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	log.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	log.Info("one")
	log.Error("two")
	log.Info("three")
	log.Info("four")

	entries, err := log.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after trim, got %d", len(entries))
	}
	if entries[0].Message != "four" || entries[2].Message != "two" {
		t.Errorf("unexpected order: %+v", entries)
	}
	if entries[2].Level != LevelError {
		t.Errorf("level = %q, want error", entries[2].Level)
	}
	if !entries[0].Timestamp.After(entries[1].Timestamp) {
		t.Errorf("timestamps not increasing: %v", entries)
	}

	limited, _ := log.Recent(1)
	if len(limited) != 1 || limited[0].Message != "four" {
		t.Errorf("Recent(1) = %+v", limited)
	}
}

func TestActivityLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.jsonl")
	content := `{"level":"info","message":"ok"}` + "\nnot json\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := NewActivityLog(path, 10, nil).Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "ok" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestActivityLog_EmptyPathDisabled(t *testing.T) {
	log := NewActivityLog("", 10, nil)
	log.Info("ignored")
	entries, err := log.Recent(0)
	if err != nil || entries != nil {
		t.Errorf("entries=%v err=%v", entries, err)
	}
}

type recorder struct {
	infos, errors []string
}

func (r *recorder) Info(msg string)  { r.infos = append(r.infos, msg) }
func (r *recorder) Error(msg string) { r.errors = append(r.errors, msg) }

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}
	m.Info("hello")
	m.Error("boom")

	for _, r := range []*recorder{a, b} {
		if len(r.infos) != 1 || r.infos[0] != "hello" {
			t.Errorf("infos = %v", r.infos)
		}
		if len(r.errors) != 1 || r.errors[0] != "boom" {
			t.Errorf("errors = %v", r.errors)
		}
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Info("Sync completed")
	c.Error("cannot connect to server")

	out := buf.String()
	if !strings.Contains(out, "Sync completed") || !strings.Contains(out, "cannot connect to server") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected two lines, got %q", out)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	n.Error("disk full")
	if !strings.Contains(buf.String(), "disk full") || !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("unexpected log: %q", buf.String())
	}
}
