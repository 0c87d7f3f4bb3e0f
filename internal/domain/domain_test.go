package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// =============================================================================
// Settings Tests
// =============================================================================

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Token != "" {
		t.Errorf("Token = %q, want empty", s.Token)
	}
	if s.TargetDirectory != DefaultTargetDirectory {
		t.Errorf("TargetDirectory = %q, want %q", s.TargetDirectory, DefaultTargetDirectory)
	}
	if !s.AutoSyncOnStartup {
		t.Error("AutoSyncOnStartup should default to true")
	}
	if s.IsSyncing || s.LastSyncFailed {
		t.Error("sync flags should default to false")
	}
	if s.LastSyncTimestamp != nil {
		t.Error("LastSyncTimestamp should default to nil")
	}
	if s.ImportedRecordIDs == nil || len(s.ImportedRecordIDs) != 0 {
		t.Errorf("ImportedRecordIDs = %#v, want empty non-nil", s.ImportedRecordIDs)
	}
}

func TestMergeSettings(t *testing.T) {
	token := "tok"
	dir := "Recipes"
	off := false
	ts := time.UnixMilli(1700000000000)

	tests := []struct {
		name    string
		partial PartialSettings
		want    func() Settings
	}{
		{
			name:    "empty partial yields defaults",
			partial: PartialSettings{},
			want:    DefaultSettings,
		},
		{
			name:    "token only",
			partial: PartialSettings{Token: &token},
			want: func() Settings {
				s := DefaultSettings()
				s.Token = "tok"
				return s
			},
		},
		{
			name: "several fields",
			partial: PartialSettings{
				TargetDirectory:   &dir,
				AutoSyncOnStartup: &off,
				LastSyncTimestamp: &ts,
				ImportedRecordIDs: []int64{3, 1, 3},
			},
			want: func() Settings {
				s := DefaultSettings()
				s.TargetDirectory = "Recipes"
				s.AutoSyncOnStartup = false
				s.LastSyncTimestamp = &ts
				s.ImportedRecordIDs = []int64{3, 1, 3}
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeSettings(DefaultSettings(), tt.partial)
			if !reflect.DeepEqual(got, tt.want()) {
				t.Errorf("MergeSettings() = %#v, want %#v", got, tt.want())
			}

			again := MergeSettings(DefaultSettings(), got.Partial())
			if !reflect.DeepEqual(again, got) {
				t.Errorf("merge not idempotent: %#v vs %#v", again, got)
			}
		})
	}
}

func TestMergeSettings_DoesNotAlias(t *testing.T) {
	ids := []int64{1, 2}
	merged := MergeSettings(DefaultSettings(), PartialSettings{ImportedRecordIDs: ids})
	merged.ImportedRecordIDs[0] = 99
	if ids[0] != 1 {
		t.Error("merge should copy the ID slice")
	}
}

func TestSettings_Clone(t *testing.T) {
	ts := time.Now()
	s := DefaultSettings()
	s.LastSyncTimestamp = &ts
	s.ImportedRecordIDs = []int64{7}

	c := s.Clone()
	c.ImportedRecordIDs[0] = 8
	*c.LastSyncTimestamp = ts.Add(time.Hour)

	if s.ImportedRecordIDs[0] != 7 {
		t.Error("clone shares ID slice")
	}
	if !s.LastSyncTimestamp.Equal(ts) {
		t.Error("clone shares timestamp")
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestRecordError(t *testing.T) {
	base := errors.New("disk full")
	err := NewRecordError(2, "Cooksync/Soup.md", "write", base)

	if got, want := err.Error(), "write [2] Cooksync/Soup.md: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("RecordError should unwrap to the cause")
	}

	noPath := NewRecordError(5, "", "record", base)
	if got, want := noPath.Error(), "record [5]: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
