package domain

import "time"

// DefaultTargetDirectory is the vault folder records are written to
// until the user picks another one.
const DefaultTargetDirectory = "Cooksync"

// Settings is the persisted client state. It is owned by the sync
// orchestrator; other components receive copies.
type Settings struct {
	Token             string
	TargetDirectory   string
	IsSyncing         bool
	AutoSyncOnStartup bool
	LastSyncFailed    bool
	LastSyncTimestamp *time.Time
	ImportedRecordIDs []int64
}

// DefaultSettings returns the settings of a fresh installation.
func DefaultSettings() Settings {
	return Settings{
		TargetDirectory:   DefaultTargetDirectory,
		AutoSyncOnStartup: true,
		ImportedRecordIDs: []int64{},
	}
}

// Clone returns a deep copy so callers cannot mutate the owner's slice
// or timestamp.
func (s Settings) Clone() Settings {
	out := s
	out.ImportedRecordIDs = append([]int64{}, s.ImportedRecordIDs...)
	if s.LastSyncTimestamp != nil {
		ts := *s.LastSyncTimestamp
		out.LastSyncTimestamp = &ts
	}
	return out
}

// Partial returns s with every field marked present.
func (s Settings) Partial() PartialSettings {
	c := s.Clone()
	return PartialSettings{
		Token:             &c.Token,
		TargetDirectory:   &c.TargetDirectory,
		IsSyncing:         &c.IsSyncing,
		AutoSyncOnStartup: &c.AutoSyncOnStartup,
		LastSyncFailed:    &c.LastSyncFailed,
		LastSyncTimestamp: c.LastSyncTimestamp,
		ImportedRecordIDs: c.ImportedRecordIDs,
	}
}

// PartialSettings is a persisted settings object as loaded from storage.
// A nil field was absent and takes its default on merge.
type PartialSettings struct {
	Token             *string
	TargetDirectory   *string
	IsSyncing         *bool
	AutoSyncOnStartup *bool
	LastSyncFailed    *bool
	LastSyncTimestamp *time.Time
	ImportedRecordIDs []int64
}

// MergeSettings overlays the fields present in p on defaults.
func MergeSettings(defaults Settings, p PartialSettings) Settings {
	out := defaults.Clone()
	if p.Token != nil {
		out.Token = *p.Token
	}
	if p.TargetDirectory != nil {
		out.TargetDirectory = *p.TargetDirectory
	}
	if p.IsSyncing != nil {
		out.IsSyncing = *p.IsSyncing
	}
	if p.AutoSyncOnStartup != nil {
		out.AutoSyncOnStartup = *p.AutoSyncOnStartup
	}
	if p.LastSyncFailed != nil {
		out.LastSyncFailed = *p.LastSyncFailed
	}
	if p.LastSyncTimestamp != nil {
		ts := *p.LastSyncTimestamp
		out.LastSyncTimestamp = &ts
	}
	if p.ImportedRecordIDs != nil {
		out.ImportedRecordIDs = append([]int64{}, p.ImportedRecordIDs...)
	}
	return out
}
