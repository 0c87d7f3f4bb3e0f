// Package settings persists the client's settings record between runs.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cooksync/cooksync/internal/domain"
)

// Store loads and saves the settings record. Load returns only the
// fields that were persisted; callers merge them over the defaults.
type Store interface {
	Load(ctx context.Context) (domain.PartialSettings, error)
	Save(ctx context.Context, s domain.Settings) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(path), nil
	case BackendSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}

// LoadMerged loads the persisted record and overlays it on the defaults.
func LoadMerged(ctx context.Context, st Store) (domain.Settings, error) {
	p, err := st.Load(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.MergeSettings(domain.DefaultSettings(), p), nil
}

// document is the on-disk shape of the settings record. Field names
// follow the data.json written by earlier plugin versions.
type document struct {
	Token          *string `json:"token,omitempty"`
	CooksyncDir    *string `json:"cooksyncDir,omitempty"`
	IsSyncing      *bool   `json:"isSyncing,omitempty"`
	TriggerOnLoad  *bool   `json:"triggerOnLoad,omitempty"`
	LastSyncFailed *bool   `json:"lastSyncFailed,omitempty"`
	// LastSyncTime is Unix milliseconds.
	LastSyncTime *int64  `json:"lastSyncTime,omitempty"`
	RecipeIDs    []int64 `json:"recipeIDs"`
}

// documentKeys are the keys document owns. Other keys found in an
// existing file are written back untouched.
var documentKeys = []string{
	"token", "cooksyncDir", "isSyncing", "triggerOnLoad",
	"lastSyncFailed", "lastSyncTime", "recipeIDs",
}

// encodeDocument marshals d over the previous file contents prev.
func encodeDocument(prev []byte, d document) ([]byte, error) {
	out := map[string]json.RawMessage{}
	if len(prev) > 0 {
		if err := json.Unmarshal(prev, &out); err != nil {
			out = map[string]json.RawMessage{}
		}
	}
	for _, k := range documentKeys {
		delete(out, k)
	}

	own, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(own, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.MarshalIndent(out, "", "  ")
}

func toDocument(s domain.Settings) document {
	s = s.Clone()
	d := document{
		Token:          &s.Token,
		CooksyncDir:    &s.TargetDirectory,
		IsSyncing:      &s.IsSyncing,
		TriggerOnLoad:  &s.AutoSyncOnStartup,
		LastSyncFailed: &s.LastSyncFailed,
		RecipeIDs:      s.ImportedRecordIDs,
	}
	if d.RecipeIDs == nil {
		d.RecipeIDs = []int64{}
	}
	if s.LastSyncTimestamp != nil {
		ms := s.LastSyncTimestamp.UnixMilli()
		d.LastSyncTime = &ms
	}
	return d
}

func (d document) partial() domain.PartialSettings {
	p := domain.PartialSettings{
		Token:             d.Token,
		TargetDirectory:   d.CooksyncDir,
		IsSyncing:         d.IsSyncing,
		AutoSyncOnStartup: d.TriggerOnLoad,
		LastSyncFailed:    d.LastSyncFailed,
		ImportedRecordIDs: d.RecipeIDs,
	}
	if d.LastSyncTime != nil {
		ts := time.UnixMilli(*d.LastSyncTime)
		p.LastSyncTimestamp = &ts
	}
	return p
}
