// Package identity provides the per-installation device identifier that
// correlates the browser authorization flow with this client.
package identity

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// storageKey is the key earlier plugin versions used in local storage.
const storageKey = "cooksync-ObsidianClientId"

// Provider returns the device identifier.
type Provider interface {
	DeviceID() string
}

// Static is a Provider with a fixed identifier.
type Static string

// DeviceID implements Provider.
func (s Static) DeviceID() string { return string(s) }

// FileProvider persists the identifier in a small key/value JSON file.
// The identifier is generated on first use and cached for the process
// lifetime.
type FileProvider struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	id string
}

// NewFileProvider returns a provider backed by the file at path.
func NewFileProvider(path string, logger *slog.Logger) *FileProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileProvider{path: path, logger: logger}
}

// DeviceID implements Provider. It never fails: when the file cannot be
// read or written the identifier still lives for this process.
func (p *FileProvider) DeviceID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id
	}

	values, err := p.read()
	if err != nil {
		p.logger.Warn("read device identity", "path", p.path, "error", err)
		values = map[string]string{}
	}
	if id := values[storageKey]; id != "" {
		p.id = id
		return id
	}

	p.id = newID()
	values[storageKey] = p.id
	if err := p.write(values); err != nil {
		p.logger.Warn("persist device identity", "path", p.path, "error", err)
	} else {
		p.logger.Info("generated device identity", "path", p.path)
	}
	return p.id
}

func (p *FileProvider) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (p *FileProvider) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0600)
}

// newID returns a random alphanumeric identifier.
func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
