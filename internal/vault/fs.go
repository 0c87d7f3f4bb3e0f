package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cooksync/cooksync/internal/domain"
)

// FileSystem is the subset of vault operations the materializer needs.
type FileSystem interface {
	// Exists reports whether a file or directory exists at path.
	Exists(path string) (bool, error)

	// Mkdir creates path and any missing ancestors.
	Mkdir(path string) error

	// Write creates a new file at path holding content.
	// Existing files are never replaced.
	Write(path, content string) error
}

// OS implements FileSystem on a directory of the local disk.
type OS struct {
	root string
	// writeContent is swapped in tests to simulate short writes.
	writeContent func(io.Writer, string) (int, error)
}

// NewOS returns a FileSystem rooted at dir.
func NewOS(dir string) (*OS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	return &OS{root: abs, writeContent: io.WriteString}, nil
}

// Root returns the absolute directory backing the vault.
func (o *OS) Root() string {
	return o.root
}

func (o *OS) resolve(p string) (string, error) {
	p = NormalizePath(p)
	if p == Root {
		return o.root, nil
	}
	full := filepath.Join(o.root, filepath.FromSlash(p))
	rel, err := filepath.Rel(o.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", p, domain.ErrPathOutsideVault)
	}
	return full, nil
}

// Exists implements FileSystem.
func (o *OS) Exists(p string) (bool, error) {
	full, err := o.resolve(p)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Mkdir implements FileSystem.
func (o *OS) Mkdir(p string) error {
	full, err := o.resolve(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0755)
}

// Write implements FileSystem. It fails if path is already taken.
func (o *OS) Write(p, content string) error {
	full, err := o.resolve(p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	_, err = o.writeContent(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Leave the name free for the next attempt.
		if rerr := os.Remove(full); rerr != nil {
			return fmt.Errorf("%w (remove partial file: %v)", err, rerr)
		}
		return err
	}
	return nil
}
