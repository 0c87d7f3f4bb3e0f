// Package vault provides the file-system surface records are written to.
// Paths handed to a FileSystem are normalized, forward-slash and relative
// to the vault root.
package vault

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/cooksync/cooksync/internal/domain"
)

// Root is the normalized form of the vault root itself.
const Root = "/"

// NormalizePath converts p to the canonical vault form: runs of '/' or
// '\' collapse to one '/', leading and trailing separators are dropped,
// non-breaking spaces become plain spaces and the result is NFC.
// An empty result is the vault root.
func NormalizePath(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	lastSep := false
	for _, r := range p {
		switch r {
		case '/', '\\':
			if !lastSep {
				b.WriteByte('/')
			}
			lastSep = true
			continue
		case '\u00a0', '\u202f':
			r = ' '
		}
		lastSep = false
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "/")
	if out == "" {
		return Root
	}
	return norm.NFC.String(out)
}

// NormalizeTargetDirectory normalizes a user-supplied target directory,
// falling back to the default folder when dir is blank.
func NormalizeTargetDirectory(dir string) string {
	if strings.TrimSpace(dir) == "" {
		dir = domain.DefaultTargetDirectory
	}
	return NormalizePath(dir)
}

// Parent returns p minus its final segment, or "" when p has a single
// segment.
func Parent(p string) string {
	p = strings.TrimRight(p, "/")
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return ""
	}
	return p[:i]
}
