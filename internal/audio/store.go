// Package audio manages generated speech files and uploaded learner
// recordings on local disk.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Store writes and serves audio files from a single flat directory.
// Filenames are validated on the way out so a request can never escape
// the directory.
type Store struct {
	dir string
}

// NewStore creates the backing directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes data under a generated name of the form
// prefix_id_timestamp.ext and returns the filename.
func (s *Store) Save(prefix, id, ext string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s_%s%s", Slug(prefix), Slug(id), time.Now().UTC().Format("20060102T150405"), ext)
	if err := s.write(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// SaveStable writes data under a fixed name, overwriting any previous
// content. Used for cacheable speech like concept introductions.
func (s *Store) SaveStable(name string, data []byte) error {
	if !validName(name) {
		return fmt.Errorf("invalid audio filename %q", name)
	}
	return s.write(name, data)
}

// Path resolves a stored filename to an absolute path, rejecting anything
// that is not a plain filename inside the store.
func (s *Store) Path(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("invalid audio filename %q", name)
	}
	p := filepath.Join(s.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("audio file %q: %w", name, err)
	}
	return p, nil
}

// Exists reports whether a stored filename is present.
func (s *Store) Exists(name string) bool {
	if !validName(name) {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

func (s *Store) write(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty audio payload")
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}

// validName accepts plain filenames only: no separators, no traversal.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}

// Slug normalizes free text into a filename-safe token.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "audio"
	}
	return out
}
