// Package storage keeps palette definitions in a directory.
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/fraclab/internal/errs"
	"github.com/san-kum/fraclab/internal/palette"
)

// Store is a directory of palette files.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Dir returns the palette directory.
func (s *Store) Dir() string { return s.baseDir }

// Init creates the directory and installs the built-in palette when absent.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return errs.NewIOError("create palette dir", s.baseDir, err)
	}
	path := filepath.Join(s.baseDir, palette.DefaultFilename)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeFile(path, palette.DefaultSource()); err != nil {
			return err
		}
	}
	return nil
}

// PaletteInfo describes one stored palette.
type PaletteInfo struct {
	Name     string    `json:"name"`
	Entries  int       `json:"entries"`
	Modified time.Time `json:"modified"`
	Error    string    `json:"error,omitempty"`
}

// Path resolves a palette name inside the store. Directory components are
// dropped so names cannot escape the store.
func (s *Store) Path(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", errs.NewValidationError("palette_file", name, "not a file name")
	}
	return filepath.Join(s.baseDir, base), nil
}

// Save writes raw palette bytes under name, replacing an existing file of the
// same name. It returns the stored file name.
func (s *Store) Save(name string, data []byte) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", errs.NewIOError("create palette dir", s.baseDir, err)
	}
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

// Load reads and parses a stored palette.
func (s *Store) Load(name string) (*palette.Palette, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return palette.Load(path)
}

// List describes every regular file in the store, sorted by name. Files that
// fail to parse are listed with their error.
func (s *Store) List() ([]PaletteInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []PaletteInfo{}, nil
		}
		return nil, errs.NewIOError("list palettes", s.baseDir, err)
	}

	out := make([]PaletteInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info := PaletteInfo{Name: entry.Name()}
		if fi, err := entry.Info(); err == nil {
			info.Modified = fi.ModTime()
		}
		p, err := palette.Load(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Entries = p.Len()
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// writeFile replaces path through a temporary file so readers never see a
// partial palette.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".palette-*")
	if err != nil {
		return errs.NewIOError("write palette", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.NewIOError("write palette", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.NewIOError("write palette", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.NewIOError("write palette", path, err)
	}
	return nil
}
