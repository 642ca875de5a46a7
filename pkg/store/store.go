// Package store persists directory entities as individual JSON files.
//
// Every Save call clears its target directory, writes one file per valid
// entity and keeps going past per-entity failures, collecting them in the
// returned Result. The target directory is removed together with everything
// inside it before being recreated, so callers must point the store at a
// folder it owns.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/directory"
)

// DefaultFolder is the folder created next to the executable when no base
// directory is configured.
const DefaultFolder = "MSGraph"

// Result is the outcome of one Save call.
type Result struct {
	// Location is the directory the files were written to. It is empty when
	// the call aborted before any entity was processed.
	Location string
	// SavedCount is the number of files written.
	SavedCount int
	// Errors holds every failure in the order it occurred.
	Errors []error
}

// Aborted reports whether Save gave up before processing entities.
func (r Result) Aborted() bool {
	return r.Location == ""
}

// Err joins all collected errors, or returns nil when there were none.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Store writes entities of type T under a fixed base directory.
// A Store holds no per-call state and may be shared between goroutines as
// long as concurrent calls target different subfolders.
type Store[T directory.Object] struct {
	baseDir string
}

// New creates a store rooted at baseDir. A blank baseDir selects
// DefaultBaseDir().
func New[T directory.Object](baseDir string) *Store[T] {
	if directory.Blank(baseDir) {
		baseDir = DefaultBaseDir()
	}
	return &Store[T]{baseDir: baseDir}
}

// DefaultBaseDir returns DefaultFolder inside the running executable's
// directory, falling back to the working directory.
func DefaultBaseDir() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), DefaultFolder)
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, DefaultFolder)
	}
	return DefaultFolder
}

// BaseDir returns the configured base directory.
func (s *Store[T]) BaseDir() string {
	return s.baseDir
}

// Save writes each entity to {base}/{subfolder}/{name}.json, adding " (2)",
// " (3)", ... when the name is taken. A nil entities slice is rejected
// without touching the filesystem; an empty one still prepares the
// directory.
func (s *Store[T]) Save(entities []T, nameOf directory.NameFunc[T], subfolder string, opts ...Option) Result {
	cfg := defaultSaveConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var res Result

	if entities == nil {
		return res.abort("missing_input", fmt.Errorf("%w: entities is nil", ErrMissingInput))
	}
	if nameOf == nil {
		return res.abort("missing_input", fmt.Errorf("%w: name function is nil", ErrMissingInput))
	}

	target, err := s.targetPath(subfolder)
	if err != nil {
		return res.abort("prepare", err)
	}
	if err := prepareDir(target, cfg.dirMode); err != nil {
		return res.abort("prepare", err)
	}
	res.Location = target

	for i, entity := range entities {
		name := nameOf(entity)
		var id string
		if any(entity) != nil {
			id = entity.GetID()
		}
		if directory.Blank(name) || directory.Blank(id) {
			res.fail("missing_field", &ItemError{Index: i, ID: id, Name: name, Err: ErrMissingRequiredField})
			continue
		}

		data, err := encode(entity, cfg)
		if err != nil {
			res.fail("serialize", &ItemError{Index: i, ID: id, Name: name, Err: err})
			continue
		}

		if path, err := writeUnique(target, SanitizeName(name), data, cfg.fileMode); err != nil {
			res.fail("write", &ItemError{Index: i, ID: id, Name: name, Path: path, Err: err})
			continue
		}

		res.SavedCount++
		filesSaved.Inc()
	}

	return res
}

func (r *Result) abort(kind string, err error) Result {
	r.Location = ""
	r.fail(kind, err)
	return *r
}

func (r *Result) fail(kind string, err error) {
	r.Errors = append(r.Errors, err)
	saveErrors.WithLabelValues(kind).Inc()
}

// targetPath joins subfolder to the base directory, rejecting subfolders
// that would land outside it.
func (s *Store[T]) targetPath(subfolder string) (string, error) {
	if subfolder == "" {
		return s.baseDir, nil
	}
	if filepath.IsAbs(subfolder) {
		return "", fmt.Errorf("%w: subfolder %q is absolute", ErrInvalidPath, subfolder)
	}

	target := filepath.Join(s.baseDir, subfolder)
	rel, err := filepath.Rel(filepath.Clean(s.baseDir), target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: subfolder %q escapes %s", ErrInvalidPath, subfolder, s.baseDir)
	}
	return target, nil
}

// prepareDir removes target with its contents if it is a directory, then
// creates it again.
func prepareDir(target string, mode os.FileMode) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", target, err)
	}
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("%w: %s", ErrUnsafeTarget, abs)
	}

	info, err := os.Stat(target)
	switch {
	case err == nil && info.IsDir():
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("clear %s: %w", target, err)
		}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", target, err)
	}

	if err := os.MkdirAll(target, mode); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	return nil
}

func encode(v any, cfg saveConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(cfg.escapeHTML)
	if cfg.prefix != "" || cfg.indent != "" {
		enc.SetIndent(cfg.prefix, cfg.indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return buf.Bytes(), nil
}
