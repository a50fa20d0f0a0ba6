package docstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store loads and saves the document held by a single file.
//
// View and Update run one load–mutate–save cycle at a time per Store, which
// removes lost updates between requests served by the same process. Nothing
// is cached between cycles.
type Store struct {
	path  string
	codec Codec
	mu    sync.RWMutex
}

// NewStore returns a Store for the file at path encoded with codec.
func NewStore(path string, codec Codec) *Store {
	return &Store{path: path, codec: codec}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Codec returns the codec of the backing file.
func (s *Store) Codec() Codec {
	return s.codec
}

// Raw returns the backing file content as stored.
func (s *Store) Raw() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *Store) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrStorageUnavailable, s.path, err)
	}
	return data, nil
}

// Load reads and decodes the backing file.
//
// Load does not take the store lock; use View or Update for a consistent
// cycle.
func (s *Store) Load() (*Document, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	root, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s as %s: %w", ErrMalformedDocument, s.path, s.codec.Name(), err)
	}
	return &Document{Root: root}, nil
}

// Save encodes doc and replaces the backing file.
//
// The content is written to a temporary file in the same directory which is
// then renamed over the target, so a failed save leaves the previous document
// in place.
func (s *Store) Save(doc *Document) error {
	data, err := s.codec.Encode(doc.Root)
	if err != nil {
		return fmt.Errorf("failed to encode document as %s: %w", s.codec.Name(), err)
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", ErrStorageUnavailable, err)
	}
	tmpPath := f.Name()
	fail := func(msg string, err error) error {
		return errors.Join(fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, msg, err), os.Remove(tmpPath))
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fail("failed to write temp file", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fail("failed to sync temp file", err)
	}
	if err := f.Close(); err != nil {
		return fail("failed to close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // G302: the data file is meant to be world readable
		return fail("failed to set permissions", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fail("failed to replace "+s.path, err)
	}
	return nil
}

// View loads the document and passes it to fn under a read lock. Changes fn
// makes to the document are discarded.
func (s *Store) View(fn func(*Document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.Load()
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update loads the document, passes it to fn and saves it when fn returns nil,
// all under the write lock.
func (s *Store) Update(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.Save(doc)
}
