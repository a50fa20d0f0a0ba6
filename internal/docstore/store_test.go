package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return NewStore(path, JSON{})
}

func TestStoreMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.json"), JSON{})
	if _, err := s.Load(); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Load() error = %v, want ErrStorageUnavailable", err)
	}
	if _, err := s.Raw(); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Raw() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestStoreMalformed(t *testing.T) {
	s := newTestStore(t, `{"Books": [`)
	err := s.View(func(*Document) error { return nil })
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("View() error = %v, want ErrMalformedDocument", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	s := newTestStore(t, `{"Books": []}`)
	err := s.Update(func(doc *Document) error {
		l, err := Collections.InsertList(doc, Books, "")
		if err != nil {
			return err
		}
		l.Append(Record{"book_id": "1"})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(t, doc, Collections, Books); len(got) != 1 {
		t.Errorf("Derive() ids = %v, want one book", got)
	}
	fi, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", fi.Mode().Perm())
	}
}

func TestStoreUpdateErrorSkipsSave(t *testing.T) {
	s := newTestStore(t, `{"Books": []}`)
	boom := errors.New("boom")
	err := s.Update(func(doc *Document) error {
		doc.Root = Record{"changed": true}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Update() error = %v, want boom", err)
	}
	raw, _ := s.Raw()
	if string(raw) != `{"Books": []}` {
		t.Errorf("file = %q, want unchanged", raw)
	}
}

func TestStoreFailedSaveKeepsFile(t *testing.T) {
	s := newTestStore(t, `{"Books": []}`)
	err := s.Update(func(doc *Document) error {
		doc.Root = Record{"bad": make(chan int)}
		return nil
	})
	if err == nil {
		t.Fatal("Update() succeeded with an unencodable value")
	}
	raw, _ := s.Raw()
	if string(raw) != `{"Books": []}` {
		t.Errorf("file = %q, want unchanged", raw)
	}
	assertNoTempFiles(t, filepath.Dir(s.Path()))
}

func TestStoreUnencodableXMLKeepsFile(t *testing.T) {
	const content = "<Database><Books><book_id>B0</book_id></Books></Database>"
	path := filepath.Join(t.TempDir(), "db.xml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, XML{})
	err := s.Update(func(doc *Document) error {
		l, err := Collections.InsertList(doc, Books, "")
		if err != nil {
			return err
		}
		l.Append(Record{"book_id": "B1", "book title": "x"})
		return nil
	})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Update() error = %v, want ErrUnsupported", err)
	}
	raw, _ := s.Raw()
	if string(raw) != content {
		t.Errorf("file = %q, want unchanged", raw)
	}
	if _, err := s.Load(); err != nil {
		t.Errorf("Load() after rejected write: %v", err)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestStoreSaveUnwritableDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "gone", "db.json"), JSON{})
	if err := s.Save(&Document{Root: Record{}}); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Save() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	s := newTestStore(t, `{}`)
	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(func(doc *Document) error {
				l, err := Collections.InsertList(doc, Authors, "")
				if err != nil {
					return err
				}
				l.Append(Record{})
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	doc, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	recs, _ := Derive(doc, Collections, Authors)
	if len(recs) != n {
		t.Errorf("Derive() = %d records, want %d", len(recs), n)
	}
	assertNoTempFiles(t, filepath.Dir(s.Path()))
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
