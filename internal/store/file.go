package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/i474232898/weather-logbook/internal/weather"
)

// FileStore persists records under <root>/<location key>/<epoch seconds>.json,
// storing each payload verbatim.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at root. The directory is created
// on first write.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the files root.
func (s *FileStore) Root() string {
	return s.root
}

// ListAll reads and parses every record file of the location, newest first.
// A file that fails to parse aborts the listing with ErrMalformedRecord.
func (s *FileStore) ListAll(loc weather.Location) ([]weather.Record, error) {
	dir, err := s.dir(loc)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []weather.Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}

	records := make([]weather.Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isRecordFile(e.Name()) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrStorage, err)
		}
		rec, err := weather.ParseRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		records = append(records, rec)
	}

	weather.SortNewestFirst(records)
	return records, nil
}

// Save writes the record's raw payload, replacing any file of the same name.
// The payload goes to a temp file first so readers never see a partial record.
func (s *FileStore) Save(loc weather.Location, rec weather.Record) error {
	dir, err := s.dir(loc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(rec.Raw()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}

	target := filepath.Join(dir, rec.FileName())
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}

	log.Printf("store: saved %s", target)
	return nil
}

// Delete removes the record's file. A missing file is not an error.
func (s *FileStore) Delete(loc weather.Location, rec weather.Record) error {
	dir, err := s.dir(loc)
	if err != nil {
		return err
	}

	target := filepath.Join(dir, rec.FileName())
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", weather.ErrStorage, err)
	}
	return nil
}

func (s *FileStore) dir(loc weather.Location) (string, error) {
	key := loc.Key()
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: invalid location key %q", weather.ErrStorage, key)
	}
	return filepath.Join(s.root, key), nil
}

func isRecordFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
