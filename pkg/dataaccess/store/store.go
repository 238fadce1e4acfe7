// Package store implements the flat-file persistence used for guild
// configuration and the ticket registry. Each File is a single JSON object
// keyed by record ID, loaded fully into memory when opened and rewritten
// wholesale on every update. A mutex serializes all access, so there is
// exactly one writer at a time.
//
// This is deliberately not designed for high write volume; the realistic
// write rate is administrators configuring a guild and tickets being filed.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrPersistence is returned when an update could not be written to the
// backing file. The in-memory table still reflects the attempted update so
// callers are not silently desynchronized from what the user was told.
var ErrPersistence = errors.New("error writing store file")

// File is a single JSON object persisted to disk, keyed by record ID.
type File struct {
	// mu serializes all reads and writes.
	mu sync.Mutex

	// path is the location of the backing file.
	path string

	// records is the in-memory table, keyed by record ID.
	records map[string]json.RawMessage
}

// Open loads the file at path, creating the parent directory and an empty
// file if nothing exists yet.
func Open(path string) (*File, error) {
	f := &File{
		path:    path,
		records: make(map[string]json.RawMessage),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating store directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := f.flush(); err != nil {
			return nil, err
		}
		return f, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading store file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.records); err != nil {
			return nil, fmt.Errorf("error parsing store file %s: %w", path, err)
		}
	}
	return f, nil
}

// Path returns the location of the backing file.
func (f *File) Path() string {
	return f.path
}

// Get decodes the record with the given ID into v. The second return value
// reports whether the record exists.
func (f *File) Get(id string, v any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, ok := f.records[id]
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("error decoding record %s: %w", id, err)
	}
	return true, nil
}

// Put stores v under the given ID and rewrites the whole file. On a write
// failure the in-memory table keeps the update and ErrPersistence is
// returned.
func (f *File) Put(id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding record %s: %w", id, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.records[id] = raw
	return f.flush()
}

// Range calls fn for each record in the file, in sorted key order, until fn
// returns false. The raw value must not be retained past the callback.
func (f *File) Range(fn func(id string, raw json.RawMessage) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.records))
	for id := range f.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !fn(id, f.records[id]) {
			return
		}
	}
}

// Len returns the number of records in the file.
func (f *File) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// flush rewrites the backing file from the in-memory table. Callers must
// hold mu.
func (f *File) flush() error {
	data, err := json.MarshalIndent(f.records, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding store file: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s", ErrPersistence, err)
	}
	return nil
}
