package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"InkBoard/internal/state"
)

const recordFile = "record.json"

// FileStore keeps each document in its own directory:
//
//	<dir>/<id>/record.json
//	<dir>/<id>/<name>
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Create(ctx context.Context, doc NewDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := sanitizeName(doc.Name)
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(s.dir, id), 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, id, name), doc.Data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	now := s.now().UTC()
	rec := Record{
		Metadata: Metadata{
			ID:          id,
			Owner:       doc.Owner,
			Name:        doc.Name,
			Type:        doc.Type,
			PageCount:   doc.PageCount,
			StoragePath: id + "/" + name,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Annotations: doc.Annotations,
	}
	if rec.Annotations == nil {
		rec.Annotations = state.PageAnnotations{}
	}
	if err := s.writeRecord(rec); err != nil {
		return "", err
	}
	log.Printf("[STORE] Created %s (%s, %d pages)", id, doc.Name, doc.PageCount)
	return id, nil
}

func (s *FileStore) Update(ctx context.Context, id string, pages state.PageAnnotations) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readRecord(id)
	if err != nil {
		return err
	}
	rec.Annotations = pages
	if rec.Annotations == nil {
		rec.Annotations = state.PageAnnotations{}
	}
	rec.UpdatedAt = s.now().UTC()
	return s.writeRecord(rec)
}

func (s *FileStore) Fetch(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRecord(id)
}

func (s *FileStore) Download(ctx context.Context, storagePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", storagePath, ErrNotFound)
	}
	return data, err
}

// List returns the metadata of every stored document, newest first.
func (s *FileStore) List(ctx context.Context) ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Metadata
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		rec, err := s.readRecord(e.Name())
		if err != nil {
			continue
		}
		out = append(out, rec.Metadata)
	}
	sortByUpdated(out)
	return out, nil
}

func (s *FileStore) readRecord(id string) (Record, error) {
	if !validID(id) {
		return Record{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, id, recordFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

// writeRecord replaces the record file atomically.
func (s *FileStore) writeRecord(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	final := filepath.Join(s.dir, rec.ID, recordFile)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (s *FileStore) resolve(storagePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(storagePath))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage path %q", storagePath)
	}
	return filepath.Join(s.dir, clean), nil
}

func sortByUpdated(list []Metadata) {
	slices.SortFunc(list, func(a, b Metadata) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

func sanitizeName(name string) string {
	name = filepath.Base(filepath.FromSlash(name))
	if name == "." || name == string(filepath.Separator) || name == recordFile || name == "" {
		return "document"
	}
	return name
}
