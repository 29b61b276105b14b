package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"InkBoard/internal/config"
	"InkBoard/internal/document"
	boardnet "InkBoard/internal/net"
	"InkBoard/internal/store"
)

// logOutput is where component logs go when enabled.
var logOutput io.Writer = os.Stderr

var errNoServer = errors.New("no store server found on the local network")

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if !cfg.RemoteStore() {
		fs, err := openFileStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}

	addr := cfg.StoreURL
	if addr == "auto" {
		found, err := boardnet.Discover(ctx, boardnet.DefaultDiscoverTimeout)
		if err != nil {
			return nil, nil, err
		}
		if len(found) == 0 {
			return nil, nil, errNoServer
		}
		addr = found[0]
		log.Printf("[CLI] Using store server %s", addr)
	}
	c, err := boardnet.Dial(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to store %s: %w", addr, err)
	}
	return c, func() { c.Close() }, nil
}

func openFileStore(cfg *config.Config) (*store.FileStore, error) {
	if err := cfg.EnsureStoreDir(); err != nil {
		return nil, err
	}
	return store.NewFileStore(cfg.StoreDir)
}

// importFile stores the document at path and returns its new id.
func importFile(ctx context.Context, s store.Store, owner, path string) (string, *document.Document, error) {
	doc, err := document.OpenFile(path)
	if err != nil {
		return "", nil, err
	}
	id, err := s.Create(ctx, store.NewDocument{
		Owner:     owner,
		Data:      doc.Data,
		Name:      doc.Name,
		Type:      string(doc.Type),
		PageCount: doc.PageCount,
	})
	if err != nil {
		return "", nil, fmt.Errorf("store %s: %w", filepath.Base(path), err)
	}
	return id, doc, nil
}

// loadDocument fetches a stored record and opens its original bytes.
func loadDocument(ctx context.Context, s store.Store, id string) (store.Record, *document.Document, error) {
	rec, err := s.Fetch(ctx, id)
	if err != nil {
		return store.Record{}, nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	data, err := s.Download(ctx, rec.StoragePath)
	if err != nil {
		return store.Record{}, nil, fmt.Errorf("download %s: %w", rec.Name, err)
	}
	doc, err := document.Open(rec.Name, data)
	if err != nil {
		return store.Record{}, nil, err
	}
	return rec, doc, nil
}

// resolveDocument accepts either a stored id or a path to a file, which
// is imported first.
func resolveDocument(ctx context.Context, s store.Store, owner, arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		id, _, err := importFile(ctx, s, owner, arg)
		return id, err
	}
	return arg, nil
}
