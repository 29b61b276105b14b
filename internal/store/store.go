// Package store persists documents and their annotations.
package store

import (
	"context"
	"errors"
	"time"

	"InkBoard/internal/state"
)

var ErrNotFound = errors.New("document not found")

// Metadata describes a stored document. StoragePath is what Download
// expects to get the original bytes back.
type Metadata struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	PageCount   int       `json:"pageCount"`
	StoragePath string    `json:"storagePath"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Record struct {
	Metadata
	Annotations state.PageAnnotations `json:"annotations"`
}

// NewDocument is everything needed to create a stored document.
type NewDocument struct {
	Owner       string                `json:"owner"`
	Data        []byte                `json:"data"`
	Name        string                `json:"name"`
	Type        string                `json:"type"`
	PageCount   int                   `json:"pageCount"`
	Annotations state.PageAnnotations `json:"annotations"`
}

// Store is the persistence boundary. Every call may fail; callers never
// roll back in-memory state on error.
type Store interface {
	Create(ctx context.Context, doc NewDocument) (string, error)
	Update(ctx context.Context, id string, pages state.PageAnnotations) error
	Fetch(ctx context.Context, id string) (Record, error)
	Download(ctx context.Context, storagePath string) ([]byte, error)
}
