// Package storage persists resume data blobs keyed by info-hash.
package storage

import (
	"errors"

	"github.com/anacrolix/torrent/metainfo"
)

var ErrNotFound = errors.New("resume data not found")

// Holds the most recent resume data for each torrent. Implementations are safe for concurrent use.
type ResumeStore interface {
	// Returns ErrNotFound if there's nothing stored for the info-hash.
	Get(ih metainfo.Hash) ([]byte, error)
	// Replaces any existing blob.
	Put(ih metainfo.Hash, b []byte) error
	// Returns ErrNotFound if there's nothing to delete.
	Delete(ih metainfo.Hash) error
	Close() error
}

// Stores that can enumerate their contents, for tools that inspect them.
type ResumeStoreLister interface {
	ResumeStore
	List() ([]metainfo.Hash, error)
}
