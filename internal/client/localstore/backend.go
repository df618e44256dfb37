package localstore

import (
	"context"
	"errors"
)

const (
	CollectionSites       = "sites"
	CollectionInspections = "inspections"
	CollectionSettings    = "settings"

	IndexRegion = "region"
	IndexSite   = "siteId"
)

var (
	ErrUnknownIndex      = errors.New("unknown index")
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrWrite wraps every failed put or delete.
	ErrWrite = errors.New("local storage write failed")
)

// Ops are the key-addressed primitives. Get returns common.ErrorNotFound
// for a missing key.
type Ops interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Put(ctx context.Context, collection, key string, value []byte) error
	Delete(ctx context.Context, collection, key string) error
	ListKeys(ctx context.Context, collection string) ([]string, error)
	ListKeysByIndex(ctx context.Context, collection, index, value string) ([]string, error)
}

// Backend is a storage engine for the local store.
type Backend interface {
	Ops
	// Update runs fn with grouped write access. Backends with transactions
	// commit or roll back as a unit; others apply each write as it happens.
	Update(ctx context.Context, fn func(ctx context.Context, ops Ops) error) error
	Close() error
}
