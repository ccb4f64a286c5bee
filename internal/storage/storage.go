// Package storage defines the persistence interfaces for the claim store,
// canonical-value store, and the entity hierarchy above them.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tanaste-io/tanaste/internal/types"
)

// ErrDBNotInitialized is the sentinel for a feature that requires the
// database being used before Open has completed successfully. No function
// in this module returns it.
var ErrDBNotInitialized = errors.New("storage: database not initialized")

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("storage: not found")

// Transaction exposes the subset of Storage operations that must run
// inside a single database transaction, so callers can compose multi-step
// writes atomically (e.g. persisting a claim batch and its canonical
// upserts together).
//
// # Transaction semantics
//
//   - All operations share one connection; changes are invisible to other
//     connections until commit.
//   - A returned error rolls the transaction back.
//   - A panic inside the callback rolls the transaction back and re-raises.
//   - SQLite uses BEGIN IMMEDIATE to acquire the write lock up front, which
//     serialises canonical-value upserts per the ordering guarantees in
//     the data-flow model.
type Transaction interface {
	InsertClaims(ctx context.Context, claims []*types.MetadataClaim) error
	UpsertCanonicalValues(ctx context.Context, values []*types.CanonicalValue) error
	InsertAsset(ctx context.Context, asset *types.MediaAsset) (inserted bool, err error)
	AppendTransactionLog(ctx context.Context, entry *types.TransactionLogEntry) error
}

// ClaimStore is the append-only claim log (C1).
type ClaimStore interface {
	InsertBatch(ctx context.Context, claims []*types.MetadataClaim) error
	GetClaimsByEntity(ctx context.Context, entityID string) ([]*types.MetadataClaim, error)
}

// CanonicalStore is the materialised per-(entity,key) value table (C1).
type CanonicalStore interface {
	UpsertBatch(ctx context.Context, values []*types.CanonicalValue) error
	GetCanonicalsByEntity(ctx context.Context, entityID string) ([]*types.CanonicalValue, error)
	GetConflicted(ctx context.Context) ([]*types.CanonicalValue, error)
}

// HubStore, WorkStore, EditionStore, AssetStore, PersonStore cover the
// entity hierarchy operations the ingestion pipeline and library scanner
// need.
type HubStore interface {
	GetHubByID(ctx context.Context, id string) (*types.Hub, error)
	GetHubByName(ctx context.Context, name string) (*types.Hub, error)
	UpsertHub(ctx context.Context, hub *types.Hub) error
	DeleteHub(ctx context.Context, id string) error
}

type WorkStore interface {
	GetWorkByID(ctx context.Context, id string) (*types.Work, error)
	FindWorkInHub(ctx context.Context, hubID string, mediaType types.MediaType) (*types.Work, error)
	UpsertWork(ctx context.Context, work *types.Work) error
	ReassignWorksToHub(ctx context.Context, oldHubID, newHubID string) error
}

type EditionStore interface {
	GetEditionByID(ctx context.Context, id string) (*types.Edition, error)
	ListEditionsForWork(ctx context.Context, workID string) ([]*types.Edition, error)
	UpsertEdition(ctx context.Context, edition *types.Edition) error
}

type AssetStore interface {
	GetAssetByHash(ctx context.Context, hash string) (*types.MediaAsset, error)
	GetAssetByPathRoot(ctx context.Context, pathRoot string) (*types.MediaAsset, error)
	InsertAsset(ctx context.Context, asset *types.MediaAsset) (inserted bool, err error)
	SetAssetStatus(ctx context.Context, id string, status types.AssetStatus) error
}

type PersonStore interface {
	FindPersonByNameRole(ctx context.Context, name string, role types.PersonRole) (*types.Person, error)
	UpsertPerson(ctx context.Context, person *types.Person) error
	LinkPerson(ctx context.Context, link *types.PersonMediaLink) error
	MarkPersonEnriched(ctx context.Context, id string, externalID, portraitURL, biography *string, at time.Time) error
}

// Storage aggregates every store plus lifecycle and transaction control.
type Storage interface {
	ClaimStore
	CanonicalStore
	HubStore
	WorkStore
	EditionStore
	AssetStore
	PersonStore

	AppendTransactionLog(ctx context.Context, entry *types.TransactionLogEntry) error

	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	Close() error
	Path() string
	UnderlyingDB() *sql.DB
}
