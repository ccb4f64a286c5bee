// Package person implements the recursive person service (C9): resolving
// author/narrator/director references on an ingested asset into Person
// rows, linking them to the asset, and kicking off enrichment for any
// person who has never been enriched.
package person

import (
	"context"

	"github.com/tanaste-io/tanaste/internal/harvest"
	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

// Reference is one name credited on an asset, in the given role. Process
// skips references with an empty name.
type Reference struct {
	Name string
	Role types.PersonRole
}

// Service resolves References against the person store and enqueues
// enrichment work for unseen or unenriched people.
type Service struct {
	store storage.Storage
	queue *harvest.Queue
}

func NewService(store storage.Storage, queue *harvest.Queue) *Service {
	return &Service{store: store, queue: queue}
}

// Process resolves every reference for assetID. A failure resolving one
// reference is collected in the returned errs slice and does not stop the
// remaining references from being processed, per spec §4.9.
func (s *Service) Process(ctx context.Context, assetID string, refs []Reference) []error {
	var errs []error
	for _, ref := range refs {
		if ref.Name == "" {
			continue
		}
		if err := s.processOne(ctx, assetID, ref); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *Service) processOne(ctx context.Context, assetID string, ref Reference) error {
	existing, err := s.store.FindPersonByNameRole(ctx, ref.Name, ref.Role)
	if err != nil && err != storage.ErrNotFound {
		return err
	}

	var p *types.Person
	if existing != nil {
		p = existing
	} else {
		p = &types.Person{
			ID:        types.NewID(),
			Name:      ref.Name,
			Role:      ref.Role,
			CreatedAt: types.Now(),
		}
		if err := s.store.UpsertPerson(ctx, p); err != nil {
			return err
		}
	}

	if err := s.store.LinkPerson(ctx, &types.PersonMediaLink{AssetID: assetID, PersonID: p.ID, Role: ref.Role}); err != nil {
		return err
	}

	if p.EnrichedAt == nil {
		s.queue.Enqueue(harvest.Request{
			EntityID:   p.ID,
			EntityType: types.EntityPerson,
			MediaType:  types.MediaUnknown,
			Hints: map[string]string{
				"name": ref.Name,
				"role": string(ref.Role),
			},
		})
	}
	return nil
}
