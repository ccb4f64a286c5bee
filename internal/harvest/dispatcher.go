package harvest

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tanaste-io/tanaste/internal/events"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

// maxConcurrentFetches bounds how many provider round-trips run at once,
// per spec §5.
const maxConcurrentFetches = 3

// pollInterval is how often the dispatcher checks the queue when idle.
const pollInterval = 200 * time.Millisecond

// ProviderWeights and ProviderFieldWeights configure the scoring engine;
// they are read fresh on every dispatch so config reloads apply without
// restarting the dispatcher.
type WeightsSource func() (providerWeights map[string]float64, providerFieldWeights map[string]map[string]float64, cfg scoring.Config)

// Dispatcher drains a Queue, fans requests out across registered
// Providers (bounded to maxConcurrentFetches in flight), and persists
// the first non-empty response per request. Provider order is the
// registration order: first success wins, matching the "first
// satisfying provider" rule in spec §4.8.
type Dispatcher struct {
	queue     *Queue
	providers []Provider
	store     storage.Storage
	engine    *scoring.Engine
	weights   WeightsSource
	bus       *events.Bus

	sem    *semaphore.Weighted
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(queue *Queue, store storage.Storage, engine *scoring.Engine, weights WeightsSource, bus *events.Bus) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		store:   store,
		engine:  engine,
		weights: weights,
		bus:     bus,
		sem:     semaphore.NewWeighted(maxConcurrentFetches),
		done:    make(chan struct{}),
	}
}

// Register adds a provider to the dispatch order. Not safe to call once
// Start has been invoked.
func (d *Dispatcher) Register(p Provider) {
	d.providers = append(d.providers, p)
}

// Start begins draining the queue in a background goroutine. Stop
// cancels it and waits for in-flight fetches to release their permits.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	go d.run(ctx)
}

func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	<-d.done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = d.sem.Acquire(context.Background(), maxConcurrentFetches)
			return
		case <-ticker.C:
			req, ok := d.queue.Dequeue()
			if !ok {
				continue
			}
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return
			}
			go func(r Request) {
				defer d.sem.Release(1)
				d.process(ctx, r)
			}(req)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, req Request) {
	var claims []Claim
	var usedProvider string
	for _, p := range d.providers {
		if !p.CanHandleMedia(req.MediaType) || !p.CanHandleEntity(req.EntityType) {
			continue
		}
		result, err := p.Fetch(ctx, req)
		if err != nil || len(result) == 0 {
			continue
		}
		claims = result
		usedProvider = p.ProviderID()
		break
	}
	if len(claims) == 0 {
		return
	}

	now := types.Now()
	persisted := make([]*types.MetadataClaim, 0, len(claims))
	for _, c := range claims {
		persisted = append(persisted, &types.MetadataClaim{
			ID:         types.NewID(),
			EntityID:   req.EntityID,
			EntityType: req.EntityType,
			ProviderID: usedProvider,
			Key:        c.Key,
			Value:      c.Value,
			Confidence: c.Confidence,
			ClaimedAt:  now,
		})
	}

	if err := d.store.InsertBatch(ctx, persisted); err != nil {
		return
	}

	all, err := d.store.GetClaimsByEntity(ctx, req.EntityID)
	if err != nil {
		return
	}

	providerWeights, providerFieldWeights, cfg := d.weights()
	scored := d.engine.ScoreEntity(req.EntityID, all, providerWeights, providerFieldWeights, cfg)

	canonicals := make([]*types.CanonicalValue, 0, len(scored.Fields))
	for _, f := range scored.Fields {
		canonicals = append(canonicals, &types.CanonicalValue{
			EntityID:     req.EntityID,
			EntityType:   req.EntityType,
			Key:          f.Key,
			Value:        f.Value,
			LastScoredAt: now,
			IsConflicted: f.IsConflicted,
		})
	}
	if err := d.store.UpsertBatch(ctx, canonicals); err != nil {
		return
	}

	changedKeys := make([]string, 0, len(claims))
	for _, c := range claims {
		changedKeys = append(changedKeys, c.Key)
	}
	sort.Strings(changedKeys)

	if d.bus != nil {
		d.bus.Publish(events.MetadataHarvested, map[string]string{
			"entityId": req.EntityID,
			"provider": usedProvider,
			"fields":   joinComma(changedKeys),
		})
	}

	if req.EntityType == types.EntityPerson {
		d.publishPersonEnriched(ctx, req.EntityID, req.Hints["name"])
	}
}

// publishPersonEnriched persists the harvested externalId/portraitUrl/
// biography canonicals onto the person row and announces the person's
// actual name, resolving Open Question 2: the event names who was
// enriched rather than publishing an empty placeholder.
func (d *Dispatcher) publishPersonEnriched(ctx context.Context, personID, name string) {
	canonicals, err := d.store.GetCanonicalsByEntity(ctx, personID)
	if err != nil {
		return
	}
	var externalID, portraitURL, biography *string
	for _, c := range canonicals {
		switch c.Key {
		case "externalId":
			v := c.Value
			externalID = &v
		case "portraitUrl":
			v := c.Value
			portraitURL = &v
		case "biography":
			v := c.Value
			biography = &v
		}
	}
	now := types.Now()
	if err := d.store.MarkPersonEnriched(ctx, personID, externalID, portraitURL, biography, now); err != nil {
		return
	}

	if d.bus != nil {
		d.bus.Publish(events.PersonEnriched, map[string]string{
			"personId": personID,
			"name":     name,
		})
	}
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
