// Package ingestion implements the per-candidate pipeline (C10) that
// turns a settled watcher Candidate into a hashed, scored, organised
// MediaAsset: hash, duplicate-check, process, score, persist, enqueue
// enrichment, resolve person references, and — once confidence clears
// the auto-link threshold — organise and write the sidecar back.
package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/tanaste-io/tanaste/internal/events"
	"github.com/tanaste-io/tanaste/internal/hasher"
	"github.com/tanaste-io/tanaste/internal/harvest"
	"github.com/tanaste-io/tanaste/internal/organizer"
	"github.com/tanaste-io/tanaste/internal/person"
	"github.com/tanaste-io/tanaste/internal/processor"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/sidecar"
	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
	"github.com/tanaste-io/tanaste/internal/watcher"
)

// localProcessorID tags claims produced by the local file processors,
// distinguishing them from harvested provider claims in the claim log.
const localProcessorID = "localProcessor"

// maxConcurrentIngests bounds how many candidates are processed at once,
// per spec §5's bounded parallel worker pool.
const maxConcurrentIngests = 4

// Config carries the tunables an Engine needs beyond storage and
// scoring, sourced from the config manifest.
type Config struct {
	LibraryRoot          string
	OrganizationTemplate string
	AutoOrganize         bool
	WriteBack            bool
	Scoring              scoring.Config
	ProviderWeights      map[string]float64
	ProviderFieldWeights map[string]map[string]float64
}

// PendingOperation describes a move DryRun would perform without
// mutating any state.
type PendingOperation struct {
	Source      string
	Destination string
	Kind        string
	Reason      string
}

// Engine is the ingestion orchestrator.
type Engine struct {
	store     storage.Storage
	registry  *processor.Registry
	engine    *scoring.Engine
	queue     *harvest.Queue
	persons   *person.Service
	bus       *events.Bus
	cfg       func() Config

	sem *semaphore.Weighted
}

func NewEngine(store storage.Storage, registry *processor.Registry, scoringEngine *scoring.Engine, queue *harvest.Queue, bus *events.Bus, cfg func() Config) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		engine:   scoringEngine,
		queue:    queue,
		persons:  person.NewService(store, queue),
		bus:      bus,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(maxConcurrentIngests),
	}
}

// Submit processes one watcher Candidate. It acquires a worker-pool slot
// before doing any work so overall concurrency stays bounded regardless
// of how fast candidates arrive.
func (e *Engine) Submit(ctx context.Context, c watcher.Candidate) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)
	return e.process(ctx, c)
}

func (e *Engine) process(ctx context.Context, c watcher.Candidate) error {
	if c.Kind == watcher.Deleted {
		return e.handleDeleted(ctx, c.Path)
	}
	if c.IsFailed {
		e.publish(events.IngestionFailed, map[string]string{"path": c.Path, "reason": c.Reason})
		return nil
	}

	if _, err := os.Stat(c.Path); err != nil {
		// The file vanished between settle and dispatch; nothing to do.
		return nil
	}

	e.publish(events.IngestionStarted, map[string]string{"path": c.Path})

	hashResult, err := hasher.Compute(c.Path)
	if err != nil {
		e.publish(events.IngestionFailed, map[string]string{"path": c.Path, "reason": err.Error()})
		return err
	}
	e.publish(events.IngestionHashed, map[string]string{"path": c.Path, "hash": hashResult.Hex})

	existing, err := e.store.GetAssetByHash(ctx, hashResult.Hex)
	if err != nil && err != storage.ErrNotFound {
		return err
	}
	if existing != nil {
		// Exact content duplicate: the asset already exists under a
		// (possibly different) path. Nothing further to ingest.
		e.publish(events.IngestionCompleted, map[string]string{"path": c.Path, "duplicate": "true"})
		return nil
	}

	result, err := e.registry.Process(ctx, c.Path)
	if err != nil {
		e.publish(events.IngestionFailed, map[string]string{"path": c.Path, "reason": err.Error()})
		return err
	}

	assetID := types.NewID()
	status := types.AssetNormal
	if result.IsCorrupt {
		status = types.AssetConflicted
	}

	mediaType := types.MediaType(result.DetectedType)
	if !mediaType.IsValid() {
		mediaType = types.MediaUnknown
	}
	editionID, err := e.resolveHierarchy(ctx, extractedValue("title", result.Claims), mediaType)
	if err != nil {
		e.publish(events.IngestionFailed, map[string]string{"path": c.Path, "reason": err.Error()})
		return err
	}

	// Claims attach to the asset itself per spec: the local processor's
	// findings describe this specific file, not the shared edition.
	claims := make([]*types.MetadataClaim, 0, len(result.Claims))
	now := types.Now()
	for _, rc := range result.Claims {
		claims = append(claims, &types.MetadataClaim{
			ID:         types.NewID(),
			EntityID:   assetID,
			EntityType: types.EntityAsset,
			ProviderID: localProcessorID,
			Key:        rc.Key,
			Value:      rc.Value,
			Confidence: rc.Confidence,
			ClaimedAt:  now,
		})
	}

	var inserted bool
	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if len(claims) > 0 {
			if err := tx.InsertClaims(ctx, claims); err != nil {
				return err
			}
		}
		asset := &types.MediaAsset{
			ID:          assetID,
			EditionID:   editionID,
			ContentHash: hashResult.Hex,
			PathRoot:    c.Path,
			Status:      status,
		}
		ok, err := tx.InsertAsset(ctx, asset)
		if err != nil {
			return err
		}
		inserted = ok
		return tx.AppendTransactionLog(ctx, &types.TransactionLogEntry{
			ID:         types.NewID(),
			EntityID:   assetID,
			EntityType: types.EntityAsset,
			Operation:  "ingest",
			Actor:      "ingestion-engine",
			OccurredAt: now,
			Detail:     c.Path,
		})
	})
	if err != nil {
		e.publish(events.IngestionFailed, map[string]string{"path": c.Path, "reason": err.Error()})
		return err
	}
	if !inserted {
		// A concurrent ingest already claimed this content hash.
		return nil
	}

	cfg := e.cfg()
	seededWeights := map[string]float64{localProcessorID: 1.0}
	var scored scoring.EntityResult
	if len(claims) > 0 {
		scored = e.engine.ScoreEntity(assetID, claims, seededWeights, nil, cfg.Scoring)
		canonicals := make([]*types.CanonicalValue, 0, len(scored.Fields))
		for _, f := range scored.Fields {
			canonicals = append(canonicals, &types.CanonicalValue{
				EntityID:     assetID,
				EntityType:   types.EntityAsset,
				Key:          f.Key,
				Value:        f.Value,
				LastScoredAt: now,
				IsConflicted: f.IsConflicted,
			})
		}
		if err := e.store.UpsertBatch(ctx, canonicals); err != nil {
			return err
		}
	}

	e.publish(events.MediaAdded, map[string]string{"assetId": assetID, "path": c.Path})

	e.enqueueHarvest(assetID, mediaType, result, claims)
	e.processPersonReferences(ctx, assetID, result)

	if cfg.AutoOrganize {
		e.maybeOrganize(ctx, assetID, c.Path, mediaType, hashResult.Hex, scored, cfg)
	}

	e.publish(events.IngestionCompleted, map[string]string{"path": c.Path, "assetId": assetID})
	return nil
}

// publish is a thin, nil-safe wrapper so every call site in this file can
// fire events without checking whether a bus was wired up.
func (e *Engine) publish(name events.Name, fields map[string]string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(name, fields)
}

func (e *Engine) handleDeleted(ctx context.Context, path string) error {
	asset, err := e.store.GetAssetByPathRoot(ctx, path)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil
		}
		return err
	}
	return e.store.SetAssetStatus(ctx, asset.ID, types.AssetOrphaned)
}

func fieldValue(claimKey string, claims []*types.MetadataClaim) string {
	for _, c := range claims {
		if c.Key == claimKey {
			return c.Value
		}
	}
	return ""
}

// extractedValue reads a key straight out of a processor's raw findings,
// before they have been wrapped as persisted MetadataClaims.
func extractedValue(key string, claims []processor.ExtractedClaim) string {
	for _, c := range claims {
		if c.Key == key {
			return c.Value
		}
	}
	return ""
}

// resolveHierarchy finds or creates the Hub and Work that own this
// ingested file, and a fresh Edition beneath them, per the Hub/Work
// creation invariants in the data model: a Hub is created on the first
// file that names it, a Work is created per media type within that Hub.
func (e *Engine) resolveHierarchy(ctx context.Context, title string, mediaType types.MediaType) (string, error) {
	if title == "" {
		title = "Unknown"
	}

	hub, err := e.store.GetHubByName(ctx, title)
	if err != nil && err != storage.ErrNotFound {
		return "", err
	}
	if hub == nil {
		hub = &types.Hub{ID: types.NewID(), Name: title, CreatedAt: types.Now()}
		if err := e.store.UpsertHub(ctx, hub); err != nil {
			return "", err
		}
	}

	work, err := e.store.FindWorkInHub(ctx, hub.ID, mediaType)
	if err != nil && err != storage.ErrNotFound {
		return "", err
	}
	if work == nil {
		work = &types.Work{ID: types.NewID(), HubID: hub.ID, MediaType: mediaType}
		if err := e.store.UpsertWork(ctx, work); err != nil {
			return "", err
		}
	}

	edition := &types.Edition{ID: types.NewID(), WorkID: work.ID}
	if err := e.store.UpsertEdition(ctx, edition); err != nil {
		return "", err
	}
	return edition.ID, nil
}

func (e *Engine) enqueueHarvest(assetID string, mediaType types.MediaType, result processor.Result, claims []*types.MetadataClaim) {
	e.queue.Enqueue(harvest.Request{
		EntityID:   assetID,
		EntityType: types.EntityAsset,
		MediaType:  mediaType,
		Hints: map[string]string{
			"title":    fieldValue("title", claims),
			"author":   fieldValue("author", claims),
			"narrator": fieldValue("narrator", claims),
			"asin":     fieldValue("asin", claims),
			"isbn":     fieldValue("isbn", claims),
		},
	})
}

func (e *Engine) processPersonReferences(ctx context.Context, assetID string, result processor.Result) {
	var refs []person.Reference
	for _, c := range result.Claims {
		switch c.Key {
		case "author":
			refs = append(refs, person.Reference{Name: c.Value, Role: types.RoleAuthor})
		case "narrator":
			for _, name := range strings.Split(c.Value, ",") {
				if n := strings.TrimSpace(name); n != "" {
					refs = append(refs, person.Reference{Name: n, Role: types.RoleNarrator})
				}
			}
		case "director":
			refs = append(refs, person.Reference{Name: c.Value, Role: types.RoleDirector})
		}
	}
	if len(refs) == 0 {
		return
	}
	// A failure resolving one reference never blocks the remainder; the
	// returned errors are discarded and do not fail the ingest.
	_ = e.persons.Process(ctx, assetID, refs)
}

func (e *Engine) maybeOrganize(ctx context.Context, assetID, currentPath string, mediaType types.MediaType, contentHash string, scored scoring.EntityResult, cfg Config) {
	fieldConfidence := make(map[string]float64)
	fields := make(map[string]string)
	for _, f := range scored.Fields {
		fieldConfidence[f.Key] = f.Confidence
		fields[f.Key] = f.Value
	}
	if fieldConfidence["title"] < cfg.Scoring.AutoLinkThreshold && !e.hasUserLockedTitle(ctx, assetID) {
		return
	}

	tokens := organizer.Tokens{
		Title:     fields["title"],
		Author:    fields["author"],
		Year:      fields["year"],
		Series:    fields["series"],
		Publisher: fields["publisher"],
		MediaType: string(mediaType),
		Category:  mediaType.Category(),
		Extension: strings.TrimPrefix(filepath.Ext(currentPath), "."),
	}
	relative := organizer.Resolve(cfg.OrganizationTemplate, tokens)
	dest := organizer.ResolveCollisionFree(filepath.Join(cfg.LibraryRoot, relative))

	if !organizer.ExecuteMove(currentPath, dest) {
		return
	}
	_ = e.store.SetAssetStatus(ctx, assetID, types.AssetNormal)

	if !cfg.WriteBack {
		return
	}
	dir := filepath.Dir(dest)
	_ = sidecar.WriteEdition(dir, sidecar.EditionSidecar{
		Title:         fields["title"],
		Author:        fields["author"],
		MediaType:     string(mediaType),
		ContentHash:   contentHash,
		LastOrganized: types.FormatTime(types.Now()),
	})
}

// hasUserLockedTitle reports whether the asset carries a title claim the
// user has pinned, letting a manual correction bypass the confidence gate
// even when no provider's score clears the auto-link threshold.
func (e *Engine) hasUserLockedTitle(ctx context.Context, assetID string) bool {
	claims, err := e.store.GetClaimsByEntity(ctx, assetID)
	if err != nil {
		return false
	}
	for _, c := range claims {
		if c.Key == "title" && c.IsUserLocked {
			return true
		}
	}
	return false
}

// DryRun walks root and reports the organisation moves Submit would make
// without touching the filesystem or the database.
func (e *Engine) DryRun(ctx context.Context, root string) ([]PendingOperation, error) {
	var ops []PendingOperation
	cfg := e.cfg()

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if filepath.Base(path) == sidecar.FileName {
			return nil
		}

		result, procErr := e.registry.Process(ctx, path)
		if procErr != nil {
			ops = append(ops, PendingOperation{Source: path, Kind: "skip", Reason: procErr.Error()})
			return nil
		}
		if result.IsCorrupt {
			ops = append(ops, PendingOperation{Source: path, Kind: "flag-conflicted", Reason: result.CorruptReason})
			return nil
		}

		tokens := organizer.Tokens{
			Extension: strings.TrimPrefix(filepath.Ext(path), "."),
		}
		for _, c := range result.Claims {
			switch c.Key {
			case "title":
				tokens.Title = c.Value
			case "author":
				tokens.Author = c.Value
			case "year":
				tokens.Year = c.Value
			}
		}
		dest := filepath.Join(cfg.LibraryRoot, organizer.Resolve(cfg.OrganizationTemplate, tokens))
		if dest == path {
			return nil
		}
		ops = append(ops, PendingOperation{Source: path, Destination: dest, Kind: "move", Reason: "organization-template"})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingestion: dry run %s: %w", root, err)
	}
	return ops, nil
}
