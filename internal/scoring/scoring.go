// Package scoring implements the field-specific weighted voter that turns
// a claim history into canonical values: per-field user-lock override,
// provider-weighted support with stale-claim decay, and conflict
// detection.
package scoring

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/tanaste-io/tanaste/internal/types"
)

// Config holds the tunable thresholds documented in spec §4.2.
type Config struct {
	AutoLinkThreshold   float64
	ConflictThreshold   float64
	ConflictEpsilon     float64
	StaleClaimDecayDays int
	StaleClaimDecayFactor float64
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{
		AutoLinkThreshold:     0.85,
		ConflictThreshold:     0.60,
		ConflictEpsilon:       0.05,
		StaleClaimDecayDays:   90,
		StaleClaimDecayFactor: 0.5,
	}
}

// SimilarityStrategy groups claim values that should be treated as the
// same vote. The deployed strategy (see NormalizedExactMatch) is
// exact-match after normalisation; the interface exists so a future
// near-duplicate strategy can be swapped in without touching ScoreEntity.
type SimilarityStrategy interface {
	// Normalize returns the grouping key for a claim value.
	Normalize(value string) string
}

// NormalizedExactMatch case-folds and collapses whitespace before
// comparing values. This is the strategy Tanaste deploys.
type NormalizedExactMatch struct {
	caser cases.Caser
}

func NewNormalizedExactMatch() NormalizedExactMatch {
	return NormalizedExactMatch{caser: cases.Fold()}
}

func (n NormalizedExactMatch) Normalize(value string) string {
	fields := strings.Fields(value)
	return n.caser.String(strings.Join(fields, " "))
}

// FieldResult is the scored outcome for a single claim key.
type FieldResult struct {
	Key          string
	Value        string
	Confidence   float64
	IsConflicted bool
}

// EntityResult is the set of FieldResults produced for one entity.
type EntityResult struct {
	EntityID string
	Fields   []FieldResult
}

// Engine scores claim histories into canonical values. It holds no
// mutable state: ScoreEntity never mutates its inputs or any shared
// state, so callers may run it concurrently from multiple goroutines.
type Engine struct {
	similarity SimilarityStrategy
	now        func() time.Time
}

// NewEngine constructs a scoring Engine using the deployed
// NormalizedExactMatch similarity strategy.
func NewEngine() *Engine {
	strategy := NewNormalizedExactMatch()
	return &Engine{similarity: strategy, now: types.Now}
}

// WithSimilarityStrategy overrides the grouping strategy; used by tests
// and by any future near-match implementation.
func (e *Engine) WithSimilarityStrategy(s SimilarityStrategy) *Engine {
	e.similarity = s
	return e
}

// ScoreEntity computes the winning (value, confidence, isConflicted) for
// every claim key present in claims, which must all belong to the same
// entity.
func (e *Engine) ScoreEntity(entityID string, claims []*types.MetadataClaim, providerWeights map[string]float64, providerFieldWeights map[string]map[string]float64, cfg Config) EntityResult {
	byKey := make(map[string][]*types.MetadataClaim)
	for _, c := range claims {
		byKey[c.Key] = append(byKey[c.Key], c)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := EntityResult{EntityID: entityID}
	for _, key := range keys {
		result.Fields = append(result.Fields, e.scoreField(key, byKey[key], providerWeights, providerFieldWeights, cfg))
	}
	return result
}

func (e *Engine) scoreField(key string, claims []*types.MetadataClaim, providerWeights map[string]float64, providerFieldWeights map[string]map[string]float64, cfg Config) FieldResult {
	if lock := latestUserLock(claims); lock != nil {
		return FieldResult{Key: key, Value: lock.Value, Confidence: 1.0, IsConflicted: false}
	}

	type group struct {
		value      string
		support    float64
		bestClaim  *types.MetadataClaim
	}
	groups := make(map[string]*group)
	var order []string

	now := e.now()
	for _, c := range claims {
		norm := e.similarity.Normalize(c.Value)
		g, ok := groups[norm]
		if !ok {
			g = &group{value: c.Value, bestClaim: c}
			groups[norm] = g
			order = append(order, norm)
		}
		weight := fieldWeight(providerWeights, providerFieldWeights, c.ProviderID, key)
		g.support += weight * c.Confidence * decay(c.ClaimedAt, now, cfg)
		if isBetterRepresentative(c, g.bestClaim) {
			g.bestClaim = c
			g.value = c.Value
		}
	}

	if len(order) == 0 {
		return FieldResult{Key: key}
	}

	sort.Slice(order, func(i, j int) bool {
		gi, gj := groups[order[i]], groups[order[j]]
		return tieBreak(gi.support, gi.bestClaim, gj.support, gj.bestClaim)
	})

	var total float64
	for _, g := range groups {
		total += g.support
	}

	winner := groups[order[0]]
	confidence := 0.0
	if total > 0 {
		confidence = winner.support / total
	}

	isConflicted := false
	if len(order) == 1 {
		isConflicted = false
	} else {
		runnerUp := groups[order[1]]
		isConflicted = confidence < cfg.ConflictThreshold || (winner.support-runnerUp.support) < cfg.ConflictEpsilon
	}

	return FieldResult{Key: key, Value: winner.value, Confidence: confidence, IsConflicted: isConflicted}
}

// latestUserLock returns the most recent user-locked claim for a field,
// or nil if none exists. Automated providers can never override it.
func latestUserLock(claims []*types.MetadataClaim) *types.MetadataClaim {
	var latest *types.MetadataClaim
	for _, c := range claims {
		if !c.IsUserLocked {
			continue
		}
		if latest == nil || c.ClaimedAt.After(latest.ClaimedAt) {
			latest = c
		}
	}
	return latest
}

func fieldWeight(providerWeights map[string]float64, providerFieldWeights map[string]map[string]float64, providerID, field string) float64 {
	if byField, ok := providerFieldWeights[providerID]; ok {
		if w, ok := byField[field]; ok {
			return w
		}
	}
	if w, ok := providerWeights[providerID]; ok {
		return w
	}
	return 0
}

// decay applies the single-step stale-claim multiplier resolved in
// DESIGN.md: full weight inside the freshness window, a flat multiplier
// once a claim is older than StaleClaimDecayDays.
func decay(claimedAt, now time.Time, cfg Config) float64 {
	if cfg.StaleClaimDecayDays <= 0 {
		return 1.0
	}
	age := now.Sub(claimedAt)
	if age <= time.Duration(cfg.StaleClaimDecayDays)*24*time.Hour {
		return 1.0
	}
	return cfg.StaleClaimDecayFactor
}

// isBetterRepresentative reports whether candidate should replace current
// as the group's representative claim: higher confidence wins.
func isBetterRepresentative(candidate, current *types.MetadataClaim) bool {
	return candidate.Confidence > current.Confidence
}

// tieBreak orders two groups by support descending, then by the tie-break
// chain documented in spec §4.2: most recent claimedAt, higher raw
// confidence, lexicographic provider id.
func tieBreak(supportA float64, a *types.MetadataClaim, supportB float64, b *types.MetadataClaim) bool {
	if supportA != supportB {
		return supportA > supportB
	}
	if !a.ClaimedAt.Equal(b.ClaimedAt) {
		return a.ClaimedAt.After(b.ClaimedAt)
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.ProviderID < b.ProviderID
}
