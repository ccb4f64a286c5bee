// Package processor implements the per-format extraction dispatch (C3):
// a priority-ordered registry of Processor implementations, each claiming
// a file path and returning extracted metadata claims or a corruption
// signal.
package processor

import (
	"context"
	"sort"
	"sync"
)

// ExtractedClaim is a single {key, value, confidence} tuple a Processor
// produces; the caller (ingestion engine) attaches entity id, provider id,
// and timestamp before persisting.
type ExtractedClaim struct {
	Key        string
	Value      string
	Confidence float64
}

// Result is what Process returns for one file.
type Result struct {
	DetectedType string
	Claims       []ExtractedClaim
	CoverBytes   []byte
	IsCorrupt    bool
	CorruptReason string
}

// Processor is the capability set every format handler implements.
// A Processor MUST signal corruption through Result.IsCorrupt rather than
// returning an error for malformed-but-recognised input; Process only
// returns an error for conditions the caller cannot reason about (I/O
// failure opening the path).
type Processor interface {
	CanHandle(path string) bool
	Process(ctx context.Context, path string) (Result, error)
}

// registration pairs a processor with its dispatch priority.
type registration struct {
	processor Processor
	priority  int
}

// Registry dispatches a path to the first processor willing to handle it,
// trying registrations in descending priority order.
type Registry struct {
	mu            sync.RWMutex
	registrations []registration
}

// NewRegistry returns an empty registry. Callers should Register a
// GenericProcessor at the lowest priority so dispatch never fails to
// produce a decision.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a processor at the given priority; higher priority is
// attempted first.
func (r *Registry) Register(p Processor, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, registration{processor: p, priority: priority})
	sort.SliceStable(r.registrations, func(i, j int) bool {
		return r.registrations[i].priority > r.registrations[j].priority
	})
}

// Process routes path to the first willing processor and returns its
// result, merging nothing: the first CanHandle match is authoritative.
func (r *Registry) Process(ctx context.Context, path string) (Result, error) {
	r.mu.RLock()
	regs := make([]registration, len(r.registrations))
	copy(regs, r.registrations)
	r.mu.RUnlock()

	for _, reg := range regs {
		if reg.processor.CanHandle(path) {
			return reg.processor.Process(ctx, path)
		}
	}
	return Result{DetectedType: "Unknown"}, nil
}
