// Package pipeline orchestrates the full flow: ingest sources, extract
// and dedup insights, recluster themes, drive action generation through
// its state machine, and evaluate every artifact before it is shown.
package pipeline

import (
	"sync"
	"time"

	"rivalscope/internal/collect"
	"rivalscope/internal/dedup"
	"rivalscope/internal/insight"
	"rivalscope/internal/llm"
	"rivalscope/internal/persistence"
	"rivalscope/internal/quality"
	"rivalscope/internal/themes"
)

// staleLockTTL is how long a generation lock may be held before a new
// request may break it. Covers a crashed worker that never released.
const staleLockTTL = 5 * time.Minute

// Orchestrator wires the pipeline stages over one store.
type Orchestrator struct {
	store      persistence.Store
	collector  *collect.Collector
	scorer     *insight.Scorer
	dedup      *dedup.Deduplicator
	aggregator *themes.Aggregator
	client     llm.Client
	evaluator  *quality.Evaluator

	// maxStoredText caps raw source text before storage.
	maxStoredText int

	// genLocks single-flights artifact generation per action.
	genLocks lockTable

	// reclusterMu serializes reclustering per competitor so concurrent
	// ingests cannot interleave theme replacement.
	reclusterMu sync.Mutex
	reclusters  map[string]*sync.Mutex
}

// Options carries the orchestrator's tunables.
type Options struct {
	MaxStoredText int
}

// New wires an orchestrator from its stages.
func New(store persistence.Store, collector *collect.Collector, scorer *insight.Scorer,
	dd *dedup.Deduplicator, aggregator *themes.Aggregator, client llm.Client,
	evaluator *quality.Evaluator, opts Options) *Orchestrator {
	maxText := opts.MaxStoredText
	if maxText <= 0 {
		maxText = 10000
	}
	return &Orchestrator{
		store:         store,
		collector:     collector,
		scorer:        scorer,
		dedup:         dd,
		aggregator:    aggregator,
		client:        client,
		evaluator:     evaluator,
		maxStoredText: maxText,
		genLocks:      lockTable{held: make(map[string]time.Time)},
		reclusters:    make(map[string]*sync.Mutex),
	}
}

// lockTable is a single-flight guard keyed by action id. A held entry
// older than staleLockTTL no longer blocks, so a crashed generation cannot
// wedge its action forever.
type lockTable struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// acquire reports whether the caller now owns the lock.
func (l *lockTable) acquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if at, ok := l.held[key]; ok && time.Since(at) < staleLockTTL {
		return false
	}
	l.held[key] = time.Now()
	return true
}

func (l *lockTable) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// competitorLock returns the recluster mutex for one competitor.
func (o *Orchestrator) competitorLock(competitorID string) *sync.Mutex {
	o.reclusterMu.Lock()
	defer o.reclusterMu.Unlock()
	mu, ok := o.reclusters[competitorID]
	if !ok {
		mu = &sync.Mutex{}
		o.reclusters[competitorID] = mu
	}
	return mu
}
