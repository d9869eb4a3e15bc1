package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kadenwood/verifyd/internal/verdict"
)

// MemoryStore is a full in-process Store implementation used for tests and
// as Compose's degraded-mode buffer when either backend errors — writes
// are kept here rather than dropped. Buffered writes stay in memory; they
// are not copied back to the backend once it is reachable again.
type MemoryStore struct {
	mu       sync.RWMutex
	verdicts map[string]verdict.Verdict
	facts    map[string]verdict.DomainFacts
}

// NewMemory builds an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		verdicts: make(map[string]verdict.Verdict),
		facts:    make(map[string]verdict.DomainFacts),
	}
}

func (m *MemoryStore) GetVerdict(ctx context.Context, normalized string) (*verdict.Verdict, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.verdicts[normalized]
	if !ok {
		return nil, false, nil
	}
	clone := v.Clone()
	return &clone, true, nil
}

func (m *MemoryStore) PutVerdict(ctx context.Context, v verdict.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.verdicts[v.Normalized]; ok && v.VerifiedAt.Before(existing.VerifiedAt) {
		return nil
	}
	m.verdicts[v.Normalized] = v.Clone()
	return nil
}

func (m *MemoryStore) GetDomainFacts(ctx context.Context, domain string) (*verdict.DomainFacts, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.facts[domain]
	if !ok {
		return nil, false, nil
	}
	return &f, true, nil
}

func (m *MemoryStore) PutDomainFacts(ctx context.Context, facts verdict.DomainFacts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[facts.Domain] = facts
	return nil
}

func (m *MemoryStore) ScanDueForRefresh(ctx context.Context, olderThan time.Time, limit int) ([]verdict.Verdict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	due := make([]verdict.Verdict, 0, limit)
	for _, v := range m.verdicts {
		if v.VerifiedAt.Before(olderThan) {
			due = append(due, v.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].VerifiedAt.Before(due[j].VerifiedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		VerdictCount:    int64(len(m.verdicts)),
		DomainFactCount: int64(len(m.facts)),
	}, nil
}

// Compose pairs a durable verdict store with an ephemeral domain-facts
// store into one Store, and falls back to an internal memory buffer for
// either half when its underlying backend errors — this is the "degraded
// mode" this package provides rather than failing the whole request.
type Compose struct {
	Durable   *DurableStore
	Ephemeral *EphemeralStore
	fallback  *MemoryStore
	mu        sync.Mutex
	degraded  bool
}

// NewCompose wires a durable and an ephemeral backend together.
func NewCompose(durable *DurableStore, ephemeral *EphemeralStore) *Compose {
	return &Compose{Durable: durable, Ephemeral: ephemeral, fallback: NewMemory()}
}

func (c *Compose) GetVerdict(ctx context.Context, normalized string) (*verdict.Verdict, bool, error) {
	v, ok, err := c.Durable.GetVerdict(ctx, normalized)
	if err == nil {
		return v, ok, nil
	}
	c.markDegraded()
	return c.fallback.GetVerdict(ctx, normalized)
}

func (c *Compose) PutVerdict(ctx context.Context, v verdict.Verdict) error {
	if err := c.Durable.PutVerdict(ctx, v); err != nil {
		c.markDegraded()
		return c.fallback.PutVerdict(ctx, v)
	}
	return nil
}

func (c *Compose) GetDomainFacts(ctx context.Context, domain string) (*verdict.DomainFacts, bool, error) {
	f, ok, err := c.Ephemeral.GetDomainFacts(ctx, domain)
	if err == nil {
		return f, ok, nil
	}
	c.markDegraded()
	return c.fallback.GetDomainFacts(ctx, domain)
}

func (c *Compose) PutDomainFacts(ctx context.Context, facts verdict.DomainFacts) error {
	if err := c.Ephemeral.PutDomainFacts(ctx, facts); err != nil {
		c.markDegraded()
		return c.fallback.PutDomainFacts(ctx, facts)
	}
	return nil
}

func (c *Compose) ScanDueForRefresh(ctx context.Context, olderThan time.Time, limit int) ([]verdict.Verdict, error) {
	due, err := c.Durable.ScanDueForRefresh(ctx, olderThan, limit)
	if err != nil {
		c.markDegraded()
		return c.fallback.ScanDueForRefresh(ctx, olderThan, limit)
	}
	return due, nil
}

func (c *Compose) Stats(ctx context.Context) (Stats, error) {
	durableStats, err := c.Durable.Stats(ctx)
	if err != nil {
		c.markDegraded()
		durableStats, _ = c.fallback.Stats(ctx)
	}
	ephemeralStats, err := c.Ephemeral.Stats(ctx)
	if err != nil {
		c.markDegraded()
	} else {
		durableStats.DomainFactCount = ephemeralStats.DomainFactCount
	}

	c.mu.Lock()
	durableStats.Degraded = c.degraded
	c.mu.Unlock()
	return durableStats, nil
}

func (c *Compose) markDegraded() {
	c.mu.Lock()
	c.degraded = true
	c.mu.Unlock()
}
