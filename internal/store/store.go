// Package store persists verdicts durably and caches domain facts
// ephemerally, behind a single interface so the dispatcher
// never knows whether it's talking to Postgres, Redis, or the degraded
// in-memory fallback used when either is unavailable.
package store

import (
	"context"
	"time"

	"github.com/kadenwood/verifyd/internal/verdict"
)

// Stats summarizes store health for the /stats endpoint.
type Stats struct {
	VerdictCount   int64
	DomainFactCount int64
	Degraded       bool
}

// Store is the one persistence seam every other package depends on.
// GetVerdict/PutVerdict are the durable side (a 30-day
// freshness window); GetDomainFacts/PutDomainFacts are the ephemeral side
// (per-fact-kind TTLs: MX 24h, catch-all 7d).
type Store interface {
	GetVerdict(ctx context.Context, normalized string) (*verdict.Verdict, bool, error)
	PutVerdict(ctx context.Context, v verdict.Verdict) error

	GetDomainFacts(ctx context.Context, domain string) (*verdict.DomainFacts, bool, error)
	PutDomainFacts(ctx context.Context, facts verdict.DomainFacts) error

	Stats(ctx context.Context) (Stats, error)

	// ScanDueForRefresh returns up to limit verdicts last verified before
	// olderThan, oldest first — the feed for the dispatcher's background
	// refresh worker's re-verification tier.
	ScanDueForRefresh(ctx context.Context, olderThan time.Time, limit int) ([]verdict.Verdict, error)
}

// IsFresh reports whether a verdict's VerifiedAt is still within the
// configured freshness window, the "cache tier hit" test the cascade
// runs before anything else.
func IsFresh(v verdict.Verdict, window time.Duration) bool {
	return time.Since(v.VerifiedAt) < window
}

// IsMXFresh and IsCatchAllFresh apply the same freshness test to the two
// ephemeral fact kinds, which age out independently of each other and of
// the verdict they support.
func IsMXFresh(f verdict.DomainFacts, window time.Duration) bool {
	return !f.MXCheckedAt.IsZero() && time.Since(f.MXCheckedAt) < window
}

func IsCatchAllFresh(f verdict.DomainFacts, window time.Duration) bool {
	return !f.CatchAllCheckedAt.IsZero() && time.Since(f.CatchAllCheckedAt) < window
}
