package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadenwood/verifyd/internal/config"
	"github.com/kadenwood/verifyd/internal/store"
	"github.com/kadenwood/verifyd/internal/verdict"
)

func testConfig() *config.Config {
	return &config.Config{
		GlobalSMTPConcurrency:         20,
		PerHostSMTPConcurrency:        4,
		EnrichmentConcurrency:         8,
		BackpressureQueueDepth:        16,
		FastConfidenceThreshold:       0.85,
		VerdictFreshnessDays:          30,
		MXFreshnessHours:              24,
		CatchAllFreshnessDays:         7,
		RequestBudgetFull:             5 * time.Second,
		SMTPProbeBudget:               5 * time.Second,
		EnrichmentInconclusiveAsRisky: true,
	}
}

func TestVerify_InvalidSyntaxShortCircuitsWithoutTouchingNetwork(t *testing.T) {
	d := New(testConfig(), nil, nil, nil, nil, store.NewMemory())

	v, err := d.Verify(context.Background(), "not-an-email")
	require.NoError(t, err)
	assert.Equal(t, verdict.Invalid, v.Reachability)
	assert.Equal(t, verdict.TierFast, v.Tier)
}

func TestVerify_CacheHitShortCircuitsWithoutTouchingNetwork(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.PutVerdict(context.Background(), verdict.Verdict{
		Normalized:   "jane@example.com",
		Reachability: verdict.Safe,
		VerifiedAt:   time.Now(),
	}))

	d := New(testConfig(), nil, nil, nil, nil, st)

	v, err := d.Verify(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, verdict.Safe, v.Reachability)
	assert.Equal(t, verdict.TierCache, v.Tier)
}

func TestVerify_StaleCacheReturnsImmediatelyAndFlagsForRefresh(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.PutVerdict(context.Background(), verdict.Verdict{
		Normalized:   "jane@example.com",
		Reachability: verdict.Safe,
		VerifiedAt:   time.Now().Add(-60 * 24 * time.Hour),
	}))

	cfg := testConfig()
	d := New(cfg, nil, nil, nil, nil, st)

	cached, stale := d.tierCache(context.Background(), "jane@example.com")
	require.NotNil(t, cached, "a stale verdict must still be returned immediately")
	assert.Equal(t, verdict.Safe, cached.Reachability)
	assert.Equal(t, verdict.TierCache, cached.Tier)
	assert.True(t, stale, "a verdict older than the freshness window must be flagged for a background refresh")
}

func TestVerify_FreshCacheIsNotFlaggedStale(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.PutVerdict(context.Background(), verdict.Verdict{
		Normalized:   "jane@example.com",
		Reachability: verdict.Safe,
		VerifiedAt:   time.Now(),
	}))

	d := New(testConfig(), nil, nil, nil, nil, st)

	cached, stale := d.tierCache(context.Background(), "jane@example.com")
	require.NotNil(t, cached)
	assert.False(t, stale)
}

func TestVerify_BackpressureRejectsWhenQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.BackpressureQueueDepth = 1
	d := New(cfg, nil, nil, nil, nil, store.NewMemory())

	d.backlog <- struct{}{} // fill the queue manually

	_, err := d.Verify(context.Background(), "jane@example.com")
	assert.ErrorIs(t, err, ErrBackpressure)
}

func TestVerifyBatch_PreservesOrderAndCount(t *testing.T) {
	d := New(testConfig(), nil, nil, nil, nil, store.NewMemory())

	inputs := []string{"not-an-email", "also not an email", "@nope"}
	results := d.VerifyBatch(context.Background(), inputs)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, verdict.Invalid, r.Reachability)
		assert.Equal(t, inputs[i], r.Normalized)
	}
}
