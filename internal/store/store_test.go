package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadenwood/verifyd/internal/verdict"
)

func TestMemoryStore_PutThenGetVerdictRoundTrips(t *testing.T) {
	s := NewMemory()
	v := verdict.Verdict{Normalized: "jane@example.com", Reachability: verdict.Safe, VerifiedAt: time.Now()}

	require.NoError(t, s.PutVerdict(context.Background(), v))

	got, ok, err := s.GetVerdict(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, verdict.Safe, got.Reachability)
}

func TestMemoryStore_GetMissingVerdictReturnsNotFound(t *testing.T) {
	s := NewMemory()
	_, ok, err := s.GetVerdict(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_PutVerdictIsLastWriterWinsByVerifiedAt(t *testing.T) {
	s := NewMemory()
	older := verdict.Verdict{Normalized: "jane@example.com", Reachability: verdict.Risky, VerifiedAt: time.Now()}
	newer := verdict.Verdict{Normalized: "jane@example.com", Reachability: verdict.Safe, VerifiedAt: time.Now().Add(time.Hour)}

	require.NoError(t, s.PutVerdict(context.Background(), newer))
	require.NoError(t, s.PutVerdict(context.Background(), older))

	got, _, err := s.GetVerdict(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, verdict.Safe, got.Reachability, "a stale write must not overwrite a fresher one")
}

func TestMemoryStore_DomainFactsRoundTrip(t *testing.T) {
	s := NewMemory()
	facts := verdict.DomainFacts{
		Domain:      "example.com",
		MXHosts:     []verdict.MXHost{{Host: "mx1.example.com", Preference: 10}},
		MXCheckedAt: time.Now(),
	}
	require.NoError(t, s.PutDomainFacts(context.Background(), facts))

	got, ok, err := s.GetDomainFacts(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mx1.example.com", got.MXHosts[0].Host)
}

func TestIsFresh_WithinWindow(t *testing.T) {
	v := verdict.Verdict{VerifiedAt: time.Now().Add(-time.Hour)}
	assert.True(t, IsFresh(v, 24*time.Hour))
	assert.False(t, IsFresh(v, time.Minute))
}

func TestIsMXFresh_ZeroValueIsNeverFresh(t *testing.T) {
	assert.False(t, IsMXFresh(verdict.DomainFacts{}, time.Hour))
}

func TestIsCatchAllFresh_WithinWindow(t *testing.T) {
	f := verdict.DomainFacts{CatchAllCheckedAt: time.Now().Add(-time.Hour)}
	assert.True(t, IsCatchAllFresh(f, 7*24*time.Hour))
}

func TestStats_ReflectsStoredCounts(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.PutVerdict(context.Background(), verdict.Verdict{Normalized: "a@example.com", VerifiedAt: time.Now()}))
	require.NoError(t, s.PutDomainFacts(context.Background(), verdict.DomainFacts{Domain: "example.com"}))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.VerdictCount)
	assert.Equal(t, int64(1), stats.DomainFactCount)
}
