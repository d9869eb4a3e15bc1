package mx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadenwood/verifyd/internal/verdict"
)

func TestResolver_CachesWithinTTL(t *testing.T) {
	r := New(time.Hour)
	r.store("example.com", []verdict.MXHost{{Host: "mx1.example.com", Preference: 10}}, false)

	hosts, synthetic, ok := r.fromCache("example.com")
	require.True(t, ok)
	assert.False(t, synthetic)
	assert.Equal(t, "mx1.example.com", hosts[0].Host)
}

func TestResolver_CacheExpiresAfterTTL(t *testing.T) {
	r := New(time.Millisecond)
	r.store("example.com", []verdict.MXHost{{Host: "mx1.example.com", Preference: 10}}, false)
	time.Sleep(5 * time.Millisecond)

	_, _, ok := r.fromCache("example.com")
	assert.False(t, ok)
}

func TestResolver_LookupUnknownDomainReturnsErr(t *testing.T) {
	r := New(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := r.Lookup(ctx, "this-domain-should-not-exist-verifyd-test.invalid")
	require.Error(t, err)
}

func TestResolver_ConcurrentLookupsOfUnknownDomainAllReturnErr(t *testing.T) {
	r := New(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, _, err := r.Lookup(ctx, "this-domain-should-not-exist-verifyd-test.invalid")
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.Error(t, <-done)
	}
}
