// Package mx resolves and caches MX records for a domain. A TTL-aware
// cache, guarded by a sync.RWMutex, avoids re-resolving domains on every
// lookup, and golang.org/x/sync/singleflight coalesces concurrent lookups
// for the same domain into one underlying DNS query.
package mx

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kadenwood/verifyd/internal/verdict"
)

// ErrNoSuchDomain mirrors a hard NXDOMAIN: the domain does not exist at all.
var ErrNoSuchDomain = errors.New("mx: no such domain")

// ErrLookupUnavailable covers transient resolver failures (SERVFAIL,
// timeout) that should be retried later rather than treated as invalid.
var ErrLookupUnavailable = errors.New("mx: lookup temporarily unavailable")

type cacheEntry struct {
	hosts     []verdict.MXHost
	synthetic bool
	expiresAt time.Time
}

// Resolver looks up and caches MX records, falling back to A/AAAA when a
// domain has no MX records but does resolve directly (a small but common
// misconfiguration worth tolerating rather than failing outright).
type Resolver struct {
	net *net.Resolver
	ttl time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	sf singleflight.Group
}

// New builds a Resolver with the given freshness TTL for cached entries.
func New(ttl time.Duration) *Resolver {
	return &Resolver{
		net:   &net.Resolver{},
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
	}
}

// Lookup returns the MX hosts for domain, ordered by preference, using the
// cache when fresh and coalescing concurrent callers for the same domain
// into a single underlying DNS query.
func (r *Resolver) Lookup(ctx context.Context, domain string) ([]verdict.MXHost, bool, error) {
	domain = strings.ToLower(domain)

	if hosts, synthetic, ok := r.fromCache(domain); ok {
		return hosts, synthetic, nil
	}

	v, err, _ := r.sf.Do(domain, func() (interface{}, error) {
		hosts, synthetic, err := r.resolve(ctx, domain)
		if err != nil {
			return nil, err
		}
		r.store(domain, hosts, synthetic)
		return struct {
			hosts     []verdict.MXHost
			synthetic bool
		}{hosts, synthetic}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(struct {
		hosts     []verdict.MXHost
		synthetic bool
	})
	return res.hosts, res.synthetic, nil
}

func (r *Resolver) fromCache(domain string) ([]verdict.MXHost, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[domain]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, false
	}
	return entry.hosts, entry.synthetic, true
}

func (r *Resolver) store(domain string, hosts []verdict.MXHost, synthetic bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[domain] = cacheEntry{
		hosts:     hosts,
		synthetic: synthetic,
		expiresAt: time.Now().Add(r.ttl),
	}
}

func (r *Resolver) resolve(ctx context.Context, domain string) ([]verdict.MXHost, bool, error) {
	mxRecords, err := r.net.LookupMX(ctx, domain)
	if err == nil && len(mxRecords) > 0 {
		hosts := make([]verdict.MXHost, 0, len(mxRecords))
		for _, rec := range mxRecords {
			hosts = append(hosts, verdict.MXHost{
				Host:       strings.TrimSuffix(rec.Host, "."),
				Preference: rec.Pref,
			})
		}
		sort.Slice(hosts, func(i, j int) bool { return hosts[i].Preference < hosts[j].Preference })
		return hosts, false, nil
	}

	if isNXDomain(err) {
		return nil, false, ErrNoSuchDomain
	}

	// No MX records: fall back to a synthetic single-host record if the
	// domain resolves directly, matching the common "bare domain accepts
	// mail on its own A record" misconfiguration.
	if ips, aErr := r.net.LookupHost(ctx, domain); aErr == nil && len(ips) > 0 {
		return []verdict.MXHost{{Host: domain, Preference: 0}}, true, nil
	}

	if err != nil {
		if isNXDomain(err) {
			return nil, false, ErrNoSuchDomain
		}
		return nil, false, ErrLookupUnavailable
	}
	return nil, false, ErrNoSuchDomain
}

func isNXDomain(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}
