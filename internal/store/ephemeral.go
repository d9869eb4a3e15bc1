package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kadenwood/verifyd/internal/config"
	"github.com/kadenwood/verifyd/internal/verdict"
)

// factsPayload is the JSON shape stored in Redis, mirroring DomainFacts but
// with explicit field names independent of the in-memory struct layout so
// a future field rename doesn't silently break stored data.
type factsPayload struct {
	Domain            string            `json:"domain"`
	MXHosts           []verdict.MXHost  `json:"mx_hosts"`
	SyntheticAA       bool              `json:"synthetic_aa"`
	Provider          verdict.Provider  `json:"provider"`
	ProviderPrior     float64           `json:"provider_prior"`
	CatchAll          verdict.CatchAllState `json:"catch_all"`
	MXCheckedAt       time.Time         `json:"mx_checked_at"`
	CatchAllCheckedAt time.Time         `json:"catch_all_checked_at"`
}

// EphemeralStore caches per-domain facts in Redis with the per-fact-kind
// TTLs the core requires. It only implements the domain-facts half of
// Store; its verdict methods always return an error — use Compose to pair
// it with a durable verdict store.
type EphemeralStore struct {
	client        *redis.Client
	mxTTL         time.Duration
	catchAllTTL   time.Duration
}

// NewEphemeral connects to Redis using the usual Addr/Password/DB options shape.
func NewEphemeral(cfg config.RedisConfig, mxTTL, catchAllTTL time.Duration) *EphemeralStore {
	return &EphemeralStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		mxTTL:       mxTTL,
		catchAllTTL: catchAllTTL,
	}
}

func (e *EphemeralStore) GetVerdict(ctx context.Context, normalized string) (*verdict.Verdict, bool, error) {
	return nil, false, errors.New("store: EphemeralStore does not hold verdicts, compose with a durable store")
}

func (e *EphemeralStore) PutVerdict(ctx context.Context, v verdict.Verdict) error {
	return errors.New("store: EphemeralStore does not hold verdicts, compose with a durable store")
}

func (e *EphemeralStore) ScanDueForRefresh(ctx context.Context, olderThan time.Time, limit int) ([]verdict.Verdict, error) {
	return nil, errors.New("store: EphemeralStore does not hold verdicts, compose with a durable store")
}

func (e *EphemeralStore) GetDomainFacts(ctx context.Context, domain string) (*verdict.DomainFacts, bool, error) {
	raw, err := e.client.Get(ctx, factsKey(domain)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var payload factsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, err
	}

	facts := verdict.DomainFacts{
		Domain:            payload.Domain,
		MXHosts:           payload.MXHosts,
		SyntheticAA:       payload.SyntheticAA,
		Provider:          payload.Provider,
		ProviderPrior:     payload.ProviderPrior,
		CatchAll:          payload.CatchAll,
		MXCheckedAt:       payload.MXCheckedAt,
		CatchAllCheckedAt: payload.CatchAllCheckedAt,
	}
	return &facts, true, nil
}

// PutDomainFacts writes with the longer of the two fact TTLs, since a
// single Redis key holds both MX and catch-all facts together — the
// dispatcher re-probes and re-writes whichever half is stale rather than
// relying on a per-field expiry Redis can't express on one key.
func (e *EphemeralStore) PutDomainFacts(ctx context.Context, facts verdict.DomainFacts) error {
	payload := factsPayload{
		Domain:            facts.Domain,
		MXHosts:           facts.MXHosts,
		SyntheticAA:       facts.SyntheticAA,
		Provider:          facts.Provider,
		ProviderPrior:     facts.ProviderPrior,
		CatchAll:          facts.CatchAll,
		MXCheckedAt:       facts.MXCheckedAt,
		CatchAllCheckedAt: facts.CatchAllCheckedAt,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ttl := e.mxTTL
	if e.catchAllTTL > ttl {
		ttl = e.catchAllTTL
	}
	return e.client.Set(ctx, factsKey(facts.Domain), raw, ttl).Err()
}

func (e *EphemeralStore) Stats(ctx context.Context) (Stats, error) {
	count, err := e.client.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, err
	}
	return Stats{DomainFactCount: count}, nil
}

func (e *EphemeralStore) Close() error {
	return e.client.Close()
}

func factsKey(domain string) string {
	return "verifyd:domain-facts:" + domain
}
