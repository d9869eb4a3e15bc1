// Package dispatcher runs the tiered verification cascade and enforces
// the concurrency/backpressure limits the deliverability contract
// requires. Resource caps are implemented as buffered-channel
// semaphores. VerifyBatch starts one goroutine per address, and each of
// those goes through the same bounded request queue and semaphores as a
// single Verify call.
package dispatcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/kadenwood/verifyd/internal/address"
	"github.com/kadenwood/verifyd/internal/catchall"
	"github.com/kadenwood/verifyd/internal/config"
	"github.com/kadenwood/verifyd/internal/enrich"
	"github.com/kadenwood/verifyd/internal/mx"
	"github.com/kadenwood/verifyd/internal/provider"
	"github.com/kadenwood/verifyd/internal/smtp"
	"github.com/kadenwood/verifyd/internal/store"
	"github.com/kadenwood/verifyd/internal/verdict"
)

// Dispatcher wires every stage together and owns the resource caps that
// keep a burst of requests from opening unbounded SMTP connections.
type Dispatcher struct {
	cfg *config.Config

	mxResolver *mx.Resolver
	probe      *smtp.Probe
	catchAll   *catchall.Prober
	enricher   *enrich.Enricher
	store      store.Store

	globalSMTP  chan struct{}
	hostMu      sync.Mutex
	perHostSMTP map[string]chan struct{}
	enrichment  chan struct{}
	backlog     chan struct{}
}

// New builds a Dispatcher from its configured stages.
func New(cfg *config.Config, resolver *mx.Resolver, probe *smtp.Probe, prober *catchall.Prober, enricher *enrich.Enricher, st store.Store) *Dispatcher {
	return &Dispatcher{
		cfg:         cfg,
		mxResolver:  resolver,
		probe:       probe,
		catchAll:    prober,
		enricher:    enricher,
		store:       st,
		globalSMTP:  make(chan struct{}, cfg.GlobalSMTPConcurrency),
		perHostSMTP: make(map[string]chan struct{}),
		enrichment:  make(chan struct{}, cfg.EnrichmentConcurrency),
		backlog:     make(chan struct{}, cfg.BackpressureQueueDepth),
	}
}

// Verify runs one address through the cascade and returns a Verdict,
// applying the overall request deadline budget from config.
func (d *Dispatcher) Verify(ctx context.Context, raw string) (verdict.Verdict, error) {
	select {
	case d.backlog <- struct{}{}:
		defer func() { <-d.backlog }()
	default:
		return verdict.Verdict{}, ErrBackpressure
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestBudgetFull)
	defer cancel()

	return d.verify(ctx, raw)
}

// ErrBackpressure is returned when the bounded request queue is full —
// an overload signal distinct from any per-address verdict.
var ErrBackpressure = backpressureError{}

type backpressureError struct{}

func (backpressureError) Error() string { return "dispatcher: request queue is full" }

func (d *Dispatcher) verify(ctx context.Context, raw string) (verdict.Verdict, error) {
	addr, flags, err := address.Normalize(raw)
	if !flags.SyntacticOK || err != nil {
		return verdict.Verdict{
			Normalized:   strings.ToLower(strings.TrimSpace(raw)),
			Reachability: verdict.Invalid,
			Deliverable:  verdict.BoolPtr(false),
			Error:        errString(err),
			Tier:         verdict.TierFast,
			VerifiedAt:   nowUTC(),
		}, nil
	}

	if v, stale := d.tierCache(ctx, addr.Normalized); v != nil {
		if stale {
			d.scheduleStaleRefresh(addr, flags)
		}
		return *v, nil
	}

	return d.verifyLive(ctx, addr, flags), nil
}

// verifyLive runs the fast/SMTP/pattern/enrichment/re-verification cascade
// for an address that missed the cache tier — either because there was no
// record, or because a stale one is being refreshed in the background.
func (d *Dispatcher) verifyLive(ctx context.Context, addr verdict.Address, flags verdict.Flags) verdict.Verdict {
	facts := d.domainFacts(ctx, addr.Domain)

	fast, confidence := d.tierFast(addr, flags, facts)
	cfg := providerConfig(facts.Provider)

	if confidence >= d.cfg.FastConfidenceThreshold && !cfg.MarkRisky {
		d.scheduleBackgroundConfirm(addr, flags, facts)
		_ = d.store.PutVerdict(ctx, fast)
		return fast
	}

	smtpVerdict, _ := d.tierSMTP(ctx, addr, flags, facts, cfg)

	if smtpVerdict.Reachability != verdict.Unknown {
		_ = d.store.PutVerdict(ctx, smtpVerdict)
		return smtpVerdict
	}

	patternVerdict, proceed, _ := d.tierPattern(addr, flags, facts, smtpVerdict)
	if !proceed {
		_ = d.store.PutVerdict(ctx, patternVerdict)
		return patternVerdict
	}

	enriched := d.tierEnrich(ctx, addr, flags, facts, cfg, patternVerdict)
	_ = d.store.PutVerdict(ctx, enriched)
	return enriched
}

// VerifyBatch verifies many addresses concurrently, bounded by the same
// caps a single Verify call respects — batching never bypasses the
// concurrency ceiling.
func (d *Dispatcher) VerifyBatch(ctx context.Context, raws []string) []verdict.Verdict {
	results := make([]verdict.Verdict, len(raws))
	done := make(chan struct{}, len(raws))

	for i, raw := range raws {
		i, raw := i, raw
		go func() {
			defer func() { done <- struct{}{} }()
			v, err := d.Verify(ctx, raw)
			if err != nil {
				v = verdict.Verdict{Normalized: raw, Reachability: verdict.Unknown, Error: err.Error(), VerifiedAt: nowUTC()}
			}
			results[i] = v
		}()
	}
	for range raws {
		<-done
	}
	return results
}

// tierCache returns a cached verdict immediately whether it's fresh or
// not; the stale flag tells the caller whether to also schedule a
// background refresh rather than trust the record going forward.
func (d *Dispatcher) tierCache(ctx context.Context, normalized string) (v *verdict.Verdict, stale bool) {
	cached, ok, err := d.store.GetVerdict(ctx, normalized)
	if err != nil {
		logrus.WithError(err).Warn("verdict store lookup failed, falling through to live tiers")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	result := cached.Clone()
	result.Tier = verdict.TierCache
	fresh := store.IsFresh(*cached, time.Duration(d.cfg.VerdictFreshnessDays)*24*time.Hour)
	return &result, !fresh
}

func (d *Dispatcher) domainFacts(ctx context.Context, domain string) verdict.DomainFacts {
	if cached, ok, err := d.store.GetDomainFacts(ctx, domain); err == nil && ok {
		if store.IsMXFresh(*cached, time.Duration(d.cfg.MXFreshnessHours)*time.Hour) {
			return *cached
		}
	}

	facts := verdict.DomainFacts{Domain: domain, CatchAll: verdict.CatchAllUnknown}
	hosts, synthetic, err := d.mxResolver.Lookup(ctx, domain)
	if err != nil {
		return facts
	}
	facts.MXHosts = hosts
	facts.SyntheticAA = synthetic
	facts.MXCheckedAt = nowUTC()
	facts.Provider, facts.ProviderPrior = provider.Classify(hosts)

	_ = d.store.PutDomainFacts(ctx, facts)
	return facts
}

func (d *Dispatcher) tierFast(addr verdict.Address, flags verdict.Flags, facts verdict.DomainFacts) (verdict.Verdict, float64) {
	if len(facts.MXHosts) == 0 {
		return verdict.Verdict{
			Normalized:   addr.Normalized,
			Reachability: verdict.Invalid,
			Deliverable:  verdict.BoolPtr(false),
			Disposable:   flags.Disposable,
			Role:         flags.Role,
			Free:         flags.Free,
			Domain:       addr.Domain,
			Error:        "no MX or A records found",
			Tier:         verdict.TierFast,
			VerifiedAt:   nowUTC(),
		}, 1.0
	}

	confidence := fastTierConfidence(flags, facts.Provider)
	reachability := inferFastReachability(flags, facts.Provider)

	v := verdict.Verdict{
		Normalized:   addr.Normalized,
		Reachability: reachability,
		Deliverable:  verdict.BoolPtr(reachability == verdict.Safe),
		Disposable:   flags.Disposable,
		Role:         flags.Role,
		Free:         flags.Free,
		MXHost:       facts.MXHosts[0].Host,
		Provider:     facts.Provider,
		Domain:       addr.Domain,
		Tier:         verdict.TierFast,
		VerifiedAt:   nowUTC(),
	}
	return v, confidence
}

func (d *Dispatcher) tierSMTP(ctx context.Context, addr verdict.Address, flags verdict.Flags, facts verdict.DomainFacts, cfg provider.Config) (verdict.Verdict, string) {
	if !cfg.DoSMTP {
		return verdict.Verdict{
			Normalized:   addr.Normalized,
			Reachability: verdict.Risky,
			Deliverable:  nil,
			Disposable:   flags.Disposable,
			Role:         flags.Role,
			Free:         flags.Free,
			Provider:     facts.Provider,
			Domain:       addr.Domain,
			Tier:         verdict.TierSMTP,
			Error:        cfg.Notes,
			VerifiedAt:   nowUTC(),
		}, ""
	}

	release := d.acquireSMTP(ctx, facts.Domain)
	defer release()

	isCatchAll := facts.CatchAll
	if cfg.DoCatchAll && facts.CatchAll == verdict.CatchAllUnknown {
		if state, err := d.catchAll.Check(ctx, addr.Domain, facts.MXHosts); err == nil {
			isCatchAll = state
			facts.CatchAll = state
			facts.CatchAllCheckedAt = nowUTC()
			_ = d.store.PutDomainFacts(ctx, facts)
		}
	}

	if isCatchAll == verdict.CatchAllYes {
		return verdict.Verdict{
			Normalized:   addr.Normalized,
			Reachability: verdict.Risky,
			Deliverable:  verdict.BoolPtr(true),
			CatchAll:     true,
			Disposable:   flags.Disposable,
			Role:         flags.Role,
			Free:         flags.Free,
			MXHost:       facts.MXHosts[0].Host,
			Provider:     facts.Provider,
			Domain:       addr.Domain,
			Tier:         verdict.TierSMTP,
			VerifiedAt:   nowUTC(),
		}, ""
	}

	result := d.probe.CheckRecipient(ctx, facts.MXHosts, addr.Normalized)
	if result.Err != nil {
		return verdict.Verdict{
			Normalized:   addr.Normalized,
			Reachability: verdict.Unknown,
			Disposable:   flags.Disposable,
			Role:         flags.Role,
			Free:         flags.Free,
			Provider:     facts.Provider,
			Domain:       addr.Domain,
			Error:        result.Err.Error(),
			Tier:         verdict.TierSMTP,
			VerifiedAt:   nowUTC(),
		}, ""
	}

	reachability := verdict.Safe
	if !result.Accepted {
		reachability = reachabilityFromSMTPReason(string(result.Reason))
	}

	v := verdict.Verdict{
		Normalized:   addr.Normalized,
		Reachability: reachability,
		Deliverable:  verdict.BoolPtr(result.Accepted),
		Disposable:   flags.Disposable,
		Role:         flags.Role,
		Free:         flags.Free,
		MXHost:       result.HostUsed,
		SMTPCode:     result.Code,
		SMTPMessage:  result.Message,
		Provider:     facts.Provider,
		Domain:       addr.Domain,
		Tier:         verdict.TierSMTP,
		VerifiedAt:   nowUTC(),
	}
	return v, string(result.Reason)
}

// youngDomainDays is how recently a domain must have been registered for
// its WHOIS age to count against an otherwise-confirmed enrichment hit.
const youngDomainDays = 30

// tierPattern scores the local part's name-pattern shape alone — no
// external provider is consulted. A role account stops the cascade at
// risky; a strong pattern on a corporate-class domain stops it at safe.
// Anything else in the plausible mid-confidence band is hedged off to the
// enrichment tier instead of decided here.
func (d *Dispatcher) tierPattern(addr verdict.Address, flags verdict.Flags, facts verdict.DomainFacts, base verdict.Verdict) (result verdict.Verdict, proceedToEnrichment bool, score enrich.PatternScore) {
	prior, isCorporate := corporateSignal(facts.Domain, facts.Provider, facts.ProviderPrior)
	roleLike := flags.Role
	if !roleLike {
		roleLike, _ = enrich.IsRoleKeyword(addr.Local)
	}
	score = enrich.ScorePattern(addr.Local, roleLike, prior, isCorporate)

	result = base
	result.Tier = verdict.TierPattern
	result.Error = score.Reason
	result.VerifiedAt = nowUTC()

	switch {
	case roleLike:
		result.Reachability = verdict.Risky
		result.Deliverable = nil
		return result, false, score
	case isCorporate && score.Status == enrich.StatusValid && score.Confidence >= 0.88:
		result.Reachability = verdict.Safe
		result.Deliverable = verdict.BoolPtr(true)
		return result, false, score
	case score.Confidence >= 0.70 && score.Confidence <= 0.88:
		return result, true, score
	default:
		result.Reachability = verdict.Unknown
		result.Deliverable = nil
		return result, false, score
	}
}

// tierEnrich runs the cheap-then-expensive provider waterfall for a
// mid-confidence, non-role pattern match. A confirmed candidate on a
// domain old enough to trust is handed to the bounded SMTP re-probe
// (tier 6); anything else terminates the cascade right here.
func (d *Dispatcher) tierEnrich(ctx context.Context, addr verdict.Address, flags verdict.Flags, facts verdict.DomainFacts, cfg provider.Config, patternVerdict verdict.Verdict) verdict.Verdict {
	select {
	case d.enrichment <- struct{}{}:
		defer func() { <-d.enrichment }()
	case <-ctx.Done():
		return patternVerdict
	}

	v := patternVerdict
	v.Tier = verdict.TierEnrich
	v.VerifiedAt = nowUTC()

	name := enrich.ExtractName(addr.Local)
	found, source := d.enricher.Lookup(ctx, addr.Local, addr.Domain)

	if !found.Found {
		v.Reachability = verdict.Unknown
		v.Deliverable = nil
		v.Error = "no_enrichment_candidate"
		return v
	}

	if !enrich.FuzzyNameMatches(found.Name, name.First, name.Last) {
		v.Reachability = verdict.Risky
		v.Deliverable = nil
		v.Error = "enrichment_name_mismatch:" + source
		return v
	}

	if age := d.enricher.DomainAgeDays(addr.Domain); age >= 0 && age < youngDomainDays {
		v.Reachability = verdict.Risky
		v.Deliverable = nil
		v.Error = "enrichment_candidate_young_domain:" + source
		return v
	}

	return d.tierReverify(ctx, addr, flags, facts, cfg, source)
}

// tierReverify repeats the SMTP tier exactly once against the enriched
// address. Only a 250 yields safe; an explicit rejection still yields
// invalid; anything else inconclusive is recorded as the risky-enriched
// sub-state rather than collapsing back into plain risky or unknown,
// unless the operator has configured enrichment-confirmed inconclusives
// to resolve as safe instead.
func (d *Dispatcher) tierReverify(ctx context.Context, addr verdict.Address, flags verdict.Flags, facts verdict.DomainFacts, cfg provider.Config, enrichedBy string) verdict.Verdict {
	v, _ := d.tierSMTP(ctx, addr, flags, facts, cfg)
	v.Tier = verdict.TierReverify
	v.Error = "enriched_by:" + enrichedBy

	switch v.Reachability {
	case verdict.Safe, verdict.Invalid:
		// a 250 confirms the hit; an explicit rejection overrides it.
	default:
		if d.cfg.EnrichmentInconclusiveAsRisky {
			v.Reachability = verdict.RiskyEnriched
			v.Deliverable = nil
		} else {
			v.Reachability = verdict.Safe
			v.Deliverable = verdict.BoolPtr(true)
		}
	}
	return v
}

// scheduleStaleRefresh re-runs the full cascade for an address whose
// cached verdict has aged out of the freshness window, in the background,
// so the stale record a caller just received gets replaced before the
// next lookup rather than making this request wait on it.
func (d *Dispatcher) scheduleStaleRefresh(addr verdict.Address, flags verdict.Flags) {
	select {
	case d.enrichment <- struct{}{}:
	default:
		return // enrichment/refresh capacity exhausted, skip rather than block
	}

	go func() {
		defer func() { <-d.enrichment }()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.RequestBudgetFull)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				sentry.CaptureException(recoveredError(r))
			}
		}()

		d.verifyLive(ctx, addr, flags)
	}()
}

// scheduleBackgroundConfirm queues a background SMTP re-check after a
// fast-tier hit — the caller already has an answer, this just tightens
// it for the next lookup.
func (d *Dispatcher) scheduleBackgroundConfirm(addr verdict.Address, flags verdict.Flags, facts verdict.DomainFacts) {
	select {
	case d.enrichment <- struct{}{}:
	default:
		return // enrichment/refresh capacity exhausted, skip rather than block
	}

	go func() {
		defer func() { <-d.enrichment }()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SMTPProbeBudget)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				sentry.CaptureException(recoveredError(r))
			}
		}()

		cfg := providerConfig(facts.Provider)
		v, _ := d.tierSMTP(ctx, addr, flags, facts, cfg)
		if err := d.store.PutVerdict(ctx, v); err != nil {
			logrus.WithError(err).Warn("background confirmation failed to persist")
		}
	}()
}

func (d *Dispatcher) acquireSMTP(ctx context.Context, domain string) func() {
	hostSem := d.hostSemaphore(domain)

	select {
	case d.globalSMTP <- struct{}{}:
	case <-ctx.Done():
		return func() {}
	}
	select {
	case hostSem <- struct{}{}:
	case <-ctx.Done():
		<-d.globalSMTP
		return func() {}
	}

	return func() {
		<-hostSem
		<-d.globalSMTP
	}
}

func (d *Dispatcher) hostSemaphore(domain string) chan struct{} {
	d.hostMu.Lock()
	defer d.hostMu.Unlock()
	if sem, ok := d.perHostSMTP[domain]; ok {
		return sem
	}
	sem := make(chan struct{}, d.cfg.PerHostSMTPConcurrency)
	d.perHostSMTP[domain] = sem
	return sem
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

type recoveredPanic struct{ v interface{} }

func (r recoveredPanic) Error() string { return "recovered panic in background worker" }

func recoveredError(v interface{}) error {
	return recoveredPanic{v: v}
}
