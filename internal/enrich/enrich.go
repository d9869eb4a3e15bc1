package enrich

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"
	"github.com/likexian/whois"
	"github.com/sirupsen/logrus"
)

// roleKeywords extends the role-account detection used by ScorePattern with
// substring matches against a curated role-account keyword list
// (that list checks "contains", not "equals", unlike the stricter role table
// in internal/address).
var roleKeywords = []string{
	"info", "admin", "support", "sales", "contact", "help", "service",
	"team", "hello", "hi", "mail", "webmaster", "noreply", "no-reply",
}

// corporateDomains lists large, well-known corporate domains that get a
// confidence boost when a plausible name pattern is present.
var corporateDomains = map[string]float64{
	"apple.com": 0.92, "microsoft.com": 0.92, "google.com": 0.92,
	"amazon.com": 0.92, "facebook.com": 0.92, "meta.com": 0.92,
}

// IsRoleKeyword reports whether local contains (not just equals) a known
// role keyword, the substring-match rule the enrichment stage uses
// independently of internal/address's exact-match role table.
func IsRoleKeyword(local string) (bool, string) {
	local = strings.ToLower(local)
	for _, kw := range roleKeywords {
		if strings.Contains(local, kw) {
			return true, kw
		}
	}
	return false, ""
}

// Provider is the capability interface a cheap or expensive external
// person-lookup service implements. Cheap providers (e.g. a web-search
// API) and expensive providers (e.g. a contact-enrichment API) share this
// shape so the waterfall in Enricher.Lookup doesn't care which it's
// calling.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, email, firstNameHint, lastNameHint string) (Found, error)
}

// Found is what a Provider reports back.
type Found struct {
	Found      bool
	Name       string
	Confidence float64
}

// HTTPProvider is a generic JSON-over-HTTP Provider: the concrete
// request/response mapping is supplied by the caller so one type serves
// both the cheap and expensive slots in Config.
type HTTPProvider struct {
	ProviderName string
	Endpoint     string
	APIKey       string
	Client       *http.Client
	BuildRequest func(endpoint, apiKey, email, firstHint, lastHint string) (*http.Request, error)
	ParseResponse func(body []byte) (Found, error)
}

func (h *HTTPProvider) Name() string { return h.ProviderName }

func (h *HTTPProvider) Lookup(ctx context.Context, email, firstHint, lastHint string) (Found, error) {
	req, err := h.BuildRequest(h.Endpoint, h.APIKey, email, firstHint, lastHint)
	if err != nil {
		return Found{}, err
	}
	req = req.WithContext(ctx)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Found{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Found{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Found{}, err
	}
	return h.ParseResponse(body)
}

// Enricher runs the cheap-then-expensive waterfall over the external
// person-lookup providers and resolves the WHOIS domain-age signal that
// feeds the dispatcher's trust in whatever a provider reports.
type Enricher struct {
	Cheap      Provider
	Expensive  Provider
	WhoisLookup func(domain string) (string, error)
}

// NewEnricher wires the configured providers; either may be nil to skip
// that stage of the waterfall.
func NewEnricher(cheap, expensive Provider) *Enricher {
	return &Enricher{
		Cheap:       cheap,
		Expensive:   expensive,
		WhoisLookup: func(domain string) (string, error) { return whois.Whois(domain) },
	}
}

// KnownCorporateDomain reports whether domain is on the short curated list
// of large corporate domains that get a fixed confidence boost when a
// plausible name pattern is present, along with that boost.
func KnownCorporateDomain(domain string) (float64, bool) {
	prior, ok := corporateDomains[domain]
	return prior, ok
}

// Lookup runs the cheap-then-expensive provider waterfall for one address,
// returning whichever candidate is found and the provider name that
// supplied it ("" if neither provider returned a match). Pattern scoring
// is ScorePattern's job, not this one — Lookup only ever touches external
// providers.
func (e *Enricher) Lookup(ctx context.Context, local, domain string) (Found, string) {
	name := ExtractName(local)
	return e.waterfall(ctx, local+"@"+domain, name.First, name.Last)
}

// DomainAgeDays resolves a best-effort WHOIS creation-date signal for
// domain, or -1 if none could be determined. A very young domain lowers
// trust in any name a provider reports.
func (e *Enricher) DomainAgeDays(domain string) int {
	return e.domainAgeDays(domain)
}

func (e *Enricher) waterfall(ctx context.Context, email, firstHint, lastHint string) (Found, string) {
	if e.Cheap != nil {
		if found, err := e.Cheap.Lookup(ctx, email, firstHint, lastHint); err == nil && found.Found {
			return found, e.Cheap.Name()
		} else if err != nil {
			logrus.WithError(err).WithField("provider", e.Cheap.Name()).Debug("enrichment provider lookup failed")
		}
	}
	if e.Expensive != nil {
		if found, err := e.Expensive.Lookup(ctx, email, firstHint, lastHint); err == nil && found.Found {
			return found, e.Expensive.Name()
		} else if err != nil {
			logrus.WithError(err).WithField("provider", e.Expensive.Name()).Debug("enrichment provider lookup failed")
		}
	}
	return Found{}, ""
}

func (e *Enricher) domainAgeDays(domain string) int {
	if e.WhoisLookup == nil {
		return -1
	}
	raw, err := e.WhoisLookup(domain)
	if err != nil {
		return -1
	}
	return parseWhoisAgeDays(raw)
}

// parseWhoisAgeDays scans raw WHOIS text for a creation-date line and
// returns the age in days, or -1 if none is found. WHOIS output format
// varies wildly by registry, so this only looks for the handful of label
// spellings that are close to universal.
func parseWhoisAgeDays(raw string) int {
	lines := strings.Split(raw, "\n")
	labels := []string{"creation date:", "created:", "created on:", "registered:"}
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, label := range labels {
			if idx := strings.Index(lower, label); idx >= 0 {
				value := strings.TrimSpace(line[idx+len(label):])
				for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
					if t, err := time.Parse(layout, firstToken(value)); err == nil {
						return int(time.Since(t).Hours() / 24)
					}
				}
			}
		}
	}
	return -1
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}

// FuzzyNameMatches uses Jaro-Winkler similarity to tolerate minor
// spelling/formatting differences between a provider's reported full
// name and the name extracted from the local part.
func FuzzyNameMatches(reportedName, first, last string) bool {
	if first == "" || last == "" {
		return false
	}
	reported := strings.ToLower(reportedName)
	hasFirst, _ := edlib.StringsSimilarity(strings.ToLower(first), reported, edlib.JaroWinkler)
	hasLast, _ := edlib.StringsSimilarity(strings.ToLower(last), reported, edlib.JaroWinkler)
	return hasFirst >= 0.75 || hasLast >= 0.75 || strings.Contains(reported, strings.ToLower(first)) || strings.Contains(reported, strings.ToLower(last))
}
