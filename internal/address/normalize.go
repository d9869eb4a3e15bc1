// Package address implements the syntax/normalization/classification
// stage: it turns a raw input string into a canonical Address plus the
// static Flags (role/free/disposable) that every later tier reads.
package address

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/hbollon/go-edlib"
	"golang.org/x/net/idna"

	"github.com/kadenwood/verifyd/internal/verdict"
)

const (
	maxTotalLength  = 254
	maxLocalLength  = 64
	maxDomainLength = 255

	typoMaxDistance = 2
)

var (
	// localPartRe is the practical RFC-5322 subset most real-world
	// validators settle for: no attempt at quoted strings or comments,
	// just the characters mail providers actually accept.
	localPartRe = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+$`)
	domainLabelRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
)

// ErrInvalidSyntax is returned when the address fails the practical RFC-5322
// subset checks before any network call would even be attempted.
type ErrInvalidSyntax struct {
	Reason string
}

func (e *ErrInvalidSyntax) Error() string {
	return fmt.Sprintf("invalid address syntax: %s", e.Reason)
}

// Normalize validates and canonicalizes a raw email address, applying
// length caps, gmail-specific stripping rules, and the common
// syntax-validation rules real mail servers actually enforce.
func Normalize(raw string) (verdict.Address, verdict.Flags, error) {
	addr := verdict.Address{Raw: raw}
	flags := verdict.Flags{}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return addr, flags, &ErrInvalidSyntax{Reason: "empty address"}
	}
	if len(trimmed) > maxTotalLength {
		return addr, flags, &ErrInvalidSyntax{Reason: "address exceeds 254 characters"}
	}

	at := strings.LastIndexByte(trimmed, '@')
	if at <= 0 || at == len(trimmed)-1 {
		return addr, flags, &ErrInvalidSyntax{Reason: "missing or misplaced @"}
	}

	local := trimmed[:at]
	domain := trimmed[at+1:]

	if len(local) > maxLocalLength {
		return addr, flags, &ErrInvalidSyntax{Reason: "local part exceeds 64 characters"}
	}
	if len(domain) > maxDomainLength {
		return addr, flags, &ErrInvalidSyntax{Reason: "domain exceeds 255 characters"}
	}
	if !localPartRe.MatchString(local) || strings.Contains(local, "..") {
		return addr, flags, &ErrInvalidSyntax{Reason: "local part contains invalid characters"}
	}

	domain = strings.ToLower(domain)
	asciiDomain, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return addr, flags, &ErrInvalidSyntax{Reason: "domain is not a valid IDNA hostname: " + err.Error()}
	}
	if err := validateDomainLabels(asciiDomain); err != nil {
		return addr, flags, err
	}

	if err := checkmail.ValidateFormat(local + "@" + asciiDomain); err != nil {
		return addr, flags, &ErrInvalidSyntax{Reason: err.Error()}
	}

	canonicalLocal, canonicalDomain := canonicalize(local, asciiDomain)

	addr.Local = local
	addr.Domain = canonicalDomain
	addr.Normalized = canonicalLocal + "@" + canonicalDomain

	flags.SyntacticOK = true
	flags.Role = IsRole(strings.ToLower(local))
	flags.Free = IsFree(canonicalDomain)
	flags.Disposable = IsDisposable(canonicalDomain)

	return addr, flags, nil
}

func validateDomainLabels(domain string) error {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return &ErrInvalidSyntax{Reason: "domain has no TLD"}
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 || !domainLabelRe.MatchString(label) {
			return &ErrInvalidSyntax{Reason: "domain label invalid: " + label}
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 || regexp.MustCompile(`^[0-9]+$`).MatchString(tld) {
		return &ErrInvalidSyntax{Reason: "domain TLD invalid: " + tld}
	}
	return nil
}

// canonicalize applies gmail-family aliasing: googlemail.com folds to
// gmail.com, and gmail ignores dots and plus-addressing in the local
// part when comparing mailboxes for identity (not when talking to the
// wire — only for dedup keys like Normalized).
func canonicalize(local, domain string) (string, string) {
	if domain == "googlemail.com" {
		domain = "gmail.com"
	}

	if domain != "gmail.com" {
		return local, domain
	}

	if i := strings.IndexByte(local, '+'); i >= 0 {
		local = local[:i]
	}
	local = strings.ReplaceAll(local, ".", "")
	return strings.ToLower(local), domain
}

// SuggestTypo checks domain against the well-known provider list and
// returns the closest match when it's a plausible fat-fingered typo
// (Levenshtein distance <= 2 and not already an exact match).
func SuggestTypo(domain string) (string, bool) {
	if domain == "" {
		return "", false
	}
	best := ""
	bestDist := typoMaxDistance + 1
	for _, candidate := range typoCandidates {
		if candidate == domain {
			return "", false
		}
		dist := edlib.LevenshteinDistance(domain, candidate)
		if dist < bestDist {
			bestDist = dist
			best = candidate
		}
	}
	if bestDist <= typoMaxDistance {
		return best, true
	}
	return "", false
}
