package dispatcher

import (
	"github.com/kadenwood/verifyd/internal/enrich"
	"github.com/kadenwood/verifyd/internal/provider"
	"github.com/kadenwood/verifyd/internal/verdict"
)

// fastTierConfidence scores how trustworthy a syntax+DNS+provider-only
// verdict is without ever touching SMTP. It starts from a fixed base of
// 0.5 and adds per-provider and per-flag adjustments; the classifier's
// ProviderPrior is not part of the score.
func fastTierConfidence(flags verdict.Flags, p verdict.Provider) float64 {
	confidence := 0.5

	switch p {
	case verdict.ProviderGmail, verdict.ProviderGoogleWorkspace:
		confidence += 0.3
	case verdict.ProviderMicrosoft365:
		confidence += 0.2
	}

	if flags.Free {
		confidence += 0.1
	}
	if !flags.Disposable && !flags.Role {
		confidence += 0.1
	}
	if flags.Disposable {
		confidence -= 0.2
	}
	if p == verdict.ProviderGeneric {
		confidence -= 0.1
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// inferFastReachability guesses a Reachability from syntax/DNS/provider
// signals alone. It's only trusted when fastTierConfidence clears the
// configured threshold.
func inferFastReachability(flags verdict.Flags, p verdict.Provider) verdict.Reachability {
	if flags.Disposable {
		return verdict.Risky
	}
	if flags.Role {
		return verdict.Risky
	}

	switch p {
	case verdict.ProviderGmail, verdict.ProviderGoogleWorkspace, verdict.ProviderMicrosoft365, verdict.ProviderYahoo:
		return verdict.Safe
	}

	if flags.Free {
		return verdict.Safe
	}

	return verdict.Unknown
}

// reachabilityFromSMTPReason maps a non-accepted RCPT's classified reason
// onto the coarse Reachability the caller sees, following the mapping
// table. relay_denied says nothing about the recipient — it means the
// probing host isn't authorized to relay there — so it maps to unknown,
// not invalid.
func reachabilityFromSMTPReason(reason string) verdict.Reachability {
	switch reason {
	case "mailbox_unknown":
		return verdict.Invalid
	case "disabled", "policy_block":
		return verdict.Risky
	case "mailbox_full", "greylist", "relay_denied":
		return verdict.Unknown
	default:
		return verdict.Unknown
	}
}

// providerConfig is a thin indirection point so tests can stub provider
// strategy lookups without constructing real MX data.
var providerConfig = provider.ConfigFor

// isCorporateProvider reports whether a provider classification indicates
// business-hosted mail (a self-hosted domain, Workspace/365 tenant, or a
// filtering gateway in front of one) rather than a consumer webmail
// service — the "corporate provider" condition the pattern tier checks
// before trusting a strong name pattern on its own.
func isCorporateProvider(p verdict.Provider) bool {
	switch p {
	case verdict.ProviderGmail, verdict.ProviderYahoo, verdict.ProviderOutlookConsumer, verdict.ProviderICloud:
		return false
	default:
		return true
	}
}

// corporateSignal picks the prior ScorePattern combines with a name match:
// a short list of known corporate domains takes precedence, otherwise any
// business-hosted provider classification counts as corporate at its own
// classification prior.
func corporateSignal(domain string, p verdict.Provider, providerPrior float64) (float64, bool) {
	if prior, ok := enrich.KnownCorporateDomain(domain); ok {
		return prior, true
	}
	if isCorporateProvider(p) {
		return providerPrior, true
	}
	return 0, false
}
