// Package provider classifies a domain's mailbox provider from its MX
// hostnames and exposes the per-provider verification strategy (whether
// to probe SMTP, whether to probe catch-all, whether to auto-mark risky)
// that the dispatcher consults before running later tiers.
package provider

import (
	"strings"

	"github.com/kadenwood/verifyd/internal/verdict"
)

// mxSignatures maps an MX hostname substring to the provider it belongs to.
// Order matters: more specific signatures are checked before generic ones.
var mxSignatures = []struct {
	substr   string
	provider verdict.Provider
	prior    float64
}{
	{"aspmx.l.google.com", verdict.ProviderGoogleWorkspace, 0.97},
	{"google.com", verdict.ProviderGmail, 0.95},
	{"googlemail.com", verdict.ProviderGmail, 0.95},
	{"mail.protection.outlook.com", verdict.ProviderMicrosoft365, 0.96},
	{"protection.outlook.com", verdict.ProviderMicrosoft365, 0.96},
	{"outlook.com", verdict.ProviderMicrosoft365, 0.93},
	{"hotmail.com", verdict.ProviderOutlookConsumer, 0.90},
	{"yahoodns.net", verdict.ProviderYahoo, 0.93},
	{"yahoo.com", verdict.ProviderYahoo, 0.90},
	{"icloud.com", verdict.ProviderICloud, 0.92},
	{"pphosted.com", verdict.ProviderProofpoint, 0.90},
	{"proofpoint.com", verdict.ProviderProofpoint, 0.92},
	{"mimecast.com", verdict.ProviderMimecast, 0.90},
}

// Config captures what the dispatcher should or shouldn't do for a
// given provider's mailboxes.
type Config struct {
	Provider   verdict.Provider
	DoSMTP     bool
	DoCatchAll bool
	MarkRisky  bool
	Notes      string
}

var configs = map[verdict.Provider]Config{
	verdict.ProviderGmail: {
		Provider: verdict.ProviderGmail, DoSMTP: true, DoCatchAll: false,
		Notes: "Gmail returns a definitive 550 for nonexistent addresses",
	},
	verdict.ProviderGoogleWorkspace: {
		Provider: verdict.ProviderGoogleWorkspace, DoSMTP: true, DoCatchAll: false,
		Notes: "Google Workspace also returns definitive 550s",
	},
	verdict.ProviderYahoo: {
		Provider: verdict.ProviderYahoo, DoSMTP: true, DoCatchAll: true,
		Notes: "standard SMTP verification",
	},
	verdict.ProviderMicrosoft365: {
		Provider: verdict.ProviderMicrosoft365, DoSMTP: true, DoCatchAll: true,
		Notes: "many M365 B2B domains have catch-all enabled",
	},
	verdict.ProviderOutlookConsumer: {
		Provider: verdict.ProviderOutlookConsumer, DoSMTP: false, DoCatchAll: false, MarkRisky: true,
		Notes: "consumer Outlook/Hotmail SMTP responses are unreliable for verification",
	},
	verdict.ProviderICloud: {
		Provider: verdict.ProviderICloud, DoSMTP: true, DoCatchAll: true,
		Notes: "standard SMTP verification",
	},
	verdict.ProviderProofpoint: {
		Provider: verdict.ProviderProofpoint, DoSMTP: true, DoCatchAll: true, MarkRisky: true,
		Notes: "filtering gateway in front of the real mailbox, catch-all probe recommended",
	},
	verdict.ProviderMimecast: {
		Provider: verdict.ProviderMimecast, DoSMTP: true, DoCatchAll: true, MarkRisky: true,
		Notes: "filtering gateway in front of the real mailbox, catch-all probe recommended",
	},
	verdict.ProviderGeneric: {
		Provider: verdict.ProviderGeneric, DoSMTP: true, DoCatchAll: true,
		Notes: "full SMTP and catch-all probe",
	},
}

// Classify inspects MX hostnames and returns the best-matching provider with
// a confidence prior. An empty or unrecognized MX set returns
// verdict.ProviderGeneric with a low prior.
func Classify(mxHosts []verdict.MXHost) (verdict.Provider, float64) {
	for _, host := range mxHosts {
		lower := strings.ToLower(host.Host)
		for _, sig := range mxSignatures {
			if strings.Contains(lower, sig.substr) {
				return sig.provider, sig.prior
			}
		}
	}
	return verdict.ProviderGeneric, 0.50
}

// ConfigFor returns the verification strategy for a provider, falling back
// to the generic strategy for anything unrecognized.
func ConfigFor(p verdict.Provider) Config {
	if c, ok := configs[p]; ok {
		return c
	}
	return configs[verdict.ProviderGeneric]
}
