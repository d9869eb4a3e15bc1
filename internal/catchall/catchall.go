// Package catchall probes whether a domain accepts mail for any local
// part by issuing a single RCPT TO against an address nobody could have
// guessed, and reporting a CatchAllState (yes/no/unknown, or unreachable
// when the probe itself fails) rather than a bare bool, since "the probe
// itself failed" is a meaningfully different outcome from "the domain
// answered no".
package catchall

import (
	"context"
	"fmt"

	"github.com/kadenwood/verifyd/internal/smtp"
	"github.com/kadenwood/verifyd/internal/verdict"
)

// minRandomLocalLength sets how unpredictable the probed local part must
// be, to keep a false catch-all reading astronomically unlikely.
const minRandomLocalLength = 16

// Prober runs a single catch-all probe per call; callers are responsible
// for memoizing per-domain results (the dispatcher does this through the
// store's domain-facts side).
type Prober struct {
	probe *smtp.Probe
}

// New builds a Prober that reuses the given SMTP probe for its connection.
func New(probe *smtp.Probe) *Prober {
	return &Prober{probe: probe}
}

// Check probes domain with an unguessable local part and reports whether
// the mail server appears to accept anything sent to it.
func (p *Prober) Check(ctx context.Context, domain string, hosts []verdict.MXHost) (verdict.CatchAllState, error) {
	randomAddr := fmt.Sprintf("%s@%s", smtp.RandomLocalPart(minRandomLocalLength), domain)

	result := p.probe.CheckRecipient(ctx, hosts, randomAddr)
	if result.Err != nil {
		return verdict.CatchAllUnreachable, result.Err
	}

	if result.Accepted {
		return verdict.CatchAllYes, nil
	}

	// A definitive "mailbox doesn't exist" for a random address that never
	// existed is exactly what a non-catch-all server is supposed to say.
	if result.Reason == smtp.ReasonMailboxUnknown {
		return verdict.CatchAllNo, nil
	}

	// Anything else (greylist, policy block, disabled) doesn't tell us
	// whether the domain is catch-all, so it stays unknown rather than
	// being forced into yes/no.
	return verdict.CatchAllUnknown, nil
}
