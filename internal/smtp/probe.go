// Package smtp runs the RCPT-only SMTP probe: it dials a
// destination mail exchanger, speaks EHLO/STARTTLS/MAIL FROM/RCPT TO, and
// classifies the reply — it never sends DATA and never composes a real
// message. Multiple MX hosts are dialed concurrently and the first to
// answer wins; egress can optionally be routed through a SOCKS5 proxy.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"h12.io/socks"

	"github.com/kadenwood/verifyd/internal/verdict"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// smtpPort is the only port the probe ever dials. Submission ports
// (587/465) require authentication and can't be used for an anonymous
// RCPT probe, so rather than falling back across several ports the probe only
// ever tries 25.
const smtpPort = ":25"

// Result is the outcome of probing one recipient against one domain.
type Result struct {
	HostUsed    string
	Accepted    bool
	Code        int
	Message     string
	Reason      Reason
	Err         error
}

// Probe dials the given MX hosts concurrently and keeps the first
// connection that succeeds, whatever its MX preference; it performs the
// handshake once per connection and checks rcpt. FromAddress and
// HeloDomain identify the probing host to the remote server.
type Probe struct {
	HeloDomain     string
	FromAddress    string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	ProxyURI       string
}

// New builds a Probe with the identity and timeouts the dispatcher's config
// supplies.
func New(heloDomain, fromAddress string, connectTimeout, commandTimeout time.Duration, proxyURI string) *Probe {
	return &Probe{
		HeloDomain:     heloDomain,
		FromAddress:    fromAddress,
		ConnectTimeout: connectTimeout,
		CommandTimeout: commandTimeout,
		ProxyURI:       proxyURI,
	}
}

// CheckRecipient probes a single recipient address against a domain's MX
// hosts over the first connection dialAny establishes. The reply from
// that one host is the result; other hosts are not asked after it answers.
func (p *Probe) CheckRecipient(ctx context.Context, hosts []verdict.MXHost, rcptTo string) Result {
	client, hostUsed, err := p.dialAny(ctx, hosts)
	if err != nil {
		return Result{Err: err}
	}
	defer client.Close()

	if err := p.handshake(client); err != nil {
		return Result{HostUsed: hostUsed, Err: err}
	}

	return p.rcpt(client, hostUsed, rcptTo)
}

// CheckBatch probes several recipients on the same domain over one
// connection, since SMTP RCPT replies are independent per recipient but the
// handshake only needs doing once — this is what lets batch
// verification avoid re-dialing per address.
func (p *Probe) CheckBatch(ctx context.Context, hosts []verdict.MXHost, recipients []string) ([]Result, error) {
	client, hostUsed, err := p.dialAny(ctx, hosts)
	if err != nil {
		results := make([]Result, len(recipients))
		for i := range results {
			results[i] = Result{Err: err}
		}
		return results, err
	}
	defer client.Close()

	if err := p.handshake(client); err != nil {
		results := make([]Result, len(recipients))
		for i := range results {
			results[i] = Result{HostUsed: hostUsed, Err: err}
		}
		return results, nil
	}

	results := make([]Result, len(recipients))
	for i, rcpt := range recipients {
		results[i] = p.rcpt(client, hostUsed, rcpt)
	}
	return results, nil
}

func (p *Probe) handshake(client *smtp.Client) error {
	if err := client.Hello(p.HeloDomain); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	// Cert validation is skipped deliberately: the probe never exchanges
	// anything beyond envelope commands, so there's nothing a MITM could
	// read, and plenty of mail servers present certs that don't chain to a
	// public root.
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if err := client.Mail(p.FromAddress); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	return nil
}

func (p *Probe) rcpt(client *smtp.Client, hostUsed, address string) Result {
	err := client.Rcpt(address)
	if err == nil {
		return Result{HostUsed: hostUsed, Accepted: true, Code: 250}
	}

	code, message := splitSMTPError(err)
	resp := ClassifyReply(code, message)
	return Result{
		HostUsed: hostUsed,
		Accepted: false,
		Code:     code,
		Message:  message,
		Reason:   resp.Reason,
	}
}

// splitSMTPError pulls the 3-digit status code off a net/smtp error's
// string form; multiline replies are prefixed with a dash on continuation
// lines, which gets stripped here too.
func splitSMTPError(err error) (int, string) {
	s := err.Error()
	if len(s) < 4 {
		return 0, s
	}
	code, convErr := strconv.Atoi(s[:3])
	if convErr != nil {
		return 0, s
	}
	msg := strings.TrimSpace(s[3:])
	msg = strings.TrimPrefix(msg, "-")
	msg = strings.TrimSpace(msg)
	return code, msg
}

// dialAny races a connection attempt against every MX host concurrently
// and returns the first one to succeed, taking pre-resolved hosts from
// the mx package's cache rather than re-resolving on every call.
func (p *Probe) dialAny(ctx context.Context, hosts []verdict.MXHost) (*smtp.Client, string, error) {
	if len(hosts) == 0 {
		return nil, "", errors.New("smtp: no MX hosts to dial")
	}

	type outcome struct {
		client *smtp.Client
		host   string
		err    error
	}

	ch := make(chan outcome, len(hosts))
	var mu sync.Mutex
	done := false

	for _, h := range hosts {
		host := h.Host
		go func() {
			client, err := p.dialOne(ctx, host)
			mu.Lock()
			defer mu.Unlock()
			if done {
				if client != nil {
					client.Close()
				}
				return
			}
			if err == nil {
				done = true
			}
			ch <- outcome{client: client, host: host, err: err}
		}()
	}

	var errs []error
	for i := 0; i < len(hosts); i++ {
		res := <-ch
		if res.err == nil {
			return res.client, res.host, nil
		}
		errs = append(errs, res.err)
	}
	return nil, "", fmt.Errorf("smtp: all %d MX hosts failed, first error: %w", len(hosts), errs[0])
}

func (p *Probe) dialOne(ctx context.Context, host string) (*smtp.Client, error) {
	addr := host + smtpPort

	dialCtx, cancel := context.WithTimeout(ctx, p.ConnectTimeout)
	defer cancel()

	var conn net.Conn
	var err error

	if p.ProxyURI != "" {
		conn, err = socks.Dial(p.ProxyURI)("tcp", addr)
	} else {
		d := net.Dialer{}
		conn, err = d.DialContext(dialCtx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	hostOnly, _, _ := net.SplitHostPort(addr)
	client, err := smtp.NewClient(conn, hostOnly)
	if err != nil {
		conn.Close()
		return nil, err
	}

	deadline := time.Now().Add(p.CommandTimeout)
	_ = conn.SetDeadline(deadline)

	return client, nil
}

// RandomLocalPart generates an unpredictable local part for catch-all
// probing, parameterized on length so the catch-all package can ask for
// its required minimum character count.
func RandomLocalPart(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b)
}
