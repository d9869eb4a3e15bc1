package dispatcher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kadenwood/verifyd/internal/address"
)

// refreshMargin is how far ahead of a verdict's expiry the worker tries to
// refresh it, so a caller practically never observes the cache-miss path
// for an address that's been queried recently.
const refreshMargin = time.Hour

// RefreshWorker periodically re-verifies verdicts that are about to age
// out of the freshness window, so a caller's next lookup is more likely
// to hit the cache tier instead of falling all the way through to SMTP.
// The scan-then-reverify body runs the same live cascade (verifyLive)
// that scheduleStaleRefresh runs, just on a schedule and without going
// through the cache tier first.
type RefreshWorker struct {
	dispatcher *Dispatcher
	interval   time.Duration
	batchSize  int
}

// NewRefreshWorker builds a worker that wakes on the given interval.
func NewRefreshWorker(d *Dispatcher, interval time.Duration, batchSize int) *RefreshWorker {
	return &RefreshWorker{dispatcher: d, interval: interval, batchSize: batchSize}
}

// Start runs until ctx is canceled, re-verifying stale-but-not-yet-expired
// verdicts on each tick.
func (w *RefreshWorker) Start(ctx context.Context) {
	time.Sleep(5 * time.Second)
	logrus.Info("refresh worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("refresh worker shutting down")
			return
		case <-ticker.C:
			w.refreshDue(ctx)
		}
	}
}

func (w *RefreshWorker) refreshDue(ctx context.Context) {
	window := time.Duration(w.dispatcher.cfg.VerdictFreshnessDays) * 24 * time.Hour
	cutoff := time.Now().Add(-(window - refreshMargin))

	due, err := w.dispatcher.store.ScanDueForRefresh(ctx, cutoff, w.batchSize)
	if err != nil {
		logrus.WithError(err).Warn("refresh worker scan failed")
		return
	}
	if len(due) == 0 {
		return
	}

	logrus.WithField("count", len(due)).Debug("refresh worker re-verifying stale verdicts")
	for _, v := range due {
		addr, flags, err := address.Normalize(v.Normalized)
		if err != nil {
			logrus.WithError(err).WithField("address", v.Normalized).Warn("background refresh failed")
			continue
		}
		vctx, cancel := context.WithTimeout(ctx, w.dispatcher.cfg.RequestBudgetFull)
		w.dispatcher.verifyLive(vctx, addr, flags)
		cancel()
	}
}
