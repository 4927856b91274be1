/*
reloader.go - Periodic policy hot reload

PURPOSE:
  Periodically re-reads the policy configuration and publishes it to the
  PolicyHolder the request service reads from. Requests in flight keep the
  config they started with; the next request sees the new one.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Loads a complete config, validates it, then swaps the whole value
  - An invalid config is logged and counted; the previous one stays active
  - An identical config is not swapped

CONFIGURATION:
  - Interval: How often to check (server.policy_reload_interval)
  - Enabled: Whether reloader is active (false when the interval is 0)

USAGE:
  reloader := NewPolicyReloader(holder, func() (*eligibility.PolicyConfig, error) {
      return config.LoadPolicy(path)
  })
  reloader.Start()
  // ... later
  reloader.Stop()

SEE ALSO:
  - ../eligibility/policy.go: PolicyHolder
  - ../config/config.go: LoadPolicy
*/
package api

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/metrics"
)

// ReloadObserver is notified of reload outcomes and of the active policy.
type ReloadObserver interface {
	ObservePolicyReload(outcome string)
	SetPolicy(cfg *eligibility.PolicyConfig)
}

// PolicyReloader handles periodic policy reloads.
type PolicyReloader struct {
	Holder   *eligibility.PolicyHolder
	Load     func() (*eligibility.PolicyConfig, error)
	Metrics  ReloadObserver
	Logger   *slog.Logger
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPolicyReloader creates a reloader checking once a minute.
func NewPolicyReloader(holder *eligibility.PolicyHolder, load func() (*eligibility.PolicyConfig, error)) *PolicyReloader {
	return &PolicyReloader{
		Holder:   holder,
		Load:     load,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Interval: time.Minute,
		Enabled:  true,
		stop:     make(chan struct{}),
	}
}

// Start begins the reloader.
func (pr *PolicyReloader) Start() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if !pr.Enabled || pr.Interval <= 0 {
		pr.Logger.Info("policy reloader disabled")
		return
	}
	if pr.ticker != nil {
		return
	}

	pr.ticker = time.NewTicker(pr.Interval)
	pr.wg.Add(1)

	go pr.run(pr.ticker.C, pr.stop)

	pr.Logger.Info("policy reloader started", slog.Duration("interval", pr.Interval))
}

// Stop stops the reloader and waits for a reload in progress.
func (pr *PolicyReloader) Stop() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.ticker != nil {
		pr.ticker.Stop()
		close(pr.stop)
		pr.wg.Wait()
		pr.ticker = nil
		pr.stop = make(chan struct{})
		pr.Logger.Info("policy reloader stopped")
	}
}

func (pr *PolicyReloader) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer pr.wg.Done()

	for {
		select {
		case <-tick:
			pr.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow reloads once and returns the outcome (see metrics.Reload*).
func (pr *PolicyReloader) RunNow() string {
	outcome := pr.reload()
	if pr.Metrics != nil {
		pr.Metrics.ObservePolicyReload(outcome)
		if outcome == metrics.ReloadApplied {
			pr.Metrics.SetPolicy(pr.Holder.Current())
		}
	}
	return outcome
}

func (pr *PolicyReloader) reload() string {
	next, err := pr.Load()
	if err != nil {
		pr.Logger.Error("policy reload rejected, keeping active policy", slog.String("error", err.Error()))
		return metrics.ReloadRejected
	}

	if current := pr.Holder.Current(); current != nil && next != nil && *current == *next {
		return metrics.ReloadUnchanged
	}

	if _, err := pr.Holder.Swap(next); err != nil {
		pr.Logger.Error("policy reload rejected, keeping active policy", slog.String("error", err.Error()))
		return metrics.ReloadRejected
	}

	attrs := []any{
		slog.Int(eligibility.KeyReturnWindowOnline, next.ReturnWindowOnlineDays),
		slog.Int(eligibility.KeyExchangeWindowOnline, next.ExchangeWindowOnlineDays),
		slog.Int(eligibility.KeyExchangeWindowInPerson, next.ExchangeWindowInPersonDays),
		slog.Int(eligibility.KeyDefectWarranty, next.DefectWarrantyDays),
		slog.Bool(eligibility.KeyRequireTagsForReturn, next.RequireTagsForReturn),
		slog.Bool(eligibility.KeyRequireUnusedForReturn, next.RequireUnusedForReturn),
	}
	pr.Logger.Info("policy reloaded", attrs...)
	return metrics.ReloadApplied
}
