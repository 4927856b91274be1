package api

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/metrics"
)

var (
	_ ReloadObserver = (*metrics.Prometheus)(nil)
	_ HTTPObserver   = (*metrics.Prometheus)(nil)
)

type reloadRecorder struct {
	mu       sync.Mutex
	outcomes []string
	policy   *eligibility.PolicyConfig
}

func (r *reloadRecorder) ObservePolicyReload(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *reloadRecorder) SetPolicy(cfg *eligibility.PolicyConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = cfg
}

func TestPolicyReloader_RunNow(t *testing.T) {
	holder := eligibility.NewPolicyHolder(eligibility.MustLoad(nil))
	longer := eligibility.MustLoad(map[string]any{eligibility.KeyReturnWindowOnline: 15})
	invalid := &eligibility.PolicyConfig{DefectWarrantyDays: 30}

	var next *eligibility.PolicyConfig
	var loadErr error
	rec := &reloadRecorder{}
	pr := NewPolicyReloader(holder, func() (*eligibility.PolicyConfig, error) { return next, loadErr })
	pr.Metrics = rec

	// WHEN: a changed policy is loaded, THEN: it is swapped in
	next = longer
	assert.Equal(t, metrics.ReloadApplied, pr.RunNow())
	assert.Equal(t, 15, holder.Current().ReturnWindowOnlineDays)
	assert.Same(t, longer, rec.policy)

	// WHEN: the same values again, THEN: nothing changes
	next = eligibility.MustLoad(map[string]any{eligibility.KeyReturnWindowOnline: 15})
	assert.Equal(t, metrics.ReloadUnchanged, pr.RunNow())
	assert.Same(t, longer, holder.Current())

	// WHEN: the file is broken, THEN: the active policy stays
	next, loadErr = nil, errors.New("yaml: line 3: did not find expected key")
	assert.Equal(t, metrics.ReloadRejected, pr.RunNow())
	assert.Same(t, longer, holder.Current())

	// WHEN: the loader hands back an invalid config, THEN: Swap refuses it
	next, loadErr = invalid, nil
	assert.Equal(t, metrics.ReloadRejected, pr.RunNow())
	assert.Same(t, longer, holder.Current())

	assert.Equal(t, []string{
		metrics.ReloadApplied, metrics.ReloadUnchanged, metrics.ReloadRejected, metrics.ReloadRejected,
	}, rec.outcomes)
}

func TestPolicyReloader_StartStop(t *testing.T) {
	holder := eligibility.NewPolicyHolder(eligibility.MustLoad(nil))
	var calls atomic.Int32
	pr := NewPolicyReloader(holder, func() (*eligibility.PolicyConfig, error) {
		calls.Add(1)
		return eligibility.MustLoad(map[string]any{eligibility.KeyExchangeWindowOnline: 45}), nil
	})
	pr.Interval = 5 * time.Millisecond

	pr.Start()
	require.Eventually(t, func() bool {
		return holder.Current().ExchangeWindowOnlineDays == 45
	}, time.Second, 5*time.Millisecond)
	pr.Stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no reload after Stop")

	// Stop twice is safe, and the reloader can be restarted
	pr.Stop()
	pr.Start()
	pr.Stop()
}

func TestPolicyReloader_Disabled(t *testing.T) {
	holder := eligibility.NewPolicyHolder(eligibility.MustLoad(nil))
	var calls atomic.Int32
	pr := NewPolicyReloader(holder, func() (*eligibility.PolicyConfig, error) {
		calls.Add(1)
		return nil, errors.New("unreachable")
	})
	pr.Enabled = false

	pr.Start()
	time.Sleep(10 * time.Millisecond)
	pr.Stop()

	assert.Zero(t, calls.Load())
}
