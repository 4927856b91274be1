/*
policy.go - Policy configuration: time windows and condition requirements

PURPOSE:
  Holds the handful of numbers and flags the motive rules read: how many days
  an online buyer has to change their mind, how long exchanges are accepted
  per channel, how long the legal warranty lasts, and whether returns require
  an unused product with its tags.

DEFAULTS (Ley 24.240 + commercial policy):
  return_window_online_days      10   Art. 34, revocation of online sales
  exchange_window_online_days    30   Commercial policy
  exchange_window_in_person_days 15   Commercial policy
  defect_warranty_days           365  Art. 11, legal warranty
  require_tags_for_return        true
  require_unused_for_return      true

VALIDATION:
  Every day value must be in 1..365. The warranty may never go below the
  statutory 90 days. A violation is a ConfigurationError, raised by Load and
  meant to stop the process at startup.

HOT RELOAD:
  A PolicyConfig is never mutated after Load. PolicyHolder swaps whole
  values atomically so an evaluation never sees half of an update.
*/
package eligibility

import (
	"sort"
	"sync/atomic"

	"github.com/spf13/cast"
)

// Statutory and sanity bounds for policy values.
const (
	MaxWindowDays         = 365
	MinDefectWarrantyDays = 90
)

// Override names accepted by Load.
const (
	KeyReturnWindowOnline     = "return_window_online_days"
	KeyExchangeWindowOnline   = "exchange_window_online_days"
	KeyExchangeWindowInPerson = "exchange_window_in_person_days"
	KeyDefectWarranty         = "defect_warranty_days"
	KeyRequireTagsForReturn   = "require_tags_for_return"
	KeyRequireUnusedForReturn = "require_unused_for_return"
)

// PolicyKeys lists every override name.
var PolicyKeys = []string{
	KeyReturnWindowOnline,
	KeyExchangeWindowOnline,
	KeyExchangeWindowInPerson,
	KeyDefectWarranty,
	KeyRequireTagsForReturn,
	KeyRequireUnusedForReturn,
}

// =============================================================================
// POLICY CONFIG
// =============================================================================

// PolicyConfig is read-only once loaded.
type PolicyConfig struct {
	ReturnWindowOnlineDays     int  `json:"return_window_online_days" yaml:"return_window_online_days"`
	ExchangeWindowOnlineDays   int  `json:"exchange_window_online_days" yaml:"exchange_window_online_days"`
	ExchangeWindowInPersonDays int  `json:"exchange_window_in_person_days" yaml:"exchange_window_in_person_days"`
	DefectWarrantyDays         int  `json:"defect_warranty_days" yaml:"defect_warranty_days"`
	RequireTagsForReturn       bool `json:"require_tags_for_return" yaml:"require_tags_for_return"`
	RequireUnusedForReturn     bool `json:"require_unused_for_return" yaml:"require_unused_for_return"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		ReturnWindowOnlineDays:     10,
		ExchangeWindowOnlineDays:   30,
		ExchangeWindowInPersonDays: 15,
		DefectWarrantyDays:         365,
		RequireTagsForReturn:       true,
		RequireUnusedForReturn:     true,
	}
}

// ExchangeWindow returns the exchange window for a channel.
func (c *PolicyConfig) ExchangeWindow(ch Channel) int {
	if ch == ChannelOnline {
		return c.ExchangeWindowOnlineDays
	}
	return c.ExchangeWindowInPersonDays
}

// Validate checks the bounds described in the file header.
func (c *PolicyConfig) Validate() error {
	days := []struct {
		key   string
		value int
	}{
		{KeyReturnWindowOnline, c.ReturnWindowOnlineDays},
		{KeyExchangeWindowOnline, c.ExchangeWindowOnlineDays},
		{KeyExchangeWindowInPerson, c.ExchangeWindowInPersonDays},
		{KeyDefectWarranty, c.DefectWarrantyDays},
	}
	for _, d := range days {
		if d.value <= 0 || d.value > MaxWindowDays {
			return &ConfigurationError{Key: d.key, Value: d.value, Reason: "must be between 1 and 365 days"}
		}
	}
	if c.DefectWarrantyDays < MinDefectWarrantyDays {
		return &ConfigurationError{
			Key:    KeyDefectWarranty,
			Value:  c.DefectWarrantyDays,
			Reason: "below the statutory minimum of 90 days",
		}
	}
	return nil
}

// =============================================================================
// LOAD - Defaults + named overrides
// =============================================================================

// Load applies named overrides on top of DefaultPolicy and validates the
// result. Values may be any type cast understands ("15", 15, 15.0, "true").
// Unknown names are rejected so a typo never silently keeps a default.
func Load(overrides map[string]any) (*PolicyConfig, error) {
	cfg := DefaultPolicy()

	// Sorted so the first reported error is stable.
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := cfg.set(key, overrides[key]); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for tests and static setups.
func MustLoad(overrides map[string]any) *PolicyConfig {
	cfg, err := Load(overrides)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *PolicyConfig) set(key string, raw any) error {
	switch key {
	case KeyReturnWindowOnline:
		return setInt(&c.ReturnWindowOnlineDays, key, raw)
	case KeyExchangeWindowOnline:
		return setInt(&c.ExchangeWindowOnlineDays, key, raw)
	case KeyExchangeWindowInPerson:
		return setInt(&c.ExchangeWindowInPersonDays, key, raw)
	case KeyDefectWarranty:
		return setInt(&c.DefectWarrantyDays, key, raw)
	case KeyRequireTagsForReturn:
		return setBool(&c.RequireTagsForReturn, key, raw)
	case KeyRequireUnusedForReturn:
		return setBool(&c.RequireUnusedForReturn, key, raw)
	default:
		return &ConfigurationError{Key: key, Value: raw, Reason: "unknown policy setting"}
	}
}

func setInt(dst *int, key string, raw any) error {
	// cast turns true into 1 and truncates 10.5 to 10; reject both.
	switch v := raw.(type) {
	case bool:
		return &ConfigurationError{Key: key, Value: raw, Reason: "must be a whole number of days"}
	case float64:
		if v != float64(int(v)) {
			return &ConfigurationError{Key: key, Value: raw, Reason: "must be a whole number of days"}
		}
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return &ConfigurationError{Key: key, Value: raw, Reason: "must be a whole number of days"}
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key string, raw any) error {
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return &ConfigurationError{Key: key, Value: raw, Reason: "must be true or false"}
	}
	*dst = v
	return nil
}

// =============================================================================
// POLICY HOLDER - Atomic swap for hot reload
// =============================================================================

// PolicyHolder publishes the active PolicyConfig to concurrent readers.
type PolicyHolder struct {
	current atomic.Pointer[PolicyConfig]
}

// NewPolicyHolder creates a holder publishing cfg.
func NewPolicyHolder(cfg *PolicyConfig) *PolicyHolder {
	h := &PolicyHolder{}
	h.current.Store(cfg)
	return h
}

// Current returns the active config. Callers must treat it as read-only.
func (h *PolicyHolder) Current() *PolicyConfig {
	return h.current.Load()
}

// Swap validates cfg and publishes it, returning the previous value.
// An invalid cfg leaves the holder untouched.
func (h *PolicyHolder) Swap(cfg *PolicyConfig) (*PolicyConfig, error) {
	if cfg == nil {
		return nil, &ConfigurationError{Key: "policy", Value: nil, Reason: "no configuration loaded"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return h.current.Swap(cfg), nil
}
