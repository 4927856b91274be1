/*
rules.go - The motive rules

Each motive is an independent pure function with the same signature:

  (daysElapsed, channel, productUsed, hasOriginalTags, cfg) -> Decision

and decide() is the single switch that picks one. All time boundaries are
inclusive: a request on exactly the last day of a window is accepted.

DEFECT (Art. 11):
  permitted iff daysElapsed <= defect_warranty_days. Channel and condition
  are irrelevant for a defect.

RETURN (Art. 34):
  1. not bought online      -> return_not_applicable
  2. past the online window -> return_out_of_window
  3. condition check fails  -> return_invalid_condition
  4. otherwise              -> return

EXCHANGE (commercial policy):
  window depends on the channel
  1. past the window        -> exchange_out_of_window
  2. condition check fails  -> exchange_invalid_condition
  3. otherwise              -> exchange

Every rule records the limit it tested in Decision.Checks, including the
ones that stop on condition rather than time.
*/
package eligibility

// MotiveRule is the shape shared by every motive rule.
type MotiveRule func(daysElapsed int, channel Channel, productUsed, hasOriginalTags bool, cfg *PolicyConfig) Decision

// ruleFor returns the rule for a motive, or nil for an unknown one.
func ruleFor(m Motive) MotiveRule {
	switch m {
	case MotiveDefect:
		return EvaluateDefect
	case MotiveReturn:
		return EvaluateReturn
	case MotiveExchange:
		return EvaluateExchange
	default:
		return nil
	}
}

// decide dispatches facts to the rule for their motive.
func decide(facts RequestFacts, daysElapsed int, cfg *PolicyConfig) Decision {
	rule := ruleFor(facts.Motive)
	if rule == nil {
		return Decision{Kind: KindInvalidMotive, DaysElapsed: daysElapsed, Channel: facts.PurchaseChannel}
	}
	return rule(daysElapsed, facts.PurchaseChannel, facts.ProductUsed, facts.HasOriginalTags, cfg)
}

// EvaluateDefect applies the legal warranty.
func EvaluateDefect(daysElapsed int, channel Channel, _, _ bool, cfg *PolicyConfig) Decision {
	limit := cfg.DefectWarrantyDays
	d := Decision{
		DaysElapsed: daysElapsed,
		Limit:       limit,
		Channel:     channel,
		Condition:   ConditionResult{Valid: true},
		Checks:      []LimitCheck{{Rule: RuleDefectWarranty, Days: limit}},
	}
	if daysElapsed <= limit {
		d.Kind, d.Permitted = KindWarranty, true
	} else {
		d.Kind = KindWarrantyExpired
	}
	return d
}

// EvaluateReturn applies the right of revocation for off-premises sales.
func EvaluateReturn(daysElapsed int, channel Channel, productUsed, hasOriginalTags bool, cfg *PolicyConfig) Decision {
	limit := cfg.ReturnWindowOnlineDays
	d := Decision{
		DaysElapsed: daysElapsed,
		Limit:       limit,
		Channel:     channel,
		Condition:   ConditionResult{Valid: true},
		Checks:      []LimitCheck{{Rule: RuleReturnWindowOnline, Days: limit}},
	}

	if channel != ChannelOnline {
		d.Kind = KindReturnNotApplicable
		return d
	}
	if daysElapsed > limit {
		d.Kind = KindReturnOutOfWindow
		return d
	}

	d.Condition = CheckCondition(productUsed, hasOriginalTags, MotiveReturn, cfg)
	if !d.Condition.Valid {
		d.Kind = KindReturnInvalidCondition
		return d
	}

	d.Kind, d.Permitted = KindReturn, true
	return d
}

// EvaluateExchange applies the commercial exchange policy.
func EvaluateExchange(daysElapsed int, channel Channel, productUsed, hasOriginalTags bool, cfg *PolicyConfig) Decision {
	limit := cfg.ExchangeWindow(channel)
	rule := RuleExchangeInPerson
	if channel == ChannelOnline {
		rule = RuleExchangeOnline
	}
	d := Decision{
		DaysElapsed: daysElapsed,
		Limit:       limit,
		Channel:     channel,
		Condition:   ConditionResult{Valid: true},
		Checks:      []LimitCheck{{Rule: rule, Days: limit}},
	}

	if daysElapsed > limit {
		d.Kind = KindExchangeOutOfWindow
		return d
	}

	d.Condition = CheckCondition(productUsed, hasOriginalTags, MotiveExchange, cfg)
	if !d.Condition.Valid {
		d.Kind = KindExchangeInvalidCondition
		return d
	}

	d.Kind, d.Permitted = KindExchange, true
	return d
}
