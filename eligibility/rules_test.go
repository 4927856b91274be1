package eligibility

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func defaultPolicy() *PolicyConfig {
	cfg := DefaultPolicy()
	return &cfg
}

func properties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func genChannel() gopter.Gen {
	return gen.OneConstOf(ChannelOnline, ChannelInPerson)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestDefect_PermittedIffWithinWarranty(t *testing.T) {
	props := properties(t)

	props.Property("permitted == (days <= defect_warranty_days)", prop.ForAll(
		func(days, warranty int, ch Channel, used, tags bool) bool {
			cfg := defaultPolicy()
			cfg.DefectWarrantyDays = warranty
			d := EvaluateDefect(days, ch, used, tags, cfg)
			if d.Permitted != (days <= warranty) {
				return false
			}
			if d.Permitted {
				return d.Kind == KindWarranty
			}
			return d.Kind == KindWarrantyExpired
		},
		gen.IntRange(0, 800),
		gen.IntRange(MinDefectWarrantyDays, MaxWindowDays),
		genChannel(),
		gen.Bool(),
		gen.Bool(),
	))

	props.TestingRun(t)
}

func TestReturn_InPersonIsNeverApplicable(t *testing.T) {
	props := properties(t)

	props.Property("in-person returns are always return_not_applicable", prop.ForAll(
		func(days int, used, tags, requireUnused, requireTags bool) bool {
			cfg := defaultPolicy()
			cfg.RequireUnusedForReturn = requireUnused
			cfg.RequireTagsForReturn = requireTags
			d := EvaluateReturn(days, ChannelInPerson, used, tags, cfg)
			return d.Kind == KindReturnNotApplicable && !d.Permitted
		},
		gen.IntRange(0, 1000),
		gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(),
	))

	props.TestingRun(t)
}

func TestReturn_LastDayWithValidConditionIsPermitted(t *testing.T) {
	props := properties(t)

	props.Property("online return on the last day of the window is permitted", prop.ForAll(
		func(window int) bool {
			cfg := defaultPolicy()
			cfg.ReturnWindowOnlineDays = window
			onLastDay := EvaluateReturn(window, ChannelOnline, false, true, cfg)
			dayAfter := EvaluateReturn(window+1, ChannelOnline, false, true, cfg)
			return onLastDay.Permitted && onLastDay.Kind == KindReturn &&
				!dayAfter.Permitted && dayAfter.Kind == KindReturnOutOfWindow
		},
		gen.IntRange(1, MaxWindowDays),
	))

	props.TestingRun(t)
}

func TestExchange_ConditionIgnoresReturnFlags(t *testing.T) {
	props := properties(t)

	props.Property("exchange outcome does not depend on return flags", prop.ForAll(
		func(days int, ch Channel, used, tags bool) bool {
			strict := defaultPolicy()
			relaxed := defaultPolicy()
			relaxed.RequireUnusedForReturn = false
			relaxed.RequireTagsForReturn = false

			a := EvaluateExchange(days, ch, used, tags, strict)
			b := EvaluateExchange(days, ch, used, tags, relaxed)
			return a.Kind == b.Kind && a.Permitted == b.Permitted
		},
		gen.IntRange(0, 60),
		genChannel(),
		gen.Bool(),
		gen.Bool(),
	))

	props.TestingRun(t)
}

func TestRules_AlwaysRecordOneCheck(t *testing.T) {
	props := properties(t)

	props.Property("every rule records the limit it tested", prop.ForAll(
		func(days int, ch Channel, m Motive, used, tags bool) bool {
			d := decide(RequestFacts{PurchaseChannel: ch, Motive: m, ProductUsed: used, HasOriginalTags: tags}, days, defaultPolicy())
			return len(d.Checks) == 1 && d.Checks[0].Days == d.Limit && d.DaysElapsed == days
		},
		gen.IntRange(0, 400),
		genChannel(),
		gen.OneConstOf(MotiveExchange, MotiveReturn, MotiveDefect),
		gen.Bool(),
		gen.Bool(),
	))

	props.TestingRun(t)
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestDecide_UnknownMotive(t *testing.T) {
	d := decide(RequestFacts{PurchaseChannel: ChannelOnline, Motive: "gift"}, 3, defaultPolicy())

	assert.Equal(t, KindInvalidMotive, d.Kind)
	assert.False(t, d.Permitted)
	assert.Empty(t, d.Checks)

	v := NewRenderer(LocaleES).Render(d, NewDate(2025, 1, 1))
	assert.Equal(t, "Solicitud No Permitida", v.Title)
	assert.Equal(t, "Motivo de solicitud no válido", v.Message)
	assert.Nil(t, v.LegalBasis)
	assert.NotNil(t, v.AppliedRules)
}

func TestCheckCondition_ReasonOrder(t *testing.T) {
	res := CheckCondition(true, false, MotiveExchange, defaultPolicy())
	assert.False(t, res.Valid)
	assert.Equal(t, []ConditionReason{ReasonProductUsed, ReasonMissingTags}, res.Reasons)

	res = CheckCondition(true, false, MotiveDefect, defaultPolicy())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Reasons)
}
