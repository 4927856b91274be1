package eligibility_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/returns-engine/eligibility"
)

func TestConditionSummary(t *testing.T) {
	es := eligibility.NewRenderer(eligibility.LocaleES)
	en := eligibility.NewRenderer(eligibility.LocaleEN)
	both := []eligibility.ConditionReason{eligibility.ReasonProductUsed, eligibility.ReasonMissingTags}

	assert.Equal(t, "El producto ha sido usado y el producto no tiene etiquetas originales.", es.ConditionSummary(both))
	assert.Equal(t, "The product has been used and the product is missing its original tags.", en.ConditionSummary(both))
	assert.Equal(t, "El producto no tiene etiquetas originales.", es.ConditionSummary(both[1:]))
	assert.Empty(t, es.ConditionSummary(nil))
}

func TestNewRenderer_UnknownLocaleFallsBack(t *testing.T) {
	r := eligibility.NewRenderer("fr")
	assert.Equal(t, eligibility.DefaultLocale, r.Locale())
	assert.Equal(t, "presencial", r.ChannelLabel(eligibility.ChannelInPerson))
}

func TestParseLocale(t *testing.T) {
	for in, want := range map[string]eligibility.Locale{"es": eligibility.LocaleES, "es-AR": eligibility.LocaleES, "EN_us": eligibility.LocaleEN} {
		got, err := eligibility.ParseLocale(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := eligibility.ParseLocale("pt")
	assert.Error(t, err)
}

func TestRender_EveryKindHasATitleInEveryLocale(t *testing.T) {
	for _, loc := range []eligibility.Locale{eligibility.LocaleES, eligibility.LocaleEN} {
		r := eligibility.NewRenderer(loc)
		for _, kind := range eligibility.ResultKinds {
			v := r.Render(eligibility.Decision{Kind: kind}, eligibility.Date{})
			assert.NotEmpty(t, v.Title, "%s/%s", loc, kind)
			assert.NotEmpty(t, v.Message, "%s/%s", loc, kind)
			assert.NotContains(t, v.Message, "{", "%s/%s has an unfilled placeholder", loc, kind)
		}
	}
}

func TestBuildReport_CitationsByMotive(t *testing.T) {
	cfg := eligibility.MustLoad(nil)
	f := eligibility.RequestFacts{Motive: eligibility.MotiveReturn}

	report := eligibility.BuildReport(f, eligibility.Verdict{ResultKind: eligibility.KindReturn}, cfg)

	require.Len(t, report.Citations, 2)
	assert.Equal(t, "Art. 34", report.Citations[0].Article)
	assert.Equal(t, "Art. 1110", report.Citations[1].Article)
	assert.Equal(t, *cfg, report.Policy)

	// the static table is not shared with callers
	report.Citations[0].Article = "changed"
	assert.Equal(t, "Art. 34", eligibility.CitationsFor(eligibility.MotiveReturn)[0].Article)

	defect := eligibility.BuildReport(eligibility.RequestFacts{Motive: eligibility.MotiveDefect}, eligibility.Verdict{}, nil)
	assert.Len(t, defect.Citations, 2)
	assert.Zero(t, defect.Policy)

	exchange := eligibility.CitationsFor(eligibility.MotiveExchange)
	require.Len(t, exchange, 1)
	assert.Empty(t, exchange[0].Article)
}
