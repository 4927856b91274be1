/*
render.go - Presentation of decisions

PURPOSE:
  Turns a locale-free Decision into the title, message, legal basis and
  recommended action a person reads. Rules never produce text; a new locale
  is a new catalog, with no change to rule logic.

TEMPLATES:
  Messages use named placeholders so each locale can order them freely:
    {days}     elapsed days
    {limit}    the window the rule tested
    {channel}  the purchase channel label
    {reason}   the rendered condition reasons, capitalised, with a period
    {failure}  the failure text of an evaluation error
*/
package eligibility

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Locale selects a message catalog.
type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

// DefaultLocale is the locale of the original customer-service desk.
const DefaultLocale = LocaleES

type kindText struct {
	title      string
	message    string
	legalBasis string // empty means no legal basis
	action     string // empty means no recommended action
}

type ruleText struct {
	description string
	legalBasis  string
}

type catalog struct {
	kinds       map[ResultKind]kindText
	rules       map[RuleID]ruleText
	channels    map[Channel]string
	reasons     map[ConditionReason]string
	conjunction string
}

var catalogs = map[Locale]*catalog{
	LocaleES: {
		kinds: map[ResultKind]kindText{
			KindWarranty: {
				title:      "Garantía por Falla",
				message:    "El producto presenta una falla o defecto. Corresponde aplicar la garantía legal según el Artículo 11 de la Ley de Defensa del Consumidor. Tiempo transcurrido: {days} días (límite: {limit} días).",
				legalBasis: "Artículo 11, Ley 24.240 - Garantía Legal",
				action:     "Proceder con reparación, cambio o devolución según corresponda",
			},
			KindWarrantyExpired: {
				title:      "Garantía Vencida",
				message:    "Han transcurrido {days} días desde la recepción del producto. El período de garantía legal es de {limit} días.",
				legalBasis: "Artículo 11, Ley 24.240 - Garantía Legal",
				action:     "Evaluar garantía extendida del fabricante",
			},
			KindReturn: {
				title:      "Devolución Permitida",
				message:    "Compra online dentro del plazo legal de {limit} días corridos ({days} días transcurridos). El producto cumple las condiciones establecidas en el Artículo 34 de la Ley 24.240.",
				legalBasis: "Artículo 34, Ley 24.240 - Derecho de arrepentimiento",
				action:     "Proceder con la devolución del dinero",
			},
			KindReturnOutOfWindow: {
				title:      "Devolución Fuera de Plazo",
				message:    "Han transcurrido {days} días desde la recepción. El plazo legal para devolución de compras online es de {limit} días corridos según el Artículo 34 de la Ley 24.240.",
				legalBasis: "Artículo 34, Ley 24.240 - Plazo de reflexión",
				action:     "Plazo vencido - evaluar política comercial excepcional",
			},
			KindReturnNotApplicable: {
				title:      "Devolución No Aplicable",
				message:    "Las devoluciones solo están permitidas para compras realizadas fuera del establecimiento comercial (online), conforme al Artículo 34 de la Ley de Defensa del Consumidor.",
				legalBasis: "Artículo 34, Ley 24.240 - Venta fuera del establecimiento",
				action:     "Evaluar posibilidad de cambio según política comercial",
			},
			KindReturnInvalidCondition: {
				title:      "Estado del Producto No Válido",
				message:    "No es posible proceder con la devolución. {reason} Para devoluciones, el producto debe estar en las mismas condiciones que al momento de la entrega.",
				legalBasis: "Artículo 34, Ley 24.240 - Condiciones del producto",
				action:     "Producto no cumple condiciones para devolución",
			},
			KindExchange: {
				title:      "Cambio Permitido",
				message:    "El producto cumple las condiciones para cambio. Compra {channel} dentro del plazo de {limit} días ({days} días transcurridos). Producto en condiciones originales.",
				legalBasis: "Política comercial de la empresa",
				action:     "Proceder con el cambio por otro producto",
			},
			KindExchangeOutOfWindow: {
				title:      "Cambio Fuera de Plazo",
				message:    "Han transcurrido {days} días desde la recepción. El plazo para cambios en compras {channel} es de {limit} días según nuestra política comercial.",
				legalBasis: "Política comercial de la empresa",
				action:     "Plazo vencido para cambio",
			},
			KindExchangeInvalidCondition: {
				title:      "Estado del Producto No Válido",
				message:    "No es posible proceder con el cambio. {reason} Para cambios, el producto debe estar sin usar y con todas sus etiquetas originales.",
				legalBasis: "Política comercial de la empresa",
				action:     "Producto no cumple condiciones para cambio",
			},
			KindInvalidMotive: {
				title:   "Solicitud No Permitida",
				message: "Motivo de solicitud no válido",
			},
			KindEvaluationError: {
				title:   "Error en Evaluación",
				message: "No se pudo evaluar la solicitud: {failure}",
			},
		},
		rules: map[RuleID]ruleText{
			RuleDefectWarranty:     {"Garantía legal por falla o defecto", "Artículo 11, Ley 24.240"},
			RuleReturnWindowOnline: {"Plazo de devolución para compras online", "Artículo 34, Ley 24.240"},
			RuleExchangeOnline:     {"Plazo de cambio para compras online", "Política comercial de la empresa"},
			RuleExchangeInPerson:   {"Plazo de cambio para compras presenciales", "Política comercial de la empresa"},
		},
		channels: map[Channel]string{
			ChannelOnline:   "online",
			ChannelInPerson: "presencial",
		},
		reasons: map[ConditionReason]string{
			ReasonProductUsed: "el producto ha sido usado",
			ReasonMissingTags: "el producto no tiene etiquetas originales",
		},
		conjunction: " y ",
	},
	LocaleEN: {
		kinds: map[ResultKind]kindText{
			KindWarranty: {
				title:      "Defect Warranty",
				message:    "The product has a fault or defect. The legal warranty of Article 11 of the Consumer Protection Law applies. Time elapsed: {days} days (limit: {limit} days).",
				legalBasis: "Article 11, Law 24.240 - Legal Warranty",
				action:     "Proceed with repair, replacement or refund as appropriate",
			},
			KindWarrantyExpired: {
				title:      "Warranty Expired",
				message:    "{days} days have passed since the product was received. The legal warranty period is {limit} days.",
				legalBasis: "Article 11, Law 24.240 - Legal Warranty",
				action:     "Check for an extended manufacturer warranty",
			},
			KindReturn: {
				title:      "Return Permitted",
				message:    "Online purchase within the legal window of {limit} calendar days ({days} days elapsed). The product meets the conditions of Article 34 of Law 24.240.",
				legalBasis: "Article 34, Law 24.240 - Right of withdrawal",
				action:     "Proceed with the refund",
			},
			KindReturnOutOfWindow: {
				title:      "Return Out of Window",
				message:    "{days} days have passed since receipt. The legal window for returning online purchases is {limit} calendar days under Article 34 of Law 24.240.",
				legalBasis: "Article 34, Law 24.240 - Cooling-off period",
				action:     "Window expired - consider an exceptional commercial policy",
			},
			KindReturnNotApplicable: {
				title:      "Return Not Applicable",
				message:    "Returns are only permitted for purchases made outside the store (online), under Article 34 of the Consumer Protection Law.",
				legalBasis: "Article 34, Law 24.240 - Off-premises sale",
				action:     "Consider an exchange under the commercial policy",
			},
			KindReturnInvalidCondition: {
				title:      "Invalid Product Condition",
				message:    "The return cannot proceed. {reason} For returns, the product must be in the same condition as when it was delivered.",
				legalBasis: "Article 34, Law 24.240 - Product condition",
				action:     "Product does not meet the return conditions",
			},
			KindExchange: {
				title:      "Exchange Permitted",
				message:    "The product meets the exchange conditions. {channel} purchase within the {limit}-day window ({days} days elapsed). Product in original condition.",
				legalBasis: "Company commercial policy",
				action:     "Proceed with the exchange for another product",
			},
			KindExchangeOutOfWindow: {
				title:      "Exchange Out of Window",
				message:    "{days} days have passed since receipt. The exchange window for {channel} purchases is {limit} days under our commercial policy.",
				legalBasis: "Company commercial policy",
				action:     "Exchange window expired",
			},
			KindExchangeInvalidCondition: {
				title:      "Invalid Product Condition",
				message:    "The exchange cannot proceed. {reason} For exchanges, the product must be unused and carry all its original tags.",
				legalBasis: "Company commercial policy",
				action:     "Product does not meet the exchange conditions",
			},
			KindInvalidMotive: {
				title:   "Request Not Permitted",
				message: "Invalid request motive",
			},
			KindEvaluationError: {
				title:   "Evaluation Error",
				message: "The request could not be evaluated: {failure}",
			},
		},
		rules: map[RuleID]ruleText{
			RuleDefectWarranty:     {"Legal warranty for faults or defects", "Article 11, Law 24.240"},
			RuleReturnWindowOnline: {"Return window for online purchases", "Article 34, Law 24.240"},
			RuleExchangeOnline:     {"Exchange window for online purchases", "Company commercial policy"},
			RuleExchangeInPerson:   {"Exchange window for in-person purchases", "Company commercial policy"},
		},
		channels: map[Channel]string{
			ChannelOnline:   "online",
			ChannelInPerson: "in-person",
		},
		reasons: map[ConditionReason]string{
			ReasonProductUsed: "the product has been used",
			ReasonMissingTags: "the product is missing its original tags",
		},
		conjunction: " and ",
	},
}

// ParseLocale accepts "es", "en" and region variants such as "es-AR".
func ParseLocale(s string) (Locale, error) {
	base := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	if _, ok := catalogs[Locale(base)]; ok {
		return Locale(base), nil
	}
	return "", fmt.Errorf("unsupported locale %q", s)
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer turns Decisions into Verdicts for one locale.
type Renderer struct {
	locale  Locale
	catalog *catalog
}

// NewRenderer returns a renderer for locale, falling back to DefaultLocale
// for an unknown one.
func NewRenderer(locale Locale) *Renderer {
	c, ok := catalogs[locale]
	if !ok {
		locale, c = DefaultLocale, catalogs[DefaultLocale]
	}
	return &Renderer{locale: locale, catalog: c}
}

func (r *Renderer) Locale() Locale { return r.locale }

// Render builds the Verdict for a Decision.
func (r *Renderer) Render(d Decision, evaluatedOn Date) Verdict {
	text := r.catalog.kinds[d.Kind]

	v := Verdict{
		Permitted:    d.Permitted,
		ResultKind:   d.Kind,
		Title:        text.title,
		Message:      r.fill(text.message, d),
		DaysElapsed:  d.DaysElapsed,
		EvaluatedOn:  evaluatedOn,
		AppliedRules: make([]AppliedRule, 0, len(d.Checks)),
	}
	if text.legalBasis != "" {
		v.LegalBasis = strPtr(text.legalBasis)
	}
	if text.action != "" {
		v.RecommendedAction = strPtr(text.action)
	}
	for _, c := range d.Checks {
		rt := r.catalog.rules[c.Rule]
		v.AppliedRules = append(v.AppliedRules, AppliedRule{
			Rule:        c.Rule,
			Description: rt.description,
			Days:        c.Days,
			LegalBasis:  rt.legalBasis,
		})
	}
	return v
}

// ConditionSummary renders condition reasons the way customers see them:
// joined, capitalised, with a trailing period. Empty when there are none.
func (r *Renderer) ConditionSummary(reasons []ConditionReason) string {
	if len(reasons) == 0 {
		return ""
	}
	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = r.catalog.reasons[reason]
	}
	return capitalize(strings.Join(parts, r.catalog.conjunction)) + "."
}

// ChannelLabel returns the display label of a channel.
func (r *Renderer) ChannelLabel(c Channel) string {
	if label, ok := r.catalog.channels[c]; ok {
		return label
	}
	return string(c)
}

func (r *Renderer) fill(template string, d Decision) string {
	channel := r.ChannelLabel(d.Channel)
	// English messages may start with the channel label.
	if strings.HasPrefix(template, "{channel}") {
		channel = capitalize(channel)
	}
	return strings.NewReplacer(
		"{days}", strconv.Itoa(d.DaysElapsed),
		"{limit}", strconv.Itoa(d.Limit),
		"{channel}", channel,
		"{reason}", r.ConditionSummary(d.Condition.Reasons),
		"{failure}", d.Failure,
	).Replace(template)
}

func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}

func strPtr(s string) *string { return &s }
