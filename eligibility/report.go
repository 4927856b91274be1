package eligibility

// =============================================================================
// REPORT - Facts + verdict + policy snapshot + statutory citations
// =============================================================================

// Citation is a reference to a statute or policy backing a motive.
type Citation struct {
	Source  string `json:"source" yaml:"source"`
	Article string `json:"article,omitempty" yaml:"article,omitempty"`
	Summary string `json:"summary" yaml:"summary"`
}

// Report bundles everything needed to explain a verdict after the fact.
type Report struct {
	Facts     RequestFacts `json:"facts" yaml:"facts"`
	Verdict   Verdict      `json:"verdict" yaml:"verdict"`
	Policy    PolicyConfig `json:"policy" yaml:"policy"`
	Citations []Citation   `json:"citations" yaml:"citations"`
}

const (
	lawConsumerProtection = "Ley 24.240 de Defensa del Consumidor"
	lawCivilCode          = "Código Civil y Comercial de la Nación"
	companyPolicy         = "Política comercial de la empresa"
)

var citationsByMotive = map[Motive][]Citation{
	MotiveDefect: {
		{Source: lawConsumerProtection, Article: "Art. 11", Summary: "Garantía legal por vicios o defectos de las cosas muebles no consumibles"},
		{Source: lawConsumerProtection, Article: "Art. 17", Summary: "Opciones del consumidor ante una reparación no satisfactoria"},
	},
	MotiveReturn: {
		{Source: lawConsumerProtection, Article: "Art. 34", Summary: "Revocación de la aceptación en ventas fuera del establecimiento"},
		{Source: lawCivilCode, Article: "Art. 1110", Summary: "Plazo de diez días corridos para revocar la aceptación"},
	},
	MotiveExchange: {
		{Source: companyPolicy, Summary: "Cambio de productos sin uso y con etiquetas originales dentro del plazo por canal"},
	},
}

// CitationsFor returns the statutory citations for a motive. The returned
// slice is a copy.
func CitationsFor(m Motive) []Citation {
	src := citationsByMotive[m]
	out := make([]Citation, len(src))
	copy(out, src)
	return out
}

// BuildReport assembles a Report. cfg may be nil when the verdict is an
// evaluation error; the snapshot is then empty.
func BuildReport(facts RequestFacts, verdict Verdict, cfg *PolicyConfig) Report {
	r := Report{
		Facts:     facts,
		Verdict:   verdict,
		Citations: CitationsFor(facts.Motive),
	}
	if cfg != nil {
		r.Policy = *cfg
	}
	return r
}
