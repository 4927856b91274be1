package eligibility

// ConditionReason is a machine-readable reason a product fails the
// condition check. The renderer turns it into text.
type ConditionReason string

const (
	ReasonProductUsed ConditionReason = "product_used"
	ReasonMissingTags ConditionReason = "missing_original_tags"
)

// ConditionResult is the outcome of CheckCondition. Reasons keep a fixed
// order: used state first, then tags.
type ConditionResult struct {
	Valid   bool              `json:"valid"`
	Reasons []ConditionReason `json:"reasons,omitempty"`
}

// CheckCondition decides whether the product is in a state acceptable for
// the motive.
//
// Exchanges always need an unused product with its original tags; that is
// a business rule and is not configurable. Returns follow the
// require_unused_for_return / require_tags_for_return flags. Defects have no
// condition requirement.
func CheckCondition(productUsed, hasOriginalTags bool, motive Motive, cfg *PolicyConfig) ConditionResult {
	var requireUnused, requireTags bool
	switch motive {
	case MotiveExchange:
		requireUnused, requireTags = true, true
	case MotiveReturn:
		requireUnused, requireTags = cfg.RequireUnusedForReturn, cfg.RequireTagsForReturn
	}

	var reasons []ConditionReason
	if requireUnused && productUsed {
		reasons = append(reasons, ReasonProductUsed)
	}
	if requireTags && !hasOriginalTags {
		reasons = append(reasons, ReasonMissingTags)
	}
	return ConditionResult{Valid: len(reasons) == 0, Reasons: reasons}
}
