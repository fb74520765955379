// Package prompts selects and renders the instruction sent to the text-generation model.
package prompts

import "github.com/formbricks/evalhub/internal/rubrics"

// Strategy is the prompt template used for one evaluation.
type Strategy int

// Prompt strategies.
const (
	StrategyGeneric Strategy = iota
	StrategyLeveledRubric
)

// String returns the strategy name used in logs.
func (s Strategy) String() string {
	switch s {
	case StrategyGeneric:
		return "generic"
	case StrategyLeveledRubric:
		return "leveled_rubric"
	default:
		return "unknown"
	}
}

// Select picks the template for a question. Only reservedID with a leveled rubric uses the
// leveled-rubric template; every other combination, multi-criterion rubrics included, is generic.
func Select(questionID string, rubric rubrics.Rubric, reservedID string) Strategy {
	switch rubric.Kind() {
	case rubrics.KindLeveled:
		if reservedID != "" && questionID == reservedID {
			return StrategyLeveledRubric
		}

		return StrategyGeneric
	case rubrics.KindMultiCriterion, rubrics.KindNone:
		return StrategyGeneric
	default:
		return StrategyGeneric
	}
}
