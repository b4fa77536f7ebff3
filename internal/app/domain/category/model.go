// Package category defines the submission category catalog and the reward
// multiplier table.
package category

// BaseReward is the reward amount before the category multiplier is applied.
const BaseReward int64 = 100

// Names of the seeded categories.
const (
	Research        = "research"
	MarketAnalysis  = "market_analysis"
	TechnicalReview = "technical_review"
)

// Category is a catalog entry. Categories are added once and never removed
// or edited.
type Category struct {
	Name       string `json:"name"`
	Multiplier int64  `json:"multiplier"`
}

// Defaults returns the categories seeded into a fresh catalog.
func Defaults() []string {
	return []string{Research, MarketAnalysis, TechnicalReview}
}

// Multiplier returns the reward multiplier for an existing category.
// Two names carry special weights; every other category pays the base rate.
func Multiplier(name string) int64 {
	switch name {
	case TechnicalReview:
		return 2
	case MarketAnalysis:
		return 3
	default:
		return 1
	}
}

// Reward computes the fixed reward recorded on a datapoint at submission.
func Reward(name string) int64 {
	return BaseReward * Multiplier(name)
}
