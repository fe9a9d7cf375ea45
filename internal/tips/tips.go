// Package tips generates rule-based reduction recommendations from a user's
// ledger.
package tips

import (
	"github.com/jayanth922/carbontrace/internal/domain"
	"github.com/jayanth922/carbontrace/internal/report"
)

// Difficulty grades how hard a recommendation is to act on.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Recommendation is one actionable reduction suggestion.
type Recommendation struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	PotentialSaving  float64         `json:"potential_saving_kg"`
	Difficulty       Difficulty      `json:"difficulty"`
	Category         domain.Category `json:"category"`
	ActionSteps      []string        `json:"action_steps"`
	EstimatedCostUSD float64         `json:"estimated_cost_usd,omitempty"`
}

// Thresholds in kg CO2e above which a category is considered worth acting on.
const (
	transportThreshold = 50
	energyThreshold    = 30
	foodThreshold      = 40
	shoppingThreshold  = 25
)

// Generate produces recommendations for the ledger snapshot. Categories under
// their threshold produce nothing; an empty ledger yields the starter tip.
func Generate(activities []domain.Activity) []Recommendation {
	totals := make(map[domain.Category]float64)
	for _, sum := range report.ByCategory(activities) {
		totals[sum.Category] = sum.CarbonKg
	}

	recs := make([]Recommendation, 0, 4)

	if t := totals[domain.CategoryTransport]; t > transportThreshold {
		recs = append(recs, Recommendation{
			ID:              "transport-ev",
			Title:           "Switch to an electric vehicle",
			Description:     "Based on your driving patterns, switching to an electric vehicle could reduce your transport emissions by 70%.",
			PotentialSaving: t * 0.7,
			Difficulty:      DifficultyHard,
			Category:        domain.CategoryTransport,
			ActionSteps: []string{
				"Research electric vehicle options in your budget",
				"Check local charging infrastructure",
				"Calculate total cost of ownership",
			},
			EstimatedCostUSD: 25000,
		}, Recommendation{
			ID:              "transport-transit",
			Title:           "Use public transport more",
			Description:     "Taking public transport 3 days a week could reduce your carbon footprint significantly.",
			PotentialSaving: t * 0.4,
			Difficulty:      DifficultyEasy,
			Category:        domain.CategoryTransport,
			ActionSteps: []string{
				"Download local transit apps",
				"Plan your routes in advance",
				"Get a monthly transit pass",
			},
		})
	}

	if e := totals[domain.CategoryEnergy]; e > energyThreshold {
		recs = append(recs, Recommendation{
			ID:              "energy-solar",
			Title:           "Install solar panels",
			Description:     "Solar panels could offset most of your home energy consumption and reduce emissions by 80%.",
			PotentialSaving: e * 0.8,
			Difficulty:      DifficultyHard,
			Category:        domain.CategoryEnergy,
			ActionSteps: []string{
				"Get a solar assessment for your roof",
				"Compare quotes from installers",
				"Check available incentives",
			},
			EstimatedCostUSD: 15000,
		}, Recommendation{
			ID:              "energy-efficiency",
			Title:           "Cut standby consumption",
			Description:     "LED bulbs, smart plugs, and a lower thermostat setting trim everyday electricity use.",
			PotentialSaving: e * 0.2,
			Difficulty:      DifficultyEasy,
			Category:        domain.CategoryEnergy,
			ActionSteps: []string{
				"Replace remaining incandescent bulbs",
				"Put entertainment systems on smart plugs",
				"Lower heating by one degree",
			},
		})
	}

	if f := totals[domain.CategoryFood]; f > foodThreshold {
		recs = append(recs, Recommendation{
			ID:              "food-plant-forward",
			Title:           "Eat plant-forward twice a week",
			Description:     "Replacing beef with chicken or legumes in two meals a week makes a large dent in food emissions.",
			PotentialSaving: f * 0.3,
			Difficulty:      DifficultyMedium,
			Category:        domain.CategoryFood,
			ActionSteps: []string{
				"Plan two meat-free dinners per week",
				"Swap beef for chicken or legumes",
				"Buy seasonal produce",
			},
		})
	}

	if s := totals[domain.CategoryShopping]; s > shoppingThreshold {
		recs = append(recs, Recommendation{
			ID:              "shopping-secondhand",
			Title:           "Buy second-hand first",
			Description:     "Clothing and electronics carry large embodied emissions; second-hand purchases avoid most of them.",
			PotentialSaving: s * 0.5,
			Difficulty:      DifficultyEasy,
			Category:        domain.CategoryShopping,
			ActionSteps: []string{
				"Check resale platforms before buying new",
				"Repair before replacing",
			},
		})
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			ID:              "starter-track",
			Title:           "Keep tracking",
			Description:     "Log activities for a week to get recommendations tailored to your biggest emission sources.",
			PotentialSaving: 0,
			Difficulty:      DifficultyEasy,
			Category:        domain.CategoryTransport,
			ActionSteps: []string{
				"Log your daily commute",
				"Add your last energy bill",
			},
		})
	}

	return recs
}
