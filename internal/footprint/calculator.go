// Package footprint estimates CO2-equivalent emissions from reported activities.
package footprint

import (
	"fmt"
	"math"

	"github.com/jayanth922/carbontrace/internal/domain"
)

// Compute derives the carbon footprint in kg CO2e for a quantity of the given
// sub-type. Quantity is expected to be finite and >= 0; callers validate.
// The result keeps full precision: round only at presentation boundaries.
func Compute(category domain.Category, subType string, quantity float64) float64 {
	return quantity * Factor(category, subType)
}

// Round2 rounds to 2 decimal places for display.
func Round2(kg float64) float64 {
	return math.Round(kg*100) / 100
}

// IntensityLevel bands a footprint for user-facing messaging.
type IntensityLevel string

const (
	IntensityLow      IntensityLevel = "low"
	IntensityMedium   IntensityLevel = "medium"
	IntensityHigh     IntensityLevel = "high"
	IntensityVeryHigh IntensityLevel = "very-high"
)

// Intensity classifies a footprint into a level.
func Intensity(kg float64) IntensityLevel {
	switch {
	case kg < 5:
		return IntensityLow
	case kg < 15:
		return IntensityMedium
	case kg < 30:
		return IntensityHigh
	default:
		return IntensityVeryHigh
	}
}

// Format renders a footprint with a unit suited to its magnitude.
func Format(kg float64) string {
	switch {
	case kg < 1:
		return fmt.Sprintf("%dg CO2", int(math.Round(kg*1000)))
	case kg < 1000:
		return fmt.Sprintf("%.1fkg CO2", kg)
	default:
		return fmt.Sprintf("%.1ft CO2", kg/1000)
	}
}
