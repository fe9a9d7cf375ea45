package footprint

import "github.com/jayanth922/carbontrace/internal/domain"

// Emission factors convert a physical quantity into kg CO2e.
// Transport entries are per km, energy per kWh, food per kg, shopping per item.
var factors = map[domain.Category]map[string]float64{
	domain.CategoryTransport: {
		"car_petrol":          0.21,
		"car_diesel":          0.17,
		"car_electric":        0.05,
		"bus":                 0.08,
		"train":               0.04,
		"plane_domestic":      0.25,
		"plane_international": 0.15,
		"motorcycle":          0.12,
		"bicycle":             0,
		"walking":             0,
	},
	domain.CategoryEnergy: {
		"electricity_grid": 0.5,
		"natural_gas":      0.2,
		"heating_oil":      0.27,
	},
	domain.CategoryFood: {
		"beef":       27,
		"lamb":       24,
		"pork":       12,
		"chicken":    6,
		"fish":       4,
		"dairy":      3.2,
		"eggs":       4.2,
		"vegetables": 0.4,
		"fruits":     0.7,
		"grains":     1.1,
		"legumes":    0.9,
	},
	domain.CategoryShopping: {
		"clothing_new":      8,
		"electronics_small": 15,
		"electronics_large": 300,
		"books":             1.2,
		"furniture":         50,
	},
}

// Unknown sub-types still produce a usable estimate rather than failing.
var fallbackFactors = map[domain.Category]float64{
	domain.CategoryTransport: 0.15,
	domain.CategoryEnergy:    0.5,
	domain.CategoryFood:      2,
	domain.CategoryShopping:  5,
}

// Factor returns the emission factor for (category, subType), falling back to
// the per-category default when no exact match exists. Long-haul travel reuses
// the transport table.
func Factor(category domain.Category, subType string) float64 {
	if category == domain.CategoryTravel {
		category = domain.CategoryTransport
	}
	if table, ok := factors[category]; ok {
		if factor, ok := table[subType]; ok {
			return factor
		}
	}
	if fallback, ok := fallbackFactors[category]; ok {
		return fallback
	}
	return fallbackFactors[domain.CategoryShopping]
}
