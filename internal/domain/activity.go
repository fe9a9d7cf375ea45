package domain

import "time"

// Category classifies a carbon-emitting activity.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryEnergy    Category = "energy"
	CategoryFood      Category = "food"
	CategoryShopping  Category = "shopping"
	CategoryTravel    Category = "travel"
	CategoryReceipt   Category = "receipt"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryTransport, CategoryEnergy, CategoryFood, CategoryShopping, CategoryTravel, CategoryReceipt:
		return true
	}
	return false
}

// Source records how the activity entered the ledger.
type Source string

const (
	SourceManual  Source = "manual"
	SourcePreset  Source = "preset"
	SourceReceipt Source = "receipt"
	SourceVoice   Source = "voice"
)

// TransportMetadata carries transport-specific attributes.
type TransportMetadata struct {
	Vehicle    string  `json:"vehicle,omitempty"`
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// EnergyMetadata carries energy-specific attributes.
type EnergyMetadata struct {
	EnergyType string  `json:"energy_type,omitempty"`
	UsageKWh   float64 `json:"usage_kwh,omitempty"`
}

// FoodMetadata carries food-specific attributes.
type FoodMetadata struct {
	FoodType string  `json:"food_type,omitempty"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}

// ShoppingMetadata carries shopping-specific attributes.
type ShoppingMetadata struct {
	ProductCategory string `json:"product_category,omitempty"`
	Quantity        int    `json:"quantity,omitempty"`
}

// Metadata is a tagged union keyed by category: at most the member matching
// the activity's category is populated. Serialized as a single JSONB column.
type Metadata struct {
	Transport *TransportMetadata `json:"transport,omitempty"`
	Energy    *EnergyMetadata    `json:"energy,omitempty"`
	Food      *FoodMetadata      `json:"food,omitempty"`
	Shopping  *ShoppingMetadata  `json:"shopping,omitempty"`
}

// Activity is the ledger entry for one user-reported carbon-emitting event.
// ID and CreatedAt are assigned at persistence time and never change.
// AnchorTxID and AnchorHash are both nil until the anchor reconciler patches
// the entry; they are always set together.
type Activity struct {
	ID          string
	UserID      string
	Category    Category
	Description string
	CarbonKg    float64
	Metadata    Metadata
	Source      Source
	CreatedAt   time.Time
	AnchorTxID  *string
	AnchorHash  *string
}

// Anchored reports whether tamper-evidence proof has been attached.
func (a Activity) Anchored() bool {
	return a.AnchorTxID != nil && a.AnchorHash != nil
}
