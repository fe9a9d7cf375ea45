package api

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jayanth922/carbontrace/internal/domain"
	"github.com/jayanth922/carbontrace/internal/footprint"
	"github.com/jayanth922/carbontrace/internal/receipt"
	"github.com/jayanth922/carbontrace/internal/tips"
)

// RecordActivityRequest is the payload for POST /v1/activities.
// When carbon_kg is absent the server derives it from (category, sub_type,
// quantity); when present it is taken as-is (user-entered or parsed flows).
type RecordActivityRequest struct {
	Category    domain.Category `json:"category"`
	SubType     string          `json:"sub_type"`
	Quantity    float64         `json:"quantity"`
	Description string          `json:"description"`
	CarbonKg    *float64        `json:"carbon_kg,omitempty"`
	Source      domain.Source   `json:"source,omitempty"`
	Metadata    domain.Metadata `json:"metadata,omitempty"`
}

// Validate ensures request correctness.
func (r RecordActivityRequest) Validate() error {
	if !r.Category.Valid() {
		return errors.New("category must be one of transport, energy, food, shopping, travel, receipt")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("description is required")
	}
	if r.CarbonKg == nil {
		if math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) || r.Quantity < 0 {
			return errors.New("quantity must be a finite number >= 0")
		}
	} else if math.IsNaN(*r.CarbonKg) || math.IsInf(*r.CarbonKg, 0) || *r.CarbonKg < 0 {
		return errors.New("carbon_kg must be a finite number >= 0")
	}
	return nil
}

// ActivityView exposes full details about a ledger entry. Carbon is rounded
// for display here; the stored value keeps full precision.
type ActivityView struct {
	ActivityID  string          `json:"activity_id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	CarbonKg    float64         `json:"carbon_kg"`
	Display     string          `json:"display"`
	Intensity   string          `json:"intensity"`
	Metadata    domain.Metadata `json:"metadata"`
	Source      string          `json:"source"`
	CreatedAt   time.Time       `json:"created_at"`
	AnchorTxID  *string         `json:"anchor_tx_id,omitempty"`
	AnchorHash  *string         `json:"anchor_hash,omitempty"`
	Anchored    bool            `json:"anchored"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// CategorySumView is one category total.
type CategorySumView struct {
	Category string  `json:"category"`
	CarbonKg float64 `json:"carbon_kg"`
}

// DailyBucketView is one calendar day of the daily series.
type DailyBucketView struct {
	Date     string  `json:"date"`
	CarbonKg float64 `json:"carbon_kg"`
}

// SummaryResponse is the dashboard read model.
type SummaryResponse struct {
	TotalCarbonKg float64           `json:"total_carbon_kg"`
	TotalDisplay  string            `json:"total_display"`
	Intensity     string            `json:"intensity"`
	Days          int               `json:"days"`
	ByCategory    []CategorySumView `json:"by_category"`
	Daily         []DailyBucketView `json:"daily"`
	Recent        []ActivityView    `json:"recent"`
}

// TipsResponse wraps the recommendation engine output.
type TipsResponse struct {
	Recommendations []tips.Recommendation `json:"recommendations"`
}

// ParseReceiptRequest is the payload for POST /v1/receipts.
type ParseReceiptRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// ParseReceiptResponse returns the parsed items and the recorded activity.
type ParseReceiptResponse struct {
	Items    []receipt.Item `json:"items"`
	Activity ActivityView   `json:"activity"`
}

// SynthesizeRequest is the payload for POST /v1/speech.
type SynthesizeRequest struct {
	Text string `json:"text"`
}

func toActivityView(activity domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:  activity.ID,
		Category:    string(activity.Category),
		Description: activity.Description,
		CarbonKg:    footprint.Round2(activity.CarbonKg),
		Display:     footprint.Format(activity.CarbonKg),
		Intensity:   string(footprint.Intensity(activity.CarbonKg)),
		Metadata:    activity.Metadata,
		Source:      string(activity.Source),
		CreatedAt:   activity.CreatedAt,
		AnchorTxID:  activity.AnchorTxID,
		AnchorHash:  activity.AnchorHash,
		Anchored:    activity.Anchored(),
	}
}
