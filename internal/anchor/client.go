// Package anchor attaches tamper-evidence proofs to committed ledger entries.
package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jayanth922/carbontrace/internal/domain"
)

// Proof is the anchor service's receipt for a payload.
type Proof struct {
	TxID string `json:"txId"`
	Hash string `json:"hash"`
}

// Client submits activity payloads to the external anchor service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client. Timeout bounds the whole request; the anchor
// service waits for on-chain confirmation before responding.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit posts the activity payload and returns the proof on a 2xx response.
func (c *Client) Submit(ctx context.Context, payload Payload) (*Proof, error) {
	body, err := json.Marshal(map[string]any{"payload": payload})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anchor service returned %d: %s", resp.StatusCode, data)
	}

	var proof Proof
	if err := json.NewDecoder(resp.Body).Decode(&proof); err != nil {
		return nil, err
	}
	if proof.TxID == "" || proof.Hash == "" {
		return nil, fmt.Errorf("anchor service response missing txId or hash")
	}
	return &proof, nil
}

// Payload is the canonical subset of activity fields covered by the proof.
// Field order is fixed so the serialized form is stable across releases.
type Payload struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Category    domain.Category `json:"category"`
	Description string          `json:"description"`
	CarbonKg    float64         `json:"carbon_kg"`
	Metadata    domain.Metadata `json:"metadata"`
	CreatedAt   string          `json:"created_at"`
}

// NewPayload extracts the significant fields of an activity.
func NewPayload(activity domain.Activity) Payload {
	return Payload{
		ID:          activity.ID,
		UserID:      activity.UserID,
		Category:    activity.Category,
		Description: activity.Description,
		CarbonKg:    activity.CarbonKg,
		Metadata:    activity.Metadata,
		CreatedAt:   activity.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
