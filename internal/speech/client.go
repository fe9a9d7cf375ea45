// Package speech proxies text-to-speech synthesis to ElevenLabs.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL     = "https://api.elevenlabs.io"
	defaultModelID     = "eleven_monolingual_v1"
	defaultHTTPTimeout = 30 * time.Second
)

// Config holds provider credentials.
type Config struct {
	APIKey  string
	VoiceID string
	BaseURL string
}

// Client synthesizes speech from text.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// Synthesize returns the audio bytes for the given text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": defaultModelID,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.cfg.BaseURL, c.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("text-to-speech status %d: %s", resp.StatusCode, data)
	}

	return io.ReadAll(resp.Body)
}
