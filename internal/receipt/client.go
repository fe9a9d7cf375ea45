// Package receipt turns receipt images into carbon line items by chaining
// an OCR provider with an LLM parser.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	defaultVisionURL   = "https://vision.googleapis.com/v1/images:annotate"
	defaultGroqURL     = "https://api.groq.com/openai/v1/chat/completions"
	defaultHTTPTimeout = 30 * time.Second
)

const parserPrompt = `You are an assistant that parses retail receipt text into line items and estimates CO2 emissions.
For each item, output JSON object with fields:
  - "description": the item name
  - "carbon_kg": estimated carbon footprint in kilograms (round to 2 decimals)
Finally, output a top-level "total_carbon_kg" summing all items.
Respond with a single JSON object: { "items": [ ... ], "total_carbon_kg": ... }.`

// ErrNoText indicates the OCR provider found no text in the image.
var ErrNoText = errors.New("no text detected in image")

// ErrParseFailed indicates the LLM response lacked a usable total.
var ErrParseFailed = errors.New("receipt parsing failed")

// Item is one parsed receipt line with its carbon estimate.
type Item struct {
	Description string  `json:"description"`
	CarbonKg    float64 `json:"carbon_kg"`
}

// Result is the parsed receipt.
type Result struct {
	Items         []Item   `json:"items"`
	TotalCarbonKg *float64 `json:"total_carbon_kg"`
}

// Config holds provider credentials.
type Config struct {
	VisionAPIKey string
	VisionURL    string
	GroqAPIKey   string
	GroqModelID  string
	GroqURL      string
}

// Client chains Vision OCR and a Groq chat completion.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a Client, applying provider URL defaults.
func NewClient(cfg Config) *Client {
	if cfg.VisionURL == "" {
		cfg.VisionURL = defaultVisionURL
	}
	if cfg.GroqURL == "" {
		cfg.GroqURL = defaultGroqURL
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

var dataURLPrefix = regexp.MustCompile(`^data:.*;base64,`)

// Parse runs OCR over the base64 image and parses the extracted text into
// carbon line items. A result without total_carbon_kg is a parse failure.
func (c *Client) Parse(ctx context.Context, imageBase64 string) (*Result, error) {
	b64 := dataURLPrefix.ReplaceAllString(imageBase64, "")
	if strings.TrimSpace(b64) == "" {
		return nil, fmt.Errorf("empty image payload")
	}

	text, err := c.extractText(ctx, b64)
	if err != nil {
		return nil, err
	}

	result, err := c.parseText(ctx, text)
	if err != nil {
		return nil, err
	}
	if result.TotalCarbonKg == nil {
		return nil, ErrParseFailed
	}
	return result, nil
}

func (c *Client) extractText(ctx context.Context, b64 string) (string, error) {
	payload := map[string]any{
		"requests": []map[string]any{{
			"image":    map[string]string{"content": b64},
			"features": []map[string]any{{"type": "TEXT_DETECTION", "maxResults": 1}},
		}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", c.cfg.VisionURL, c.cfg.VisionAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("vision OCR status %d: %s", resp.StatusCode, data)
	}

	var visionResp struct {
		Responses []struct {
			FullTextAnnotation struct {
				Text string `json:"text"`
			} `json:"fullTextAnnotation"`
		} `json:"responses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return "", err
	}
	if len(visionResp.Responses) == 0 || visionResp.Responses[0].FullTextAnnotation.Text == "" {
		return "", ErrNoText
	}
	return visionResp.Responses[0].FullTextAnnotation.Text, nil
}

func (c *Client) parseText(ctx context.Context, ocrText string) (*Result, error) {
	payload := map[string]any{
		"model": c.cfg.GroqModelID,
		"messages": []map[string]string{
			{"role": "system", "content": parserPrompt},
			{"role": "user", "content": "Receipt text:\n" + ocrText},
		},
		"temperature": 0,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GroqURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.GroqAPIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("groq status %d: %s", resp.StatusCode, data)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, ErrParseFailed
	}

	var result Result
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return &result, nil
}
