package persistence

import (
	"strings"
	"testing"
	"time"

	"github.com/jayanth922/carbontrace/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	original := &domain.Cursor{
		CreatedAt: time.Date(2026, time.March, 10, 9, 30, 0, 123456789, time.UTC),
		ID:        "5f3a9c1e-9f30-4f1a-8a40-1f2d3c4b5a69",
	}

	token := EncodeCursor(original)
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("token %q must be URL-safe without padding", token)
	}

	decoded, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", decoded.CreatedAt, original.CreatedAt)
	}
	if decoded.ID != original.ID {
		t.Fatalf("id = %q, want %q", decoded.ID, original.ID)
	}
}

func TestEncodeCursorNil(t *testing.T) {
	if got := EncodeCursor(nil); got != "" {
		t.Fatalf("nil cursor should encode to empty token, got %q", got)
	}
}

func TestDecodeCursorEmpty(t *testing.T) {
	cursor, err := DecodeCursor("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cursor != nil {
		t.Fatalf("blank token should decode to nil cursor")
	}
}

func TestDecodeCursorInvalid(t *testing.T) {
	cases := []string{
		"not-base64!!",
		"bm9wZQ==",             // padded form is rejected
		"bm9wZQ",               // decodes, but has no separator
		"MjAyNnxub3QtYS10aW1l", // bad timestamp
	}
	for _, token := range cases {
		if _, err := DecodeCursor(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}
