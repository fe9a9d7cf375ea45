// Package domain defines the activity ledger and its business rules.
package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnauthenticated indicates no user session was established at call time.
	ErrUnauthenticated = errors.New("no authenticated user")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
)

// ValidationError rejects a draft before persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Repository captures persistence operations for the ledger.
type Repository interface {
	Insert(ctx context.Context, activity Activity) error
	Get(ctx context.Context, userID, activityID string) (*Activity, error)
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
	SetAnchor(ctx context.Context, activityID, txID, hash string) (*Activity, error)
	SnapshotByUser(ctx context.Context, userID string) ([]Activity, error)
}

// Anchorer requests tamper-evidence proof for a committed activity.
// Implementations must not block the caller and must swallow their own errors.
type Anchorer interface {
	Anchor(activity Activity)
}

// Cursor models the keyset pagination token.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Service orchestrates ledger workflows.
type Service struct {
	repo     Repository
	anchorer Anchorer
}

// NewService constructs a Service. The anchorer may be nil, in which case
// activities are never anchored.
func NewService(repo Repository, anchorer Anchorer) *Service {
	return &Service{repo: repo, anchorer: anchorer}
}

// RecordInput captures a draft activity from the API layer.
type RecordInput struct {
	UserID      string
	Category    Category
	Description string
	CarbonKg    float64
	Metadata    Metadata
	Source      Source
}

func (in RecordInput) validate() error {
	if !in.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown category"}
	}
	if in.Description == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if math.IsNaN(in.CarbonKg) || math.IsInf(in.CarbonKg, 0) {
		return &ValidationError{Field: "carbon_kg", Reason: "must be a finite number"}
	}
	if in.CarbonKg < 0 {
		return &ValidationError{Field: "carbon_kg", Reason: "must be >= 0"}
	}
	return nil
}

// Record validates the draft, assigns identity and timestamp, persists the
// activity, and triggers best-effort anchoring. Anchoring never affects the
// returned result.
func (s *Service) Record(ctx context.Context, input RecordInput) (*Activity, error) {
	if input.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	activity := Activity{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Category:    input.Category,
		Description: input.Description,
		CarbonKg:    input.CarbonKg,
		Metadata:    input.Metadata,
		Source:      defaultSource(input.Source),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, activity); err != nil {
		return nil, err
	}

	if s.anchorer != nil {
		s.anchorer.Anchor(activity)
	}

	return &activity, nil
}

// Get fetches one activity belonging to the user.
func (s *Service) Get(ctx context.Context, userID, activityID string) (*Activity, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	activity, err := s.repo.Get(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// List returns the user's activities ordered most-recent-first.
func (s *Service) List(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	if userID == "" {
		return nil, nil, ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, userID, cursor, limit)
}

// AttachAnchor patches anchor proof onto an existing entry. Only the anchor
// fields change; everything else is immutable once persisted.
func (s *Service) AttachAnchor(ctx context.Context, activityID, txID, hash string) (*Activity, error) {
	if txID == "" || hash == "" {
		return nil, &ValidationError{Field: "anchor", Reason: "tx id and hash are both required"}
	}
	activity, err := s.repo.SetAnchor(ctx, activityID, txID, hash)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// Snapshot returns the user's full ledger, most-recent-first, for the
// aggregation views to project over.
func (s *Service) Snapshot(ctx context.Context, userID string) ([]Activity, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.SnapshotByUser(ctx, userID)
}

func defaultSource(src Source) Source {
	if src == "" {
		return SourceManual
	}
	return src
}
