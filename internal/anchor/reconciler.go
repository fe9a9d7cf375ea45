package anchor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jayanth922/carbontrace/internal/domain"
)

// Ledger is the slice of the ledger service the reconciler patches through.
type Ledger interface {
	AttachAnchor(ctx context.Context, activityID, txID, hash string) (*domain.Activity, error)
}

type submitter interface {
	Submit(ctx context.Context, payload Payload) (*Proof, error)
}

// Reconciler requests proof-of-existence for committed activities and merges
// the result back into the ledger. Anchoring is an enhancement, not a
// correctness requirement: every failure is logged and swallowed, and nothing
// is retried.
type Reconciler struct {
	client  submitter
	ledger  Ledger
	logger  *zap.SugaredLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewReconciler constructs a Reconciler.
func NewReconciler(client submitter, ledger Ledger, logger *zap.SugaredLogger, timeout time.Duration) *Reconciler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Reconciler{client: client, ledger: ledger, logger: logger, timeout: timeout}
}

// Anchor requests a proof for the activity without blocking the caller.
// The request deliberately detaches from the originating request context:
// a user navigating away must not abort an in-flight anchor.
func (r *Reconciler) Anchor(activity domain.Activity) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.anchor(activity)
	}()
}

// Wait blocks until all in-flight anchor requests complete. Used by shutdown
// and tests.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) anchor(activity domain.Activity) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	payload := NewPayload(activity)
	localHash := HashPayload(payload)

	proof, err := r.client.Submit(ctx, payload)
	if err != nil {
		anchorFailures.Inc()
		r.logger.Warnw("anchor request failed, leaving activity unanchored",
			"activity_id", activity.ID, "error", err)
		return
	}

	if proof.Hash != localHash {
		r.logger.Warnw("anchor service hash differs from local content hash",
			"activity_id", activity.ID, "local_hash", localHash, "anchor_hash", proof.Hash)
	}

	if _, err := r.ledger.AttachAnchor(ctx, activity.ID, proof.TxID, proof.Hash); err != nil {
		anchorFailures.Inc()
		r.logger.Warnw("failed to attach anchor proof",
			"activity_id", activity.ID, "tx_id", proof.TxID, "error", err)
		return
	}

	anchored.Inc()
	r.logger.Infow("activity anchored", "activity_id", activity.ID, "tx_id", proof.TxID)
}

// HashPayload returns the hex-encoded SHA-256 of the canonical payload JSON.
func HashPayload(payload Payload) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
