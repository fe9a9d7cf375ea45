package anchor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jayanth922/carbontrace/internal/domain"
)

type stubSubmitter struct {
	proof *Proof
	err   error
	calls int
}

func (s *stubSubmitter) Submit(ctx context.Context, payload Payload) (*Proof, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.proof, nil
}

type stubLedger struct {
	patches []patch
	err     error
}

type patch struct {
	activityID string
	txID       string
	hash       string
}

func (s *stubLedger) AttachAnchor(ctx context.Context, activityID, txID, hash string) (*domain.Activity, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.patches = append(s.patches, patch{activityID: activityID, txID: txID, hash: hash})
	return &domain.Activity{ID: activityID, AnchorTxID: &txID, AnchorHash: &hash}, nil
}

func testActivity() domain.Activity {
	return domain.Activity{
		ID:          "act-1",
		UserID:      "user-1",
		Category:    domain.CategoryTransport,
		Description: "commute",
		CarbonKg:    4.2,
		CreatedAt:   time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestReconcilerPatchesOnSuccess(t *testing.T) {
	activity := testActivity()
	proof := &Proof{TxID: "tx-42", Hash: HashPayload(NewPayload(activity))}
	submitter := &stubSubmitter{proof: proof}
	ledger := &stubLedger{}

	reconciler := NewReconciler(submitter, ledger, zaptest.NewLogger(t).Sugar(), time.Second)
	reconciler.Anchor(activity)
	reconciler.Wait()

	require.Equal(t, 1, submitter.calls)
	require.Len(t, ledger.patches, 1)
	require.Equal(t, "act-1", ledger.patches[0].activityID)
	require.Equal(t, "tx-42", ledger.patches[0].txID)
	require.Equal(t, proof.Hash, ledger.patches[0].hash)
}

func TestReconcilerSwallowsSubmitFailure(t *testing.T) {
	submitter := &stubSubmitter{err: errors.New("anchor service returned 500")}
	ledger := &stubLedger{}

	reconciler := NewReconciler(submitter, ledger, zaptest.NewLogger(t).Sugar(), time.Second)
	reconciler.Anchor(testActivity())
	reconciler.Wait()

	require.Equal(t, 1, submitter.calls)
	require.Empty(t, ledger.patches, "failed anchor must leave the entry unpatched")
}

func TestReconcilerSwallowsPatchFailure(t *testing.T) {
	submitter := &stubSubmitter{proof: &Proof{TxID: "tx-1", Hash: "abc"}}
	ledger := &stubLedger{err: errors.New("activity not found")}

	reconciler := NewReconciler(submitter, ledger, zaptest.NewLogger(t).Sugar(), time.Second)
	reconciler.Anchor(testActivity())
	reconciler.Wait()

	require.Equal(t, 1, submitter.calls)
	require.Empty(t, ledger.patches)
}

func TestHashPayloadIsStableHex(t *testing.T) {
	payload := NewPayload(testActivity())

	first := HashPayload(payload)
	second := HashPayload(payload)

	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.Regexp(t, "^[0-9a-f]{64}$", first)
}

func TestHashPayloadCoversSignificantFields(t *testing.T) {
	base := testActivity()
	changed := base
	changed.Description = "different"

	require.NotEqual(t, HashPayload(NewPayload(base)), HashPayload(NewPayload(changed)))
}
