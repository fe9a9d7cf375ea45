// Package api exposes HTTP handlers for the carbon ledger service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jayanth922/carbontrace/internal/auth"
	"github.com/jayanth922/carbontrace/internal/domain"
	"github.com/jayanth922/carbontrace/internal/footprint"
	"github.com/jayanth922/carbontrace/internal/persistence"
	"github.com/jayanth922/carbontrace/internal/receipt"
	"github.com/jayanth922/carbontrace/internal/report"
	"github.com/jayanth922/carbontrace/internal/tips"
)

// ReceiptParser turns a receipt image into carbon line items.
type ReceiptParser interface {
	Parse(ctx context.Context, imageBase64 string) (*receipt.Result, error)
}

// SpeechSynthesizer produces audio for coach narration.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service  *domain.Service
	receipts ReceiptParser
	speech   SpeechSynthesizer
}

// NewHandler builds a Handler. Receipt and speech clients may be nil when the
// corresponding providers are not configured.
func NewHandler(service *domain.Service, receipts ReceiptParser, speech SpeechSynthesizer) *Handler {
	return &Handler{service: service, receipts: receipts, speech: speech}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/activities/summary", h.summary)
	mux.HandleFunc("/v1/tips", h.tips)
	mux.HandleFunc("/v1/receipts", h.parseReceipt)
	mux.HandleFunc("/v1/speech", h.synthesize)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.recordActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getActivity(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeFootprintWrite)
	if !ok {
		return
	}

	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	carbonKg := footprint.Compute(req.Category, req.SubType, req.Quantity)
	if req.CarbonKg != nil {
		carbonKg = *req.CarbonKg
	}

	activity, err := h.service.Record(r.Context(), domain.RecordInput{
		UserID:      claims.Subject,
		Category:    req.Category,
		Description: req.Description,
		CarbonKg:    carbonKg,
		Metadata:    req.Metadata,
		Source:      req.Source,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeFootprintRead, auth.ScopeFootprintWrite)
	if !ok {
		return
	}

	activity, err := h.service.Get(r.Context(), claims.Subject, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeFootprintRead, auth.ScopeFootprintWrite)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.service.List(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		items = append(items, toActivityView(activity))
	}

	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeFootprintRead, auth.ScopeFootprintWrite)
	if !ok {
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 31 {
				parsed = 31
			}
			days = parsed
		}
	}

	snapshot, err := h.service.Snapshot(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	total := report.Total(snapshot)
	resp := SummaryResponse{
		TotalCarbonKg: footprint.Round2(total),
		TotalDisplay:  footprint.Format(total),
		Intensity:     string(footprint.Intensity(total)),
		Days:          days,
	}

	for _, sum := range report.ByCategory(snapshot) {
		resp.ByCategory = append(resp.ByCategory, CategorySumView{
			Category: string(sum.Category),
			CarbonKg: footprint.Round2(sum.CarbonKg),
		})
	}

	for _, bucket := range report.DailySeries(snapshot, days, time.Now()) {
		resp.Daily = append(resp.Daily, DailyBucketView{
			Date:     bucket.Date.Format("2006-01-02"),
			CarbonKg: footprint.Round2(bucket.CarbonKg),
		})
	}

	for _, activity := range report.Recent(snapshot, 5) {
		resp.Recent = append(resp.Recent, toActivityView(activity))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) tips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeFootprintRead, auth.ScopeFootprintWrite)
	if !ok {
		return
	}

	snapshot, err := h.service.Snapshot(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TipsResponse{Recommendations: tips.Generate(snapshot)})
}

func (h *Handler) parseReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeFootprintWrite)
	if !ok {
		return
	}

	if h.receipts == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "receipt parsing is not configured")
		return
	}

	var req ParseReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "image_base64 is required")
		return
	}

	result, err := h.receipts.Parse(r.Context(), req.ImageBase64)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	description := "Receipt purchase"
	if len(result.Items) == 1 {
		description = result.Items[0].Description
	}

	activity, err := h.service.Record(r.Context(), domain.RecordInput{
		UserID:      claims.Subject,
		Category:    domain.CategoryReceipt,
		Description: description,
		CarbonKg:    *result.TotalCarbonKg,
		Source:      domain.SourceReceipt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ParseReceiptResponse{
		Items:    result.Items,
		Activity: toActivityView(*activity),
	})
}

func (h *Handler) synthesize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	if _, ok := requireScope(w, r, auth.ScopeFootprintRead, auth.ScopeFootprintWrite); !ok {
		return
	}

	if h.speech == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "text-to-speech is not configured")
		return
	}

	var req SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "text is required")
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+strings.Join(scopes, " or ")+" required")
	return nil, false
}

func writeDomainError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
