package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/services/orchestrator"
)

type scriptedOrchestrator struct {
	result *orchestrator.Result
	err    error
}

func (s *scriptedOrchestrator) HandleNotification(ctx context.Context, rawBody []byte, sigHeader string) (*orchestrator.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func postWebhook(t *testing.T, orch orchestrator.Service) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWebhookHandler(testutil.Logger(t), orch)
	r.POST("/api/webhooks/payment", h.HandlePayment)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Only a bad signature gets a non-2xx. Everything past the signature check
// is recorded in the event ledger, so failures are acked and recovered by
// reprocessing rather than by gateway retries.
func TestHandlePayment_AckContract(t *testing.T) {
	tests := []struct {
		name string
		orch *scriptedOrchestrator
		want int
	}{
		{"processed", &scriptedOrchestrator{result: &orchestrator.Result{}}, http.StatusOK},
		{"duplicate", &scriptedOrchestrator{result: &orchestrator.Result{Duplicate: true}}, http.StatusOK},
		{"bad signature", &scriptedOrchestrator{err: apierr.Signature("op", errors.New("mismatch"))}, http.StatusBadRequest},
		{"bad payload acked", &scriptedOrchestrator{err: apierr.Validation("op", "no units")}, http.StatusOK},
		{"missing metadata acked", &scriptedOrchestrator{err: apierr.FatalConfig("op", "no session_id")}, http.StatusOK},
		{"unknown session acked", &scriptedOrchestrator{err: apierr.NotFound("op", "session gone")}, http.StatusOK},
		{"store down acked", &scriptedOrchestrator{err: apierr.Transient("op", errors.New("db down"))}, http.StatusOK},
		{"unclassified acked", &scriptedOrchestrator{err: errors.New("boom")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postWebhook(t, tt.orch)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandlePayment_DuplicateFlagInBody(t *testing.T) {
	w := postWebhook(t, &scriptedOrchestrator{result: &orchestrator.Result{Duplicate: true}})
	if !strings.Contains(w.Body.String(), `"duplicate":true`) {
		t.Fatalf("body = %s, want duplicate:true", w.Body.String())
	}
}
