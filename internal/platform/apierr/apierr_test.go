package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf_WalksWrappedChains(t *testing.T) {
	base := Conflict("order.create", "already exists")
	wrapped := fmt.Errorf("handling notification: %w", base)

	if got := CodeOf(wrapped); got != CodeConflict {
		t.Fatalf("CodeOf = %q, want conflict", got)
	}
	if !IsCode(wrapped, CodeConflict) {
		t.Fatal("IsCode missed the wrapped conflict")
	}
	if IsCode(nil, CodeConflict) {
		t.Fatal("IsCode(nil) reported a match")
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("unclassified CodeOf = %q, want internal", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("op", "bad input"), http.StatusBadRequest},
		{Signature("op", errors.New("mismatch")), http.StatusBadRequest},
		{Conflict("op", "dup"), http.StatusConflict},
		{NotFound("op", "missing"), http.StatusNotFound},
		{Transient("op", errors.New("store down")), http.StatusServiceUnavailable},
		{FatalConfig("op", "missing secret"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestError_MessageFallsBackToCause(t *testing.T) {
	e := Transient("stripe.refund", errors.New("gateway unavailable"))
	if e.Error() != "stripe.refund: gateway unavailable" {
		t.Fatalf("Error() = %q", e.Error())
	}
	if !errors.Is(e, e.Err) {
		t.Fatal("Unwrap does not expose the cause")
	}
}
