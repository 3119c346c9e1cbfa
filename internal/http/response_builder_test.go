package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rbudget/internal/core"
	"rbudget/internal/scenario"
	"rbudget/internal/services"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Data(map[string]int{"n": 2}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Test") != "1" {
		t.Errorf("custom header missing")
	}
	if rr.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != "{\"n\":2}\n" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestErrorFor(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("load: %w", scenario.ErrNotFound), http.StatusNotFound},
		{services.ErrInvalidHorizon, http.StatusBadRequest},
		{ErrInvalidParam, http.StatusBadRequest},
		{&core.TransactionError{Err: core.ErrDuplicateAccountID}, http.StatusUnprocessableEntity},
		{fmt.Errorf("transaction 0: start: %w", core.ErrZeroDate), http.StatusUnprocessableEntity},
		{services.ErrNotListable, http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		ErrorFor(ctx, tt.err).Write(rr)
		if rr.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rr.Code, tt.want)
		}
	}

	rr := httptest.NewRecorder()
	ErrorFor(ctx, errors.New("secret path /var/db")).Write(rr)
	if rr.Body.String() != "{\"error\":\"internal error\"}\n" {
		t.Errorf("internal errors must not leak: %q", rr.Body.String())
	}
}
