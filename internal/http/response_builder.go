// This file implements a small builder for JSON responses so every handler
// writes status, headers and error bodies the same way.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"rbudget/internal/core"
	"rbudget/internal/middleware/trace"
	"rbudget/internal/scenario"
	"rbudget/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.data != nil {
		_ = json.NewEncoder(w).Encode(b.data)
	}
}

// errorBody is the shape of every error reply.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates an error reply tagged with the request identifier
// found in ctx.
func ErrorResponse(ctx context.Context, statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(errorBody{Error: message, RequestID: trace.RequestID(ctx)})
}

func BadRequestError(ctx context.Context, message string) *JSONResponseBuilder {
	return ErrorResponse(ctx, http.StatusBadRequest, message)
}

func NotFoundError(ctx context.Context, message string) *JSONResponseBuilder {
	return ErrorResponse(ctx, http.StatusNotFound, message)
}

func UnprocessableEntityError(ctx context.Context, message string) *JSONResponseBuilder {
	return ErrorResponse(ctx, http.StatusUnprocessableEntity, message)
}

// InternalServerError hides the cause from the caller.
func InternalServerError(ctx context.Context) *JSONResponseBuilder {
	return ErrorResponse(ctx, http.StatusInternalServerError, "internal error")
}

// ErrorFor maps a service error onto a reply.
func ErrorFor(ctx context.Context, err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, scenario.ErrNotFound):
		return NotFoundError(ctx, err.Error())
	case errors.Is(err, services.ErrInvalidHorizon), errors.Is(err, ErrInvalidParam):
		return BadRequestError(ctx, err.Error())
	case errors.Is(err, core.ErrInvalidAccountID),
		errors.Is(err, core.ErrDuplicateAccountID),
		errors.Is(err, core.ErrInvalidStartEndDateCombination),
		errors.Is(err, core.ErrZeroDate):
		return UnprocessableEntityError(ctx, err.Error())
	case errors.Is(err, services.ErrNotListable):
		return ErrorResponse(ctx, http.StatusNotImplemented, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(ctx, http.StatusGatewayTimeout, "projection timed out")
	default:
		return InternalServerError(ctx)
	}
}
