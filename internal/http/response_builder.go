// Package http provides HTTP server and handler implementations.
//
// This file implements the builder used for every JSON response and the
// mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tripledger/internal/core"
	"tripledger/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Data wraps v in the {"data": v} envelope.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	return b.Body(envelope{Data: v})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type envelope struct {
	Data any `json:"data"`
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Completed *int   `json:"completed,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Step      string `json:"step,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// TooManyRequestsError creates a 429 response asking the client to retry later.
func TooManyRequestsError(retryAfterSeconds int) *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
		Header("Retry-After", strconv.Itoa(retryAfterSeconds))
}

// ErrorFor maps a service error to its response.
func ErrorFor(err error) *JSONResponseBuilder {
	var (
		reqErr *requestError
		ve     *core.ValidationError
		pc     *core.PartialCommitError
	)
	switch {
	case errors.As(err, &reqErr):
		return BadRequestError(reqErr.Error())
	case errors.As(err, &pc):
		completed, total := pc.Completed, pc.Total
		return NewJSONResponse().Status(http.StatusBadGateway).Body(errorBody{
			Error:     pc.Error(),
			Completed: &completed,
			Total:     &total,
			Step:      pc.Step,
		})
	case errors.As(err, &ve):
		return NewJSONResponse().Status(http.StatusBadRequest).Body(errorBody{Error: ve.Err.Error(), Field: ve.Field})
	case core.IsNotFound(err):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrSessionClosed), errors.Is(err, core.ErrTripExists):
		return ConflictError(err.Error())
	default:
		return InternalServerError("internal error")
	}
}

// writeError logs err at a level matching its status and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorFor(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	if resp.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldPath, r.URL.Path, log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldPath, r.URL.Path, log.FieldError, err)
	}
	resp.Write(w)
}
