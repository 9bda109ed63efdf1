// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every API response uses the same envelope as the remote transaction store:
// {success, message, data, error}.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finboard/internal/advisor"
	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/csvcodec"
	"finboard/internal/services"
	"finboard/internal/store"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewJSONResponse creates a successful response builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the payload.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.envelope.Data = v
	return b
}

// Message sets the human-readable message.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.envelope.Message = msg
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.envelope); err != nil {
		slog.Error("Failed to encode response", "component", "http", "error", err)
	}
}

// ErrorResponse creates a failed response carrying message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	b := NewJSONResponse().Status(statusCode)
	b.envelope.Success = false
	b.envelope.Error = message
	return b
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ServiceUnavailableError creates a 503 response for a disabled feature.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// FromError maps a service error to its response.
func FromError(err error) *JSONResponseBuilder {
	var re *store.RemoteError
	switch {
	case errors.Is(err, store.ErrAuthRequired):
		return ErrorResponse(http.StatusUnauthorized, store.AuthMessage)
	case errors.As(err, &re):
		return ErrorResponse(http.StatusBadGateway, re.Message)
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError("Transaction not found")
	case isValidation(err):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, services.ErrQueueDisabled):
		return ServiceUnavailableError("Background import is not enabled")
	case errors.Is(err, csvcodec.ErrExport):
		return InternalServerError("Failed to export data")
	default:
		return InternalServerError(store.UserMessage(err))
	}
}

func isValidation(err error) bool {
	for _, target := range []error{
		core.ErrEmptyTitle,
		core.ErrTitleTooLong,
		core.ErrInvalidAmount,
		core.ErrInvalidType,
		core.ErrInvalidDate,
		services.ErrEmptyUpdate,
		analytics.ErrInvalidFilter,
		advisor.ErrEmptyQuestion,
		errInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
