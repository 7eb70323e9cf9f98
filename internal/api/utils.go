package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/security"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

// ErrorResponse writes a standard JSON error response including request ID.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	reqID := middleware.GetReqID(r.Context()) // Get request ID if available
	resp := map[string]interface{}{           // Use interface{} for potential flexibility
		"success":    false,
		"error":      message,
		"request_id": reqID,
	}
	WriteJSONResponse(w, r, status, resp) // Call the common JSON writer
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	// If data is nil and status indicates no content, just write header
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	// Marshal payload
	js, err := json.Marshal(data)
	if err != nil {
		// Log the internal error
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		// Send a generic server error response to the client
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Set headers *before* writing status or body
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status) // Write status code
	_, err = w.Write(js)  // Write JSON body
	if err != nil {
		// Log write error, client already received status code
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush() // Ensure data is sent immediately
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	// Set a max body size to prevent abuse (e.g., 1MB)
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes)) // Use ResponseWriter for MaxBytesReader

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		// Handle various JSON decoding errors gracefully
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError // Check for max bytes error

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q (wanted %s)", unmarshalTypeError.Field, unmarshalTypeError.Type)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			// Remove surrounding quotes if present
			fieldName = strings.Trim(fieldName, `"`)
			return fmt.Errorf("body contains unknown key %q", fieldName)

		// Check for MaxBytesError explicitly
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		case errors.As(err, &invalidUnmarshalError):
			// This usually indicates a programming error (passing non-pointer)
			// Panic might be appropriate here during development
			panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	// Check for trailing data after the first JSON object
	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// WriteServiceError maps the service error taxonomy onto HTTP statuses.
// Only validation messages reach the client verbatim; unexpected errors are
// logged and answered with a generic message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var status int
	var message string
	switch {
	case errors.Is(err, types.ErrValidation):
		status, message = http.StatusBadRequest, ValidationMessage(err)
	case errors.Is(err, types.ErrTooManyAttempts):
		status, message = http.StatusTooManyRequests, "Too many failed attempts, try again later"
	case errors.Is(err, types.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, PublicMessage(err, "Invalid credentials")
	case errors.Is(err, types.ErrForbidden):
		status, message = http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, types.ErrNotFound):
		status, message = http.StatusNotFound, PublicMessage(err, "Resource not found")
	case errors.Is(err, types.ErrConflict):
		status, message = http.StatusConflict, PublicMessage(err, "Resource already exists")
	default:
		logger.ErrorContext(r.Context(), "Unhandled service error", slog.Any("error", err))
		status, message = http.StatusInternalServerError, "Internal server error"
	}
	ErrorResponse(w, r, status, message)
}

// PublicError carries a message that is safe to show to API clients while
// still wrapping one of the taxonomy sentinels.
type PublicError struct {
	Message string
	Err     error
}

func (e *PublicError) Error() string { return e.Message }
func (e *PublicError) Unwrap() error { return e.Err }

// NewPublicError wraps kind with a client-facing message.
func NewPublicError(kind error, message string) error {
	return &PublicError{Message: message, Err: kind}
}

// PublicMessage returns the innermost client-facing message in err's chain,
// or fallback when there is none.
func PublicMessage(err error, fallback string) string {
	var pub *PublicError
	if errors.As(err, &pub) {
		return pub.Message
	}
	return fallback
}

// ValidationMessage returns the specific reason behind a validation failure
// without the wrapping added on the way up.
func ValidationMessage(err error) string {
	var policyErr *security.PolicyError
	if errors.As(err, &policyErr) {
		return policyErr.Message
	}
	return PublicMessage(err, "Invalid input")
}

// ParseListParams reads skip/limit query parameters with defaults 0/100.
func ParseListParams(r *http.Request) (types.ListParams, error) {
	params := types.ListParams{Skip: 0, Limit: DefaultLimit}
	q := r.URL.Query()
	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return params, NewPublicError(types.ErrValidation, "skip must be a non-negative integer")
		}
		params.Skip = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			return params, NewPublicError(types.ErrValidation, fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
		}
		params.Limit = limit
	}
	return params, nil
}

// IDParam parses a positive int64 chi URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewPublicError(types.ErrValidation, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}
