package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"staking-ledger-go/internal/store"

	"go.uber.org/zap"
)

type httpError struct {
	cause  error
	status int
	kind   string
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

func (e *httpError) Unwrap() error {
	return e.cause
}

// HTTPError creates an error answered with the given status and kind
func HTTPError(cause error, status int, kind string) error {
	return &httpError{cause: cause, status: status, kind: kind}
}

// BadRequest wraps a malformed request error
func BadRequest(cause error) error {
	return &httpError{cause: cause, status: http.StatusBadRequest, kind: "invalid_input"}
}

// Unauthorized means the caller presented no valid credentials
func Unauthorized(cause error) error {
	return &httpError{cause: cause, status: http.StatusUnauthorized, kind: "unauthorized"}
}

// Forbidden means the caller is known but not allowed
func Forbidden(cause error) error {
	return &httpError{cause: cause, status: http.StatusForbidden, kind: "forbidden"}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error                  string `json:"error"`
	Kind                   string `json:"kind"`
	ReconciliationRequired bool   `json:"reconciliation_required,omitempty"`
}

// classify maps an error to a status code and kind. Partial failures are
// checked first because they unwrap to the failing step's cause.
func classify(err error) (int, string) {
	var he *httpError
	if errors.As(err, &he) {
		return he.status, he.kind
	}
	switch {
	case errors.Is(err, store.ErrPartialFailure):
		return http.StatusInternalServerError, "partial_failure"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrAlreadyProcessed):
		return http.StatusConflict, "already_processed"
	case errors.Is(err, store.ErrPlanInUse):
		return http.StatusConflict, "plan_in_use"
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, store.ErrBelowMinimum):
		return http.StatusBadRequest, "below_minimum"
	case errors.Is(err, store.ErrPlanInactive):
		return http.StatusBadRequest, "plan_inactive"
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, store.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, store.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable, "dependency_unavailable"
	case errors.Is(err, store.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	body := errorBody{
		Error:                  err.Error(),
		Kind:                   kind,
		ReconciliationRequired: errors.Is(err, store.ErrReconciliationRequired),
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Bool("reconciliation_required", body.ReconciliationRequired),
			zap.Error(err))
		if kind == "internal" {
			body.Error = http.StatusText(status)
		}
	}

	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// HandlerFunc is like http.HandlerFunc but returns an error, which is
// rendered as a JSON error response.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc converts HandlerFunc to http.HandlerFunc
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

const JSONContentType = "application/json; charset=utf-8"

// ParseJSON decodes a JSON object in strict mode
func ParseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return BadRequest(err)
	}
	return nil
}

// parseOptionalJSON is ParseJSON that accepts an empty body
func parseOptionalJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return BadRequest(err)
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

func writeCreated(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(obj)
}

// M is a shortcut for ad hoc JSON objects
type M map[string]any

// pageParams reads limit and offset query parameters
func pageParams(r *http.Request) (int, int, error) {
	limit, err := intParam(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	if limit < 0 || offset < 0 {
		return 0, 0, BadRequest(errors.New("limit and offset must not be negative"))
	}
	return limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, BadRequest(errors.New(name + ": not an integer"))
	}
	return v, nil
}
