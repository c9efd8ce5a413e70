package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// InternalErrorMessage is the only text a caller ever sees for an unexpected
// failure.
const InternalErrorMessage = "internal server error"

// Payload carries the named fields of a successful result.
type Payload map[string]any

// Failure is the error side of a Result.
type Failure struct {
	Message string
	Status  int
}

// Result is either a success payload or a Failure, never both.
type Result struct {
	status  int
	payload Payload
	failure *Failure
}

// StatusError is implemented by errors that know which HTTP status they map to.
type StatusError interface {
	error
	HTTPStatus() int
}

// OK wraps a success payload with the default 200 status.
func OK(p Payload) Result {
	return Result{status: http.StatusOK, payload: p}
}

// WithStatus wraps a success payload with an explicit status.
func WithStatus(status int, p Payload) Result {
	if status <= 0 {
		status = http.StatusOK
	}
	return Result{status: status, payload: p}
}

// Message is shorthand for OK(Payload{"message": msg}).
func Message(msg string) Result {
	return OK(Payload{"message": msg})
}

// Fail builds an error result. A zero status means 400.
func Fail(message string, status int) Result {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	return Result{failure: &Failure{Message: message, Status: status}}
}

// Internal is the generic 500 result.
func Internal() Result {
	return Fail(InternalErrorMessage, http.StatusInternalServerError)
}

// FromError converts an operation error into a Result. Errors that carry their
// own status surface verbatim; anything else is logged and hidden behind the
// generic internal error.
func FromError(err error, logger *zap.Logger) Result {
	if err == nil {
		return OK(Payload{})
	}

	var se StatusError
	if errors.As(err, &se) {
		if se.HTTPStatus() >= http.StatusInternalServerError {
			return Internal()
		}
		return Fail(se.Error(), se.HTTPStatus())
	}

	if logger != nil {
		logger.Error("unexpected operation failure", zap.Error(err))
	}
	return Internal()
}

// IsError reports whether r is the error side.
func (r Result) IsError() bool {
	return r.failure != nil
}

// Status returns the HTTP status the result will be written with.
func (r Result) Status() int {
	if r.failure != nil {
		return r.failure.Status
	}
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Failure returns the error side, or nil for a success result.
func (r Result) Failure() *Failure {
	return r.failure
}

// Payload returns the success payload, or nil for an error result.
func (r Result) Payload() Payload {
	if r.failure != nil {
		return nil
	}
	return r.payload
}

// Body is the JSON document written for r.
func (r Result) Body() any {
	if r.failure != nil {
		return map[string]string{"error": r.failure.Message}
	}
	if r.payload == nil {
		return Payload{}
	}
	body := make(Payload, len(r.payload))
	for k, v := range r.payload {
		if k == "status" {
			continue
		}
		body[k] = v
	}
	return body
}

// Write emits r as JSON.
func Write(w http.ResponseWriter, r Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Status())
	_ = json.NewEncoder(w).Encode(r.Body())
}

// Unauthorized answers 401 directly, outside the envelope.
func Unauthorized(w http.ResponseWriter) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
