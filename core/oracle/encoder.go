package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

const (
	msgInvalidRequest = "Invalid Request"
	msgEngineBusy     = "Engine Busy"
	msgCanceled       = "Request Canceled"
	msgInternal       = "Internal Error"
)

// RetryAfterSeconds is advertised to callers rejected with ErrEngineBusy.
const RetryAfterSeconds = 1

// Failure is the wire form of a pipeline error.
type Failure struct {
	Status  int
	Message string
}

// Classify maps a pipeline error to a status and a caller-facing message.
func Classify(err error) Failure {
	var engineErr *EngineError
	switch {
	case err == nil:
		return Failure{Status: http.StatusOK}
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrMalformedField):
		return Failure{Status: http.StatusBadRequest, Message: msgInvalidRequest}
	case errors.Is(err, ErrEngineBusy):
		return Failure{Status: http.StatusServiceUnavailable, Message: msgEngineBusy}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Failure{Status: http.StatusRequestTimeout, Message: msgCanceled}
	case errors.As(err, &engineErr):
		return Failure{Status: http.StatusInternalServerError, Message: "Engine Error: " + engineErr.Reason()}
	case errors.Is(err, ErrEngineRejected):
		return Failure{Status: http.StatusInternalServerError, Message: "Engine Error: " + err.Error()}
	default:
		return Failure{Status: http.StatusInternalServerError, Message: msgInternal}
	}
}

// WriteWeapon writes the engine output as the response body, unchanged.
func WriteWeapon(w http.ResponseWriter, weapon SerializedWeapon) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(weapon)
	return err
}

// WriteFailure writes a plain-text error response for err.
func WriteFailure(w http.ResponseWriter, err error) Failure {
	f := Classify(err)
	if f.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	http.Error(w, f.Message, f.Status)
	return f
}

// Envelope wraps a result for message transports that cannot carry a status line.
type Envelope struct {
	OK        bool            `json:"ok"`
	RequestID string          `json:"request_id,omitempty"`
	Status    int             `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
	Weapon    json.RawMessage `json:"weapon,omitempty"`
}

// EncodeEnvelope builds the envelope for a score result. The weapon bytes are embedded as-is.
func EncodeEnvelope(requestID string, weapon SerializedWeapon, err error) ([]byte, error) {
	env := Envelope{OK: err == nil, RequestID: requestID}
	if err != nil {
		f := Classify(err)
		env.Status = f.Status
		env.Error = f.Message
	} else {
		env.Weapon = json.RawMessage(weapon)
	}
	return json.Marshal(env)
}
