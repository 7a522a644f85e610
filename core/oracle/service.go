// Package oracle turns untrusted weapon requests into engine scoring sessions.
//
// A request flows through the Validator, BuildDescriptor and the Gateway, and the
// engine output is handed back unchanged for the transports to encode.
package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/d2oracle/oracle/core/infra/logging"
)

// ScoredEvent is published after every successful score.
type ScoredEvent struct {
	RequestID     string    `json:"request_id,omitempty"`
	Hash          uint64    `json:"hash"`
	ItemFamily    uint32    `json:"item_family"`
	ItemSubFamily uint32    `json:"item_sub_family"`
	AmmoType      uint32    `json:"ammo_type"`
	DamageType    uint32    `json:"damage_type"`
	StatCount     int       `json:"stat_count"`
	DurationMs    float64   `json:"duration_ms"`
	ScoredAt      time.Time `json:"scored_at"`
}

// Publisher receives scored notifications. Failures are logged, never returned to the caller.
type Publisher interface {
	PublishScored(ctx context.Context, ev ScoredEvent) error
}

// Service composes validation, descriptor building and the engine gateway.
type Service struct {
	validator *Validator
	gateway   *Gateway
	publisher Publisher
	now       func() time.Time
}

// NewService wires a pipeline. publisher may be nil.
func NewService(validator *Validator, gateway *Gateway, publisher Publisher) *Service {
	if validator == nil {
		validator = NewValidator(ValidatePresence)
	}
	return &Service{validator: validator, gateway: gateway, publisher: publisher, now: time.Now}
}

// ValidationMode reports how the service's validator treats zero identity values.
func (s *Service) ValidationMode() ValidationMode {
	if s == nil || s.validator == nil {
		return ""
	}
	return s.validator.Mode()
}

// Score validates raw, builds a descriptor and scores it on the engine.
func (s *Service) Score(ctx context.Context, raw []byte) (SerializedWeapon, error) {
	requestID := RequestIDFrom(ctx)
	fields, err := s.validator.Validate(raw)
	if err != nil {
		logging.Warn("oracle", "request rejected", "request_id", requestID, "error", err)
		return nil, err
	}
	desc, err := BuildDescriptor(fields)
	if err != nil {
		logging.Warn("oracle", "request rejected", "request_id", requestID, "error", err)
		return nil, err
	}
	return s.ScoreDescriptor(ctx, desc)
}

// ScoreDescriptor scores an already-built descriptor.
func (s *Service) ScoreDescriptor(ctx context.Context, desc *WeaponDescriptor) (SerializedWeapon, error) {
	if s.gateway == nil {
		return nil, &EngineError{Op: "session", Err: errors.New("no gateway configured")}
	}
	requestID := RequestIDFrom(ctx)
	start := s.now()
	out, err := s.gateway.Score(ctx, desc)
	if err != nil {
		if errors.Is(err, ErrEngineRejected) {
			logging.Error("oracle", "engine rejected weapon", "request_id", requestID, "hash", desc.Hash(), "error", err)
		} else {
			logging.Warn("oracle", "score not run", "request_id", requestID, "hash", desc.Hash(), "error", err)
		}
		return nil, err
	}
	if s.publisher != nil {
		ev := ScoredEvent{
			RequestID:     requestID,
			Hash:          desc.Hash(),
			ItemFamily:    desc.ItemFamily(),
			ItemSubFamily: desc.ItemSubFamily(),
			AmmoType:      desc.AmmoType(),
			DamageType:    desc.DamageType(),
			StatCount:     desc.StatCount(),
			DurationMs:    float64(s.now().Sub(start).Microseconds()) / 1000,
			ScoredAt:      s.now().UTC(),
		}
		if perr := s.publisher.PublishScored(context.WithoutCancel(ctx), ev); perr != nil {
			logging.Warn("oracle", "publish scored event failed", "request_id", requestID, "error", perr)
		}
	}
	return out, nil
}

type requestIDKey struct{}

// WithRequestID attaches a request id for logs and events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id attached to ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
