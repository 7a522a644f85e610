package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/d2oracle/oracle/core/infra/metrics"
)

// SerializedWeapon is the engine's JSON output, passed through untouched.
type SerializedWeapon = json.RawMessage

// Engine is the stateful scoring component. Implementations need not be goroutine-safe.
type Engine interface {
	SetWeaponIdentity(hash uint64, itemFamily, itemSubFamily, ammoType, damageType uint32) error
	SetStats(stats map[uint32]float64) error
	ReadSerializedWeapon() (json.RawMessage, error)
}

// EngineFactory builds a fresh engine for a single session.
type EngineFactory func() Engine

// GatewayOptions bound how callers wait for the shared engine.
type GatewayOptions struct {
	// MaxWaiters caps callers queued behind the running session. Zero means fail fast.
	MaxWaiters int
	// WaitTimeout caps how long a queued caller waits. Zero waits until the context ends.
	WaitTimeout time.Duration
	Metrics     metrics.EngineMetrics
}

// Gateway is the only path to an Engine. In shared mode at most one session runs at a time.
type Gateway struct {
	engine  Engine
	factory EngineFactory
	slot    chan struct{}
	waiters atomic.Int64
	opts    GatewayOptions
}

// NewSharedGateway guards a single engine instance.
func NewSharedGateway(engine Engine, opts GatewayOptions) *Gateway {
	return &Gateway{engine: engine, slot: make(chan struct{}, 1), opts: normalizeOptions(opts)}
}

// NewIsolatedGateway gives every session its own engine from factory.
func NewIsolatedGateway(factory EngineFactory, opts GatewayOptions) *Gateway {
	return &Gateway{factory: factory, opts: normalizeOptions(opts)}
}

func normalizeOptions(opts GatewayOptions) GatewayOptions {
	if opts.MaxWaiters < 0 {
		opts.MaxWaiters = 0
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	return opts
}

// Shared reports whether the gateway serializes a single engine.
func (g *Gateway) Shared() bool { return g.factory == nil }

// Waiters is the number of callers currently queued.
func (g *Gateway) Waiters() int { return int(g.waiters.Load()) }

// Score runs one set-identity, set-stats, read session for d. Once the session starts it
// runs to completion regardless of ctx.
func (g *Gateway) Score(ctx context.Context, d *WeaponDescriptor) (SerializedWeapon, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidPayload)
	}
	if err := ctx.Err(); err != nil {
		g.opts.Metrics.IncSessions(metrics.OutcomeCanceled)
		return nil, err
	}
	if g.factory != nil {
		out, err := runSession(g.factory(), d)
		g.record(err)
		return out, err
	}
	if err := g.acquire(ctx); err != nil {
		g.record(err)
		return nil, err
	}
	defer g.release()
	out, err := runSession(g.engine, d)
	g.record(err)
	return out, err
}

func (g *Gateway) acquire(ctx context.Context) error {
	select {
	case g.slot <- struct{}{}:
		g.opts.Metrics.ObserveWait(0)
		return nil
	default:
	}

	n := g.waiters.Add(1)
	defer func() {
		g.opts.Metrics.SetWaiters(int(g.waiters.Add(-1)))
	}()
	if n > int64(g.opts.MaxWaiters) {
		return fmt.Errorf("%w: %d callers already waiting", ErrEngineBusy, n-1)
	}
	g.opts.Metrics.SetWaiters(int(n))

	var timeout <-chan time.Time
	if g.opts.WaitTimeout > 0 {
		timer := time.NewTimer(g.opts.WaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	start := time.Now()
	select {
	case g.slot <- struct{}{}:
		g.opts.Metrics.ObserveWait(time.Since(start).Seconds())
		return nil
	case <-timeout:
		return fmt.Errorf("%w: waited %s", ErrEngineBusy, g.opts.WaitTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) release() {
	<-g.slot
}

func (g *Gateway) record(err error) {
	switch {
	case err == nil:
		g.opts.Metrics.IncSessions(metrics.OutcomeOK)
	case errors.Is(err, ErrEngineBusy):
		g.opts.Metrics.IncSessions(metrics.OutcomeBusy)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		g.opts.Metrics.IncSessions(metrics.OutcomeCanceled)
	default:
		g.opts.Metrics.IncSessions(metrics.OutcomeRejected)
	}
}

func runSession(e Engine, d *WeaponDescriptor) (out SerializedWeapon, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &EngineError{Op: "session", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if e == nil {
		return nil, &EngineError{Op: "session", Err: errors.New("no engine")}
	}
	if err := e.SetWeaponIdentity(d.hash, d.itemFamily, d.itemSubFamily, d.ammoType, d.damageType); err != nil {
		return nil, &EngineError{Op: "set weapon identity", Err: err}
	}
	if err := e.SetStats(d.Stats()); err != nil {
		return nil, &EngineError{Op: "set stats", Err: err}
	}
	raw, err := e.ReadSerializedWeapon()
	if err != nil {
		return nil, &EngineError{Op: "read serialized weapon", Err: err}
	}
	if !json.Valid(raw) {
		return nil, &EngineError{Op: "read serialized weapon", Err: errors.New("output is not valid JSON")}
	}
	return append(SerializedWeapon(nil), raw...), nil
}
