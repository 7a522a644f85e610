// Package server exposes the oracle scoring pipeline over HTTP, WebSocket, gRPC and NATS.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/d2oracle/oracle/core/catalog"
	"github.com/d2oracle/oracle/core/infra/bus"
	"github.com/d2oracle/oracle/core/infra/metrics"
	"github.com/d2oracle/oracle/core/oracle"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxBodyBytes    = 1 << 20
	headerRequestID = "X-Request-ID"
)

// Options wires a Server. Service is required; the rest are optional.
type Options struct {
	Service        *oracle.Service
	Gateway        *oracle.Gateway
	Catalog        *catalog.Catalog
	Bus            *bus.NatsBus
	Metrics        metrics.GatewayMetrics
	AllowedOrigins []string
}

// Server holds the transport-facing state shared by every surface.
type Server struct {
	svc      *oracle.Service
	gateway  *oracle.Gateway
	catalog  *catalog.Catalog
	bus      *bus.NatsBus
	metrics  metrics.GatewayMetrics
	origins  map[string]struct{}
	allowAll bool
	upgrader websocket.Upgrader
	handler  http.Handler
	started  time.Time
}

// New builds a Server from opts.
func New(opts Options) *Server {
	s := &Server{
		svc:     opts.Service,
		gateway: opts.Gateway,
		catalog: opts.Catalog,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		started: time.Now().UTC(),
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	s.origins, s.allowAll = originSet(opts.AllowedOrigins)
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.isAllowedOrigin,
	}
	s.handler = s.routes()
	return s
}

// scoreEnvelope runs one score and wraps the outcome for message transports.
func (s *Server) scoreEnvelope(ctx context.Context, data []byte) []byte {
	id := oracle.RequestIDFrom(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = oracle.WithRequestID(ctx, id)
	}
	out, err := s.svc.Score(ctx, data)
	env, encErr := oracle.EncodeEnvelope(id, out, err)
	if encErr != nil {
		return []byte(`{"ok":false,"status":500,"error":"Internal Error"}`)
	}
	return env
}

// Handler is the HTTP surface with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HandleNATS answers oracle.v1.score requests.
func (s *Server) HandleNATS(ctx context.Context, data []byte) []byte {
	return s.scoreEnvelope(ctx, data)
}

type busPublisher struct {
	bus *bus.NatsBus
}

func (p busPublisher) PublishScored(_ context.Context, ev oracle.ScoredEvent) error {
	return p.bus.PublishJSON(bus.SubjectScored, ev.RequestID, ev)
}

// NewBusPublisher publishes scored events on the NATS bus.
func NewBusPublisher(b *bus.NatsBus) oracle.Publisher {
	return busPublisher{bus: b}
}
