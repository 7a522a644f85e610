package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/d2oracle/oracle/core/infra/logging"
	"github.com/d2oracle/oracle/core/infra/tlsutil"
	"github.com/nats-io/nats.go"
)

// Subjects used by the oracle.
const (
	SubjectScore  = "oracle.v1.score"
	SubjectScored = "oracle.v1.scored"
	QueueOracle   = "oracle"
)

const (
	envUseJetStream    = "ORACLE_NATS_JETSTREAM"
	envJSMaxAge        = "ORACLE_NATS_JS_MAX_AGE"
	envNATSTLSCA       = "ORACLE_NATS_TLS_CA"
	envNATSTLSCert     = "ORACLE_NATS_TLS_CERT"
	envNATSTLSKey      = "ORACLE_NATS_TLS_KEY"
	envNATSTLSInsecure = "ORACLE_NATS_TLS_INSECURE"

	defaultMaxAge         = 24 * time.Hour
	defaultRequestTimeout = 10 * time.Second

	streamEvents = "ORACLE_EVENTS"
)

var natsTLSEnv = tlsutil.EnvVars{
	CA:       envNATSTLSCA,
	Cert:     envNATSTLSCert,
	Key:      envNATSTLSKey,
	Insecure: envNATSTLSInsecure,
}

var (
	errNilBus     = errors.New("nats bus not initialized")
	errEmptyTopic = errors.New("empty subject")
	errNilHandler = errors.New("nil handler")
)

// RequestHandler answers a request payload with a reply payload.
type RequestHandler func(ctx context.Context, data []byte) []byte

// NatsBus is a thin wrapper over a NATS connection that speaks JSON.
type NatsBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	jsEnabled bool
}

// NewNatsBus dials NATS at the provided URL.
func NewNatsBus(url string) (*NatsBus, error) {
	opts := []nats.Option{
		nats.Name("oracle-bus"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Warn("bus", "disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("bus", "reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Info("bus", "connection closed")
		}),
	}
	tlsConfig, err := natsTLSConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		opts = append(opts, nats.Secure(tlsConfig))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	b := &NatsBus{nc: nc}
	b.initJetStreamFromEnv()
	return b, nil
}

// Close drains subscriptions and shuts down the connection.
func (b *NatsBus) Close() {
	if b == nil || b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
}

// PublishJSON encodes v and publishes it. msgID deduplicates on JetStream subjects.
func (b *NatsBus) PublishJSON(subject, msgID string, v any) error {
	if b == nil || b.nc == nil {
		return errNilBus
	}
	if subject == "" {
		return errEmptyTopic
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if b.jsEnabled && isDurableSubject(subject) {
		var popts []nats.PubOpt
		if id := computeMsgID(subject, msgID); id != "" {
			popts = append(popts, nats.MsgId(id))
		}
		_, err = b.js.Publish(subject, data, popts...)
		return err
	}
	return b.nc.Publish(subject, data)
}

// Subscribe invokes handler for every message on subject. Handler errors are logged.
func (b *NatsBus) Subscribe(subject, queue string, handler func([]byte) error) error {
	if b == nil || b.nc == nil {
		return errNilBus
	}
	if subject == "" {
		return errEmptyTopic
	}
	if handler == nil {
		return errNilHandler
	}
	cb := func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			logging.Warn("bus", "handler error", "subject", msg.Subject, "error", err)
		}
	}
	if queue == "" {
		_, err := b.nc.Subscribe(subject, cb)
		return err
	}
	_, err := b.nc.QueueSubscribe(subject, queue, cb)
	return err
}

// ServeRequests answers request-reply traffic on subject within a queue group.
func (b *NatsBus) ServeRequests(subject, queue string, handler RequestHandler) error {
	if b == nil || b.nc == nil {
		return errNilBus
	}
	if subject == "" {
		return errEmptyTopic
	}
	if handler == nil {
		return errNilHandler
	}
	cb := requestCallback(handler, defaultRequestTimeout, b.nc.Publish)
	if queue == "" {
		_, err := b.nc.Subscribe(subject, cb)
		return err
	}
	_, err := b.nc.QueueSubscribe(subject, queue, cb)
	return err
}

// Request sends data and waits for a single reply.
func (b *NatsBus) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	if b == nil || b.nc == nil {
		return nil, errNilBus
	}
	if subject == "" {
		return nil, errEmptyTopic
	}
	msg, err := b.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func requestCallback(handler RequestHandler, timeout time.Duration, respond func(subject string, data []byte) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if msg.Reply == "" {
			logging.Warn("bus", "dropping request without reply subject", "subject", msg.Subject)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp := handler(ctx, msg.Data)
		if err := respond(msg.Reply, resp); err != nil {
			logging.Error("bus", "reply failed", "subject", msg.Subject, "error", err)
		}
	}
}

func (b *NatsBus) IsConnected() bool {
	return b != nil && b.nc != nil && b.nc.IsConnected()
}

func (b *NatsBus) Status() string {
	if b == nil || b.nc == nil {
		return "UNKNOWN"
	}
	return b.nc.Status().String()
}

func (b *NatsBus) ConnectedURL() string {
	if b == nil || b.nc == nil {
		return ""
	}
	return b.nc.ConnectedUrl()
}

func initJetStreamEnabled() bool {
	return tlsutil.ParseBool(os.Getenv(envUseJetStream))
}

func (b *NatsBus) initJetStreamFromEnv() {
	if b == nil || b.nc == nil || !initJetStreamEnabled() {
		return
	}
	maxAge := defaultMaxAge
	if v := strings.TrimSpace(os.Getenv(envJSMaxAge)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			maxAge = d
		}
	}

	js, err := b.nc.JetStream()
	if err != nil {
		logging.Warn("bus", "jetstream init failed", "error", err)
		return
	}
	if _, err := js.AccountInfo(); err != nil {
		logging.Warn("bus", "jetstream not available", "error", err)
		return
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:       streamEvents,
		Subjects:   []string{SubjectScored},
		Retention:  nats.LimitsPolicy,
		Storage:    nats.FileStorage,
		MaxAge:     maxAge,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		// Stream may already exist.
		if _, infoErr := js.StreamInfo(streamEvents); infoErr != nil {
			logging.Warn("bus", "jetstream ensure stream failed", "stream", streamEvents, "error", err)
			return
		}
	}
	b.js = js
	b.jsEnabled = true
	logging.Info("bus", "jetstream enabled", "stream", streamEvents, "max_age", maxAge)
}

func isDurableSubject(subject string) bool {
	return subject == SubjectScored
}

func computeMsgID(subject, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return subject + ":" + id
}

func natsTLSConfigFromEnv() (*tls.Config, error) {
	cfg, err := tlsutil.FromEnv(natsTLSEnv, nil)
	if err != nil {
		return nil, fmt.Errorf("nats tls: %w", err)
	}
	return cfg, nil
}
