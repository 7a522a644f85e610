package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/d2oracle/oracle/core/catalog"
	"github.com/d2oracle/oracle/core/engine"
	"github.com/d2oracle/oracle/core/infra/metrics"
	"github.com/d2oracle/oracle/core/oracle"
)

const stringWeaponBody = `{"hash":"123","itemFamily":"1","itemSubFamily":"2","ammoType":"3","damageType":"4","stats":{"1001":10}}`

type testEnv struct {
	server  *Server
	gateway *oracle.Gateway
	http    *httptest.Server
}

func newTestEnv(t *testing.T, mode oracle.ValidationMode, origins ...string) *testEnv {
	t.Helper()
	cat := catalog.Default()
	gw := oracle.NewSharedGateway(engine.New(cat, engine.Options{}), oracle.GatewayOptions{
		MaxWaiters:  256,
		WaitTimeout: 10 * time.Second,
		Metrics:     metrics.Noop{},
	})
	svc := oracle.NewService(oracle.NewValidator(mode), gw, nil)
	s := New(Options{
		Service:        svc,
		Gateway:        gw,
		Catalog:        cat,
		Metrics:        metrics.Noop{},
		AllowedOrigins: origins,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: s, gateway: gw, http: ts}
}
