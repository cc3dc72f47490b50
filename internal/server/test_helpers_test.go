package server

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"think-alike/internal/config"
	"think-alike/internal/engine"
	"think-alike/internal/game"
	"think-alike/internal/notify"
	"think-alike/internal/store"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.GinMode = "test"
	cfg.RateLimitPerSecond = 0
	return cfg
}

// newTestApp wires a server over a memory store with predictable player ids.
func newTestApp(t *testing.T, cfg config.Config) (*Server, *httptest.Server) {
	t.Helper()
	var ids atomic.Int32
	hub := notify.NewHub()
	eng := engine.New(engine.Options{
		Store:    store.NewMemory(0),
		Notifier: hub,
		Machine:  game.NewMachine(),
		NewID: func() string {
			return fmt.Sprintf("p%d", ids.Add(1))
		},
	})
	t.Cleanup(eng.Close)
	srv := New(eng, hub, nil, cfg)
	return srv, newTestServer(t, srv.Handler())
}
