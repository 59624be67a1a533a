package server

import (
	"net/http"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/chazu/bfi/history"
	"github.com/chazu/bfi/manifest"
)

var log = commonlog.GetLogger("bfi.server")

// Server is the network front end for the interpreter. It serves Connect
// (HTTP/1.1 and HTTP/2), gRPC and gRPC-Web on the same port.
type Server struct {
	pool *Pool
	svc  *InterpreterService
	mux  *http.ServeMux
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	history *history.Store
}

// WithHistory records every run in store.
func WithHistory(store *history.Store) ServerOption {
	return func(c *serverConfig) { c.history = store }
}

// New creates a Server configured by m.
func New(m *manifest.Manifest, opts ...ServerOption) *Server {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	pool := NewPool(m.Server.Workers)
	s := &Server{
		pool: pool,
		svc:  NewInterpreterService(pool, m, cfg.history),
		mux:  http.NewServeMux(),
	}
	s.svc.Register(s.mux)
	return s
}

// Handler returns the HTTP handler, with cleartext HTTP/2 enabled so gRPC
// clients can connect without TLS.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.mux, &http2.Server{})
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("bfi server listening on %s", addr)
	log.Infof("Connect (HTTP/JSON): http://%s%s", addr, RunProcedure)
	log.Infof("gRPC (h2c):          grpc://%s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Stop shuts down the worker pool.
func (s *Server) Stop() {
	s.pool.Stop()
}
