// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the consumer file-storage HTTP surface: upload,
// browse, download URLs, delete, quota, plan upgrade, and batch
// cancellation. Everything is JSON over net/http; authentication is a
// bearer JWT issued by the external auth service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/billing"
	"github.com/LeeDigitalWorks/zapdrive/pkg/blobstore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/events"
	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/ratelimit"
	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr"`

	// AuthSecret is the HS256 key shared with the auth service that
	// issues user tokens.
	AuthSecret string `mapstructure:"auth_secret"`

	// MultipartMemoryBytes bounds how much of a multipart upload body
	// is buffered in memory before spilling to temp files.
	MultipartMemoryBytes int64 `mapstructure:"multipart_memory_bytes"`

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`

	// IdleTimeout closes idle keep-alive connections.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:                 ":8080",
		MultipartMemoryBytes: 32 << 20,
		ReadHeaderTimeout:    10 * time.Second,
		IdleTimeout:          2 * time.Minute,
	}
}

func (c *Config) authSecret() []byte {
	return []byte(c.AuthSecret)
}

// Deps are the collaborators the handlers delegate to.
type Deps struct {
	Uploader *uploader.Uploader
	DB       metastore.DB
	Blobs    blobstore.Store
	Billing  *billing.Service   // optional: nil disables plan upgrades
	Events   *events.Emitter    // optional
	Limiter  ratelimit.Limiter  // optional: nil disables rate limiting
}

// Server is the consumer-facing HTTP API.
type Server struct {
	cfg     Config
	up      *uploader.Uploader
	db      metastore.DB
	blobs   blobstore.Store
	billing *billing.Service
	emitter *events.Emitter
	limiter ratelimit.Limiter

	handler http.Handler
	httpSrv *http.Server
}

// NewServer assembles the route table and middleware stack.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if cfg.AuthSecret == "" {
		return nil, errors.New("api: auth secret is required")
	}
	if deps.Uploader == nil || deps.DB == nil || deps.Blobs == nil {
		return nil, errors.New("api: uploader, db, and blob store are required")
	}
	if cfg.MultipartMemoryBytes <= 0 {
		cfg.MultipartMemoryBytes = 32 << 20
	}

	s := &Server{
		cfg:     cfg,
		up:      deps.Uploader,
		db:      deps.DB,
		blobs:   deps.Blobs,
		billing: deps.Billing,
		emitter: deps.Events,
		limiter: deps.Limiter,
	}
	if s.emitter == nil {
		s.emitter = events.NoopEmitter()
	}
	if s.limiter == nil {
		s.limiter, _ = ratelimit.New(ratelimit.Config{Enabled: false})
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/files", s.protected(s.handleUpload))
	mux.Handle("GET /v1/files", s.protected(s.handleListFiles))
	mux.Handle("GET /v1/files/{id}/url", s.protected(s.handleFileURL))
	mux.Handle("DELETE /v1/files/{id}", s.protected(s.handleDeleteFile))
	mux.Handle("GET /v1/account", s.protected(s.handleAccount))
	mux.Handle("POST /v1/billing/confirm", s.protected(s.handleBillingConfirm))
	mux.Handle("POST /v1/uploads/cancel", s.protected(s.handleCancelUpload))
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	s.handler = chain(mux, withRecovery, withRequestID, withAccessLog, withMetrics)
	return s, nil
}

// protected wraps a handler with auth and per-owner rate limiting.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.authMiddleware(s.rateLimitMiddleware(h))
}

// Handler returns the full middleware-wrapped handler. Used by tests
// and by embedders that manage their own listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	logger.Info().Str("addr", s.cfg.Addr).Msg("api: server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
