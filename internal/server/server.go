package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sellorahq/sellora-be/internal/auth"
	"github.com/sellorahq/sellora-be/internal/config"
	"github.com/sellorahq/sellora-be/internal/http/handlers"
	"github.com/sellorahq/sellora-be/internal/mail"
	"github.com/sellorahq/sellora-be/internal/middleware"
	"github.com/sellorahq/sellora-be/internal/otp"
	"github.com/sellorahq/sellora-be/internal/storage"
)

// Store is the combined persistence surface the server wires up.
type Store interface {
	storage.UserStore
	storage.ProductStore
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store Store, mailer mail.Sender) *Server {
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(time.Now())
	health.Register(mux)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	engine := otp.NewEngine(store, cfg.OTPTTL)

	authHandler := handlers.NewAuthHandler(store, engine, tokens, mailer)
	authHandler.Register(mux)

	products := handlers.NewProductHandler(store)
	mux.Handle("/products", middleware.Auth(tokens, products.Handler()))

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
