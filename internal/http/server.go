// Package http exposes the JSON API: ledger mutations, pocket operations,
// budgets, dues and schedule preferences. The caller's identity arrives in
// the X-Owner-ID header; an upstream gateway is expected to have
// authenticated it.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneta/internal/insights"
	"moneta/internal/log"
	"moneta/internal/services"
	"moneta/internal/storage"
)

type Server struct {
	http.Server

	ledger  *services.LedgerService
	pockets *services.PocketService
	repo    *storage.Repository
	engine  *insights.Engine

	logger      *log.Logger
	reqLogger   *log.RequestLogger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, pockets *services.PocketService, repo *storage.Repository, engine *insights.Engine, logger *log.Logger) *Server {
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ledger:      ledger,
		pockets:     pockets,
		repo:        repo,
		engine:      engine,
		logger:      httpLogger,
		reqLogger:   log.NewRequestLogger(httpLogger),
		rateLimiter: newRateLimiter(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/v1/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.withMiddleware(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/v1/transactions/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))

	mux.HandleFunc("POST /api/v1/pockets", s.withMiddleware(s.handleCreatePocket))
	mux.HandleFunc("GET /api/v1/pockets", s.withMiddleware(s.handleListPockets))
	mux.HandleFunc("GET /api/v1/pockets/{id}", s.withMiddleware(s.handleGetPocket))
	mux.HandleFunc("POST /api/v1/pockets/{id}/add", s.withMiddleware(s.handlePocketAdd))
	mux.HandleFunc("POST /api/v1/pockets/{id}/spend", s.withMiddleware(s.handlePocketSpend))
	mux.HandleFunc("POST /api/v1/transfers", s.withMiddleware(s.handleTransfer))
	mux.HandleFunc("GET /api/v1/transfers", s.withMiddleware(s.handleListTransfers))

	mux.HandleFunc("POST /api/v1/budgets", s.withMiddleware(s.handleCreateBudget))
	mux.HandleFunc("GET /api/v1/budgets", s.withMiddleware(s.handleListBudgets))

	mux.HandleFunc("POST /api/v1/dues", s.withMiddleware(s.handleCreateDue))
	mux.HandleFunc("GET /api/v1/dues", s.withMiddleware(s.handleListDues))
	mux.HandleFunc("POST /api/v1/dues/{id}/settle", s.withMiddleware(s.handleSettleDue))

	mux.HandleFunc("GET /api/v1/schedule", s.withMiddleware(s.handleGetSchedule))
	mux.HandleFunc("PUT /api/v1/schedule", s.withMiddleware(s.handlePutSchedule))
	mux.HandleFunc("POST /api/v1/insights/brief", s.withMiddleware(s.handleTriggerBrief))

	s.Handler = log.Middleware(httpLogger)(mux)
	return s
}

// withMiddleware adds request identification, rate limiting on writes and
// completion logging around a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		// Re-install the context logger enriched with the request id so
		// handlers logging through FromContext carry it.
		reqLogger := log.FromContext(ctx).With(log.FieldRequestID, requestID)
		ctx = context.WithValue(ctx, log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Request-ID", requestID)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		s.reqLogger.LogRequest(ctx, r, rw.status, time.Since(start).Milliseconds())
	}
}

// Shutdown stops the rate limiter's cleanup goroutine and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Draining HTTP server", log.FieldOperation, log.OpShutdown)
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
