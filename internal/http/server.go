// Package http exposes the scheduling engine over a JSON API. Handlers
// stay thin: parsing and validation here, all scheduling and budget
// arithmetic in the schedule, budget and services packages.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/budget"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/cache"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/core"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/schedule"
)

// Store is the persistence surface the API needs.
type Store interface {
	CreateFamily(ctx context.Context, f core.Family) (core.Family, error)
	GetFamily(ctx context.Context, id string) (core.Family, error)
	CreateObligation(ctx context.Context, o core.RecurringObligation) (core.RecurringObligation, error)
	ListActiveObligations(ctx context.Context, familyID string) ([]core.RecurringObligation, error)
	CreateCreditCard(ctx context.Context, c core.CreditCardAccount) (core.CreditCardAccount, error)
	GetCreditCard(ctx context.Context, id string) (core.CreditCardAccount, error)
	ListActiveCreditCards(ctx context.Context, familyID string) ([]core.CreditCardAccount, error)
	SaveInstallmentGroup(ctx context.Context, g core.InstallmentGroup, installments []schedule.Installment) (core.InstallmentGroup, error)
	ListInstallments(ctx context.Context, groupID string) ([]schedule.Installment, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, familyID string, from, to time.Time) ([]core.Transaction, error)
	GetCategoryBudget(ctx context.Context, familyID, category string) (core.Money, []budget.SubcategoryAmount, error)
	SaveCategoryBudget(ctx context.Context, familyID, category string, total core.Money, subs []budget.SubcategoryAmount) error
	UpdateFamilyBudgetProfile(ctx context.Context, familyID string, monthlyIncome core.Money, ifPercentage float64) error
}

type Server struct {
	http.Server
	store       Store
	rateLimiter *rateLimiter

	// Projections are recomputed on demand; the cache only smooths
	// repeated reads and is invalidated by family tag on any write.
	projectionCache *cache.TaggedLRU[[]schedule.UpcomingDue]
	cacheTTL        time.Duration

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and the response cache, returning a
// ready-to-run http.Server.
func NewServer(addr string, store Store, cacheTTL time.Duration, cacheMaxSize int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            store,
		rateLimiter:      newRateLimiter(),
		projectionCache:  cache.NewTaggedLRU[[]schedule.UpcomingDue](cacheMaxSize),
		cacheTTL:         cacheTTL,
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/upcoming-dues", s.withSecurityHeaders(s.handleUpcomingDues))
	mux.HandleFunc("GET /api/card-cycle", s.withSecurityHeaders(s.handleCardCycle))
	mux.HandleFunc("GET /api/monthly-summary", s.withSecurityHeaders(s.handleMonthlySummary))

	mux.HandleFunc("POST /api/families", s.withSecurityHeaders(s.handleCreateFamily))
	mux.HandleFunc("POST /api/obligations", s.withSecurityHeaders(s.handleCreateObligation))
	mux.HandleFunc("POST /api/credit-cards", s.withSecurityHeaders(s.handleCreateCreditCard))

	mux.HandleFunc("POST /api/installments/preview", s.withSecurityHeaders(s.handleInstallmentPreview))
	mux.HandleFunc("POST /api/installments", s.withSecurityHeaders(s.handleCreateInstallments))
	mux.HandleFunc("GET /api/installments", s.withSecurityHeaders(s.handleListInstallments))

	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))

	mux.HandleFunc("GET /api/budgets", s.withSecurityHeaders(s.handleGetBudget))
	mux.HandleFunc("POST /api/budgets", s.withSecurityHeaders(s.handleSaveBudget))
	mux.HandleFunc("POST /api/budgets/validate", s.withSecurityHeaders(s.handleBudgetValidate))
	mux.HandleFunc("POST /api/budgets/redistribute", s.withSecurityHeaders(s.handleBudgetRedistribute))
	mux.HandleFunc("POST /api/budgets/if-adjustment", s.withSecurityHeaders(s.handleIFAdjustment))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.projectionCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple in-memory rate limiter, 60 POSTs per client per minute.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

// allow applies a sliding lockout: lastRequest advances on rejected
// requests too, so a client hammering above the limit stays blocked
// until it backs off for a full minute.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}
