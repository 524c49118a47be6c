package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/schedule"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type Server struct {
	http.Server

	storage      *storage.SQLiteRepository
	transactions *services.TransactionService
	bills        *services.BillService
	recurring    *services.RecurringProcessor
	jwtManager   *auth.JWTManager
	rateLimiter  *rateLimiter

	// read-side caches, invalidated on writes
	summaryCache *cache.LRUCache[core.MonthSummary]
	alertsCache  *cache.LRUCache[schedule.Alerts]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(
	addr string,
	repo *storage.SQLiteRepository,
	transactions *services.TransactionService,
	bills *services.BillService,
	recurring *services.RecurringProcessor,
	jwtManager *auth.JWTManager,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		storage:          repo,
		transactions:     transactions,
		bills:            bills,
		recurring:        recurring,
		jwtManager:       jwtManager,
		rateLimiter:      newRateLimiter(),
		summaryCache:     cache.NewLRUCache[core.MonthSummary](100, 5*time.Minute),
		alertsCache:      cache.NewLRUCache[schedule.Alerts](200, time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /auth/register", s.with(s.handleRegister))
	mux.HandleFunc("POST /auth/login", s.with(s.handleLogin))

	mux.HandleFunc("GET /me", s.with(s.requireAuth(s.handleGetMe)))
	mux.HandleFunc("PUT /me/timezone", s.with(s.requireAuth(s.handleUpdateTimezone)))

	mux.HandleFunc("GET /transactions", s.with(s.requireAuth(s.handleListTransactions)))
	mux.HandleFunc("POST /transactions", s.with(s.requireAuth(s.handleCreateTransaction)))
	mux.HandleFunc("DELETE /transactions/{id}", s.with(s.requireAuth(s.handleDeleteTransaction)))
	mux.HandleFunc("GET /summary", s.with(s.requireAuth(s.handleMonthSummary)))

	mux.HandleFunc("GET /bills", s.with(s.requireAuth(s.handleListBills)))
	mux.HandleFunc("POST /bills", s.with(s.requireAuth(s.handleCreateBill)))
	mux.HandleFunc("GET /bills/alerts", s.with(s.requireAuth(s.handleBillAlerts)))
	mux.HandleFunc("GET /bills/{id}", s.with(s.requireAuth(s.handleGetBill)))
	mux.HandleFunc("PUT /bills/{id}", s.with(s.requireAuth(s.handleUpdateBill)))
	mux.HandleFunc("DELETE /bills/{id}", s.with(s.requireAuth(s.handleDeleteBill)))
	mux.HandleFunc("POST /bills/{id}/pay", s.with(s.requireAuth(s.handlePayBill)))
	mux.HandleFunc("POST /bills/{id}/dismiss", s.with(s.requireAuth(s.handleDismissReminder)))

	mux.HandleFunc("GET /recurring", s.with(s.requireAuth(s.handleListTemplates)))
	mux.HandleFunc("POST /recurring", s.with(s.requireAuth(s.handleCreateTemplate)))
	mux.HandleFunc("GET /recurring/{id}", s.with(s.requireAuth(s.handleGetTemplate)))
	mux.HandleFunc("PUT /recurring/{id}", s.with(s.requireAuth(s.handleUpdateTemplate)))
	mux.HandleFunc("DELETE /recurring/{id}", s.with(s.requireAuth(s.handleDeleteTemplate)))
	mux.HandleFunc("POST /recurring/{id}/pause", s.with(s.requireAuth(s.handlePauseTemplate)))
	mux.HandleFunc("POST /recurring/{id}/resume", s.with(s.requireAuth(s.handleResumeTemplate)))
	mux.HandleFunc("GET /recurring/{id}/occurrences", s.with(s.requireAuth(s.handleTemplateOccurrences)))

	mux.HandleFunc("GET /budgets", s.with(s.requireAuth(s.handleListBudgets)))
	mux.HandleFunc("POST /budgets", s.with(s.requireAuth(s.handleCreateBudget)))
	mux.HandleFunc("PUT /budgets/{id}", s.with(s.requireAuth(s.handleUpdateBudget)))
	mux.HandleFunc("DELETE /budgets/{id}", s.with(s.requireAuth(s.handleDeleteBudget)))

	return s
}

// with adds security headers, rate limiting and request logging.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
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
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		logger := applog.FromContext(ctx).With(applog.FieldRequestID, requestID)
		ctx = applog.IntoContext(ctx, logger)
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "Request started",
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// requireAuth validates the bearer token and stores the user ID in context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization token required")
			return
		}
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := s.jwtManager.ValidateToken(token)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid token", applog.FieldError, err)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	}
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summaryCleaned := s.summaryCache.CleanExpired()
			alertsCleaned := s.alertsCache.CleanExpired()
			if summaryCleaned > 0 || alertsCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"summary_entries_removed", summaryCleaned,
					"alerts_entries_removed", alertsCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
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

func summaryCacheKey(userID string, year, month int) string {
	return userID + ":" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateReadCaches(userID string, year, month int) {
	s.summaryCache.Delete(summaryCacheKey(userID, year, month))
	s.alertsCache.Delete(userID)
}
