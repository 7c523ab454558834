package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"speedwordle/internal/config"
	"speedwordle/internal/logging"
)

const (
	apiRateLimitWindow          = time.Minute
	maxRequestSize              = 1024 * 1024
	apiRateLimitCleanupInterval = 5 * time.Minute
)

// APIRateLimiter tracks per-IP request counts for the REST surface. Separate
// from the gateway's own per-connection websocket rate limiter.
type APIRateLimiter struct {
	mutex    sync.RWMutex
	requests map[string]*ipRateLimit
	limit    int
}

type ipRateLimit struct {
	requests    []time.Time
	lastRequest time.Time
	violations  int
}

// Middleware provides HTTP middleware for CORS, security headers, rate
// limiting, request validation, logging, and panic recovery.
type Middleware struct {
	rateLimiter    *APIRateLimiter
	allowedOrigins map[string]bool
	allowedMethods []string
	logger         *logging.Logger
}

func NewMiddleware(cors config.CORSConfig, rate config.RateLimitConfig, logger *logging.Logger) *Middleware {
	originMap := make(map[string]bool, len(cors.AllowedOrigins))
	for _, origin := range cors.AllowedOrigins {
		originMap[strings.ToLower(origin)] = true
	}
	if len(originMap) == 0 {
		originMap["http://localhost:3000"] = true
	}

	limit := rate.APIRequestsPerMinute
	if limit <= 0 {
		limit = 120
	}

	m := &Middleware{
		rateLimiter: &APIRateLimiter{
			requests: make(map[string]*ipRateLimit),
			limit:    limit,
		},
		allowedOrigins: originMap,
		allowedMethods: cors.AllowedMethods,
		logger:         logger,
	}

	go m.startCleanupRoutine()
	return m
}

func (m *Middleware) CORSMiddleware(next http.Handler) http.Handler {
	methods := strings.Join(m.allowedMethods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && m.allowedOrigins[strings.ToLower(origin)] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		if err := m.checkRateLimit(clientIP); err != nil {
			w.Header().Set("Retry-After", "60")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.rateLimiter.limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		remaining := m.remainingRequests(clientIP)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.rateLimiter.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) RequestValidationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxRequestSize {
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		}
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") != "" {
			if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
				http.Error(w, "expected application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if m.logger != nil {
			m.logger.LogRequest(r.Context(), logging.RequestFields{
				Method:    r.Method,
				URL:       r.URL.Path,
				UserAgent: r.UserAgent(),
				IP:        getClientIP(r),
				Duration:  time.Since(start),
				Status:    wrapped.statusCode,
			})
		}
	})
}

func (m *Middleware) ErrorHandlingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if m.logger != nil {
					m.logger.LogError(r.Context(), fmt.Errorf("panic: %v", err), "httpapi: recovered from panic", "path", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error","message":"an unexpected error occurred"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Apply wraps handler with every middleware, innermost first: the last one
// wrapped (CORS) is the first to see a request.
func (m *Middleware) Apply(handler http.Handler) http.Handler {
	handler = m.ErrorHandlingMiddleware(handler)
	handler = logging.SentryHTTPMiddleware()(handler)
	handler = m.RequestLoggingMiddleware(handler)
	handler = m.SecurityHeadersMiddleware(handler)
	handler = m.RequestValidationMiddleware(handler)
	handler = m.RateLimitMiddleware(handler)
	handler = m.CORSMiddleware(handler)
	return handler
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i != -1 {
		ip = ip[:i]
	}
	return ip
}

func (m *Middleware) checkRateLimit(clientIP string) error {
	m.rateLimiter.mutex.Lock()
	defer m.rateLimiter.mutex.Unlock()

	now := time.Now()
	entry, ok := m.rateLimiter.requests[clientIP]
	if !ok {
		entry = &ipRateLimit{requests: make([]time.Time, 0, m.rateLimiter.limit)}
		m.rateLimiter.requests[clientIP] = entry
	}

	cutoff := now.Add(-apiRateLimitWindow)
	valid := entry.requests[:0]
	for _, t := range entry.requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	entry.requests = valid

	if len(entry.requests) >= m.rateLimiter.limit {
		entry.violations++
		return fmt.Errorf("rate limit exceeded: %d requests in the last minute", len(entry.requests))
	}

	entry.requests = append(entry.requests, now)
	entry.lastRequest = now
	return nil
}

func (m *Middleware) remainingRequests(clientIP string) int {
	m.rateLimiter.mutex.RLock()
	defer m.rateLimiter.mutex.RUnlock()

	entry, ok := m.rateLimiter.requests[clientIP]
	if !ok {
		return m.rateLimiter.limit
	}

	cutoff := time.Now().Add(-apiRateLimitWindow)
	valid := 0
	for _, t := range entry.requests {
		if t.After(cutoff) {
			valid++
		}
	}
	remaining := m.rateLimiter.limit - valid
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (m *Middleware) startCleanupRoutine() {
	ticker := time.NewTicker(apiRateLimitCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		m.cleanupExpired()
	}
}

func (m *Middleware) cleanupExpired() {
	m.rateLimiter.mutex.Lock()
	defer m.rateLimiter.mutex.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for ip, entry := range m.rateLimiter.requests {
		if entry.lastRequest.Before(cutoff) {
			delete(m.rateLimiter.requests, ip)
		}
	}
}

// Stats summarizes the rate limiter's current tracked state.
type Stats struct {
	TrackedIPs      int `json:"trackedIps"`
	TotalViolations int `json:"totalViolations"`
	AllowedOrigins  int `json:"allowedOrigins"`
}

func (m *Middleware) Stats() Stats {
	m.rateLimiter.mutex.RLock()
	defer m.rateLimiter.mutex.RUnlock()

	total := 0
	for _, entry := range m.rateLimiter.requests {
		total += entry.violations
	}
	return Stats{
		TrackedIPs:      len(m.rateLimiter.requests),
		TotalViolations: total,
		AllowedOrigins:  len(m.allowedOrigins),
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	ClientIPKey  contextKey = "client_ip"
)

// AddRequestContext stamps the client IP and a request id onto the context
// for downstream handlers and loggers to pick up.
func (m *Middleware) AddRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ClientIPKey, getClientIP(r))
		ctx = context.WithValue(ctx, RequestIDKey, fmt.Sprintf("%d", time.Now().UnixNano()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
