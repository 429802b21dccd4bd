// Package api serves audits over HTTP: asynchronous and synchronous audits,
// batches, report downloads and a live job stream.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/webaudit/internal/api/middleware"
	"github.com/khanhnv2901/webaudit/internal/auditor"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/report"
	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxRequestBytes = 1 << 20

// TargetFactory builds a target carrying the configured defaults.
type TargetFactory func(url string) audit.Target

type Config struct {
	Auditor          auditor.Service
	Jobs             *JobManager
	NewTarget        TargetFactory
	BatchConcurrency int
	BatchRateLimit   float64
	Version          string
	AuthToken        string
	Logger           *zap.Logger
	CORSOrigins      []string // Allowed CORS origins (empty = allow all)
	RateLimit        int      // Requests per second per IP (0 = disabled)
	RateBurst        int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap

	// Background audits outlive the request that started them.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Jobs == nil {
		cfg.Jobs = NewJobManager()
	}
	if cfg.NewTarget == nil {
		cfg.NewTarget = audit.NewTarget
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := middleware.RequestID(s.withLogging(s.withRateLimit(s.withCORS(s.mux))))
	handler.ServeHTTP(w, r)
}

// Close cancels background audits and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
	s.limiters.stop()
}

// Wait blocks until every background audit has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) routes() {
	s.handle("GET /api/v1/health", s.handleHealth)
	s.handle("POST /api/v1/audits", s.handleStartAudit)
	s.handle("POST /api/v1/audits/sync", s.handleSyncAudit)
	s.handle("GET /api/v1/audits/{id}", s.handleGetAudit)
	s.handle("DELETE /api/v1/audits/{id}", s.handleDeleteAudit)
	s.handle("GET /api/v1/audits/{id}/report", s.handleReport)
	s.handle("POST /api/v1/batches", s.handleStartBatch)
	s.handle("GET /api/v1/jobs", s.handleJobs)
	s.handle("GET /api/v1/stats", s.handleStats)
	s.handle("GET /api/v1/jobs-stream", s.handleJobStream)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.withAuth(h))
}

// AuditOptions overrides the configured target defaults. Nil fields keep
// the default.
type AuditOptions struct {
	TimeoutSecs           int      `json:"timeout,omitempty"`
	UserAgent             string   `json:"user_agent,omitempty"`
	CheckPerformance      *bool    `json:"check_performance,omitempty"`
	CheckSEO              *bool    `json:"check_seo,omitempty"`
	CheckAccessibility    *bool    `json:"check_accessibility,omitempty"`
	CheckSecurity         *bool    `json:"check_security,omitempty"`
	CheckMobile           *bool    `json:"check_mobile,omitempty"`
	CheckFraud            *bool    `json:"check_fraud,omitempty"`
	IncludeFraudInOverall *bool    `json:"include_fraud_in_overall,omitempty"`
	AllowedBrands         []string `json:"allowed_brands,omitempty"`
}

type AuditRequest struct {
	URL string `json:"url"`
	AuditOptions
}

type BatchRequest struct {
	URLs []string `json:"urls"`
	AuditOptions
}

type BatchResponse struct {
	BatchID string `json:"batch_id"`
	Jobs    []Job  `json:"jobs"`
}

func (s *Server) target(url string, opts AuditOptions) (audit.Target, error) {
	t := s.cfg.NewTarget(url)
	if opts.TimeoutSecs > 0 {
		t.Timeout = time.Duration(opts.TimeoutSecs) * time.Second
	}
	if opts.UserAgent != "" {
		t.UserAgent = opts.UserAgent
	}
	setBool(&t.Checks.Performance, opts.CheckPerformance)
	setBool(&t.Checks.SEO, opts.CheckSEO)
	setBool(&t.Checks.Accessibility, opts.CheckAccessibility)
	setBool(&t.Checks.Security, opts.CheckSecurity)
	setBool(&t.Checks.Mobile, opts.CheckMobile)
	setBool(&t.Checks.Fraud, opts.CheckFraud)
	setBool(&t.IncludeFraudInOverall, opts.IncludeFraudInOverall)
	if len(opts.AllowedBrands) > 0 {
		t.Fraud.AllowedBrands = append([]string(nil), opts.AllowedBrands...)
	}
	if err := t.Validate(); err != nil {
		return audit.Target{}, err
	}
	return t, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.cfg.Version,
	})
}

func (s *Server) handleStartAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if !s.decode(w, r, &req) {
		return
	}
	target, err := s.target(req.URL, req.AuditOptions)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	job := s.cfg.Jobs.CreateJob(JobTypeAudit, target.URL, "")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cfg.Jobs.MarkRunning(job.ID)
		res := s.cfg.Auditor.Audit(s.baseCtx, target)
		s.cfg.Jobs.Finish(job.ID, res)
	}()

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleSyncAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if !s.decode(w, r, &req) {
		return
	}
	target, err := s.target(req.URL, req.AuditOptions)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Auditor.Audit(r.Context(), target))
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	job := s.cfg.Jobs.GetJob(r.PathValue("id"))
	if job == nil {
		s.writeError(w, r, http.StatusNotFound, apperrors.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteAudit(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Jobs.DeleteJob(r.PathValue("id")) {
		s.writeError(w, r, http.StatusNotFound, apperrors.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "job deleted"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	format := report.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		parsed, err := report.ParseFormat(q)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		format = parsed
	}

	job := s.cfg.Jobs.GetJob(id)
	if job == nil {
		s.writeError(w, r, http.StatusNotFound, apperrors.ErrJobNotFound)
		return
	}
	if !job.Status.Finished() || job.Result == nil {
		s.writeError(w, r, http.StatusBadRequest, apperrors.ErrJobNotCompleted)
		return
	}

	data, err := report.Render(*job.Result, format)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit_"+id+"."+format.Extension()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.requestLogger(r).Error("failed to write report", zap.Error(err))
	}
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New("urls must not be empty"))
		return
	}

	targets := make([]audit.Target, 0, len(req.URLs))
	for _, u := range req.URLs {
		t, err := s.target(u, req.AuditOptions)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%s: %w", u, err))
			return
		}
		targets = append(targets, t)
	}

	batchID := generateID("batch")
	jobs := make([]Job, len(targets))
	for i, t := range targets {
		jobs[i] = *s.cfg.Jobs.CreateJob(JobTypeBatch, t.URL, batchID)
	}

	runner := auditor.NewRunner(s.cfg.Auditor, s.cfg.Logger)
	if s.cfg.BatchConcurrency > 0 {
		runner.Concurrency = s.cfg.BatchConcurrency
	}
	runner.RateLimit = s.cfg.BatchRateLimit
	runner.OnStart = func(i int) { s.cfg.Jobs.MarkRunning(jobs[i].ID) }
	runner.OnComplete = func(i int, res audit.Result) { s.cfg.Jobs.Finish(jobs[i].ID, res) }

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runner.RunBatch(s.baseCtx, targets)
	}()

	writeJSON(w, http.StatusAccepted, BatchResponse{BatchID: batchID, Jobs: jobs})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			limit = min(parsed, 100)
		}
	}
	status := JobStatus(strings.ToLower(r.URL.Query().Get("status")))
	switch status {
	case "", JobPending, JobRunning, JobCompleted, JobFailed:
	default:
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("unknown status %q", status))
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Jobs.ListJobs(limit, status))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Jobs.Stats())
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	ctx := r.Context()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(job)
			if err != nil {
				s.requestLogger(r).Error("failed to marshal job", zap.Error(err))
				continue
			}
			if !s.writeStreamChunk(w, []byte("event: job\ndata: ")) ||
				!s.writeStreamChunk(w, payload) ||
				!s.writeStreamChunk(w, []byte("\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// decode reads a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientAddr(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", clientIP))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr is the first X-Forwarded-For hop, or the remote address, without port.
func clientAddr(r *http.Request) string {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip, _, _ = strings.Cut(forwarded, ",")
		ip = strings.TrimSpace(ip)
	}
	if idx := strings.LastIndex(ip, ":"); idx > 0 && !strings.HasSuffix(ip, "]") {
		ip = ip[:idx]
	}
	return strings.Trim(ip, "[]")
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter captures the status code and bytes written.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Flush keeps the job stream working through the logging wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError hides the details of 5xx errors from clients and logs them instead.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error", zap.Error(err), zap.Int("status", status))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		}
		return false
	}
	return true
}

// rateLimiterMap holds one limiter per client IP and forgets idle clients.
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop(time.Minute, 5*time.Minute)
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.limiters[ip]
	if !ok {
		if burst <= 0 {
			burst = rps
		}
		entry = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (m *rateLimiterMap) cleanupLoop(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep(idle)
		case <-m.done:
			return
		}
	}
}

func (m *rateLimiterMap) sweep(idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, entry := range m.limiters {
		if time.Since(entry.lastSeen) > idle {
			delete(m.limiters, ip)
		}
	}
}

func (m *rateLimiterMap) stop() {
	m.once.Do(func() { close(m.done) })
}
