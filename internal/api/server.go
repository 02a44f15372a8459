// Package api provides REST API endpoints for decoding, encoding and looking
// up boarding passes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bcbp_parser/internal/bcbp"
	"bcbp_parser/internal/codec"
	"bcbp_parser/internal/metrics"
	"bcbp_parser/internal/storage"
)

// PassStore is the subset of storage.PostgresDB the server uses.
type PassStore interface {
	SavePass(ctx context.Context, p storage.SavePassParams) (int64, error)
	GetPass(ctx context.Context, id int64) (*storage.StoredPass, error)
	GetPassesByPNR(ctx context.Context, pnr string) ([]storage.StoredPass, error)
}

// Server provides REST API access to the decoder and the pass store.
type Server struct {
	store   PassStore // nil disables the /passes endpoints
	dec     *bcbp.Decoder
	metrics *metrics.Metrics
	log     *zap.Logger
	cfg     Config
	apiKeys map[string]bool // Simple API key auth (when enabled).
}

// Config holds configuration for the API server.
type Config struct {
	Port         int
	AuthEnabled  bool
	APIKeys      []string // List of valid API keys.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer creates a new API server. m and log may be nil.
func NewServer(store PassStore, cfg Config, m *metrics.Metrics, log *zap.Logger) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	return &Server{
		store:   store,
		dec:     bcbp.NewDecoder(bcbp.WithLogger(log.Named("bcbp"))),
		metrics: m,
		log:     log,
		cfg:     cfg,
		apiKeys: keys,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("API starting", zap.String("addr", srv.Addr), zap.Bool("auth", s.cfg.AuthEnabled))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required).
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			// Optional authentication.
			if s.cfg.AuthEnabled {
				r.Use(s.authMiddleware)
			}

			r.Post("/decode", s.handleDecode)
			r.Post("/encode", s.handleEncode)

			r.Post("/passes", s.handleCreatePass)
			r.Get("/passes/{pnr}", s.handleGetPassesByPNR)
			r.Get("/pass/{id}", s.handleGetPass)
		})
	})

	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// DecodeRequest is the body of /decode and /passes.
type DecodeRequest struct {
	Data   string `json:"data"`
	Source string `json:"source,omitempty"`
}

// DecodeResponse is returned for a decoded payload.
type DecodeResponse struct {
	ID        int64        `json:"id,omitempty"`
	Pass      *bcbp.Record `json:"pass"`
	Mandatory string       `json:"mandatory"` // Canonical mandatory-only payload.
}

// DecodeErrorResponse describes why a payload did not decode.
type DecodeErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Field  string `json:"field,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

// EncodeRequest is the body of /encode.
type EncodeRequest struct {
	Record      *bcbp.Record `json:"record"`
	Conditional bool         `json:"conditional,omitempty"`
}

// EncodeResponse carries the encoded payload.
type EncodeResponse struct {
	Data string `json:"data"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"store":  s.store != nil,
	})
}

// decode runs the decoder and records metrics. On failure it writes the 422
// response and returns nil.
func (s *Server) decode(w http.ResponseWriter, data string) *bcbp.Record {
	start := time.Now()
	rec, err := s.dec.Decode(data)
	elapsed := time.Since(start)

	if err != nil {
		kind := bcbp.ErrorKind(err)
		s.metrics.ObserveScan("boarding_pass", kind, 0, elapsed)

		resp := DecodeErrorResponse{Error: err.Error(), Kind: kind}
		if f, ok := bcbp.ErrorField(err); ok {
			resp.Field = f.Name()
		}
		if off := bcbp.ErrorOffset(err); off >= 0 {
			resp.Offset = &off
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return nil
	}

	s.metrics.ObserveScan("boarding_pass", "", len(rec.Legs), elapsed)
	return rec
}

func readDecodeRequest(w http.ResponseWriter, r *http.Request) (DecodeRequest, bool) {
	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return req, false
	}
	if req.Data == "" {
		writeError(w, http.StatusBadRequest, "data is required")
		return req, false
	}
	return req, true
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	req, ok := readDecodeRequest(w, r)
	if !ok {
		return
	}

	rec := s.decode(w, req.Data)
	if rec == nil {
		return
	}

	writeEncoded(w, r, http.StatusOK, DecodeResponse{Pass: rec, Mandatory: bcbp.Encode(rec)})
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.Record == nil {
		writeError(w, http.StatusBadRequest, "record is required")
		return
	}

	var opts []bcbp.EncoderOption
	if req.Conditional {
		opts = append(opts, bcbp.WithConditional())
	}
	data, err := bcbp.NewEncoder(opts...).Encode(req.Record)
	if err != nil {
		if errors.Is(err, bcbp.ErrBlockTooLong) || errors.Is(err, bcbp.ErrNoLegs) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, EncodeResponse{Data: data})
}

func (s *Server) handleCreatePass(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Pass store not configured")
		return
	}
	req, ok := readDecodeRequest(w, r)
	if !ok {
		return
	}

	rec := s.decode(w, req.Data)
	if rec == nil {
		return
	}

	id, err := s.store.SavePass(r.Context(), storage.SavePassParams{
		RawData:   req.Data,
		Source:    req.Source,
		ScannedAt: time.Now().UTC(),
		Record:    rec,
	})
	if err != nil {
		s.metrics.ObserveStoreError("postgres")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, DecodeResponse{ID: id, Pass: rec, Mandatory: bcbp.Encode(rec)})
}

// PassResponse is a stored pass.
type PassResponse struct {
	ID        int64        `json:"id"`
	Data      string       `json:"data"`
	Source    string       `json:"source,omitempty"`
	FirstSeen string       `json:"first_seen"`
	LastSeen  string       `json:"last_seen"`
	ScanCount int          `json:"scan_count"`
	Pass      *bcbp.Record `json:"pass"`
}

func passToResponse(p *storage.StoredPass) PassResponse {
	return PassResponse{
		ID:        p.ID,
		Data:      p.RawData,
		Source:    p.Source,
		FirstSeen: p.FirstSeen.UTC().Format(time.RFC3339),
		LastSeen:  p.LastSeen.UTC().Format(time.RFC3339),
		ScanCount: p.ScanCount,
		Pass:      p.Record,
	}
}

func (s *Server) handleGetPassesByPNR(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Pass store not configured")
		return
	}
	pnr := strings.ToUpper(chi.URLParam(r, "pnr"))
	if pnr == "" || len(pnr) > bcbp.FieldOperatingAirlinePNR.Len() {
		writeError(w, http.StatusBadRequest, "pnr must be 1-7 characters")
		return
	}

	passes, err := s.store.GetPassesByPNR(r.Context(), pnr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(passes) == 0 {
		writeError(w, http.StatusNotFound, "No passes found for PNR")
		return
	}

	results := make([]PassResponse, 0, len(passes))
	for i := range passes {
		results = append(results, passToResponse(&passes[i]))
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetPass(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Pass store not configured")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	p, err := s.store.GetPass(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Pass not found")
		return
	}
	writeJSON(w, http.StatusOK, passToResponse(p))
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeEncoded honours Accept: application/cbor, defaulting to JSON.
func writeEncoded(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if !strings.Contains(r.Header.Get("Accept"), codec.FormatCBOR.ContentType()) {
		writeJSON(w, status, data)
		return
	}
	b, err := codec.MarshalCBOR(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", codec.FormatCBOR.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
