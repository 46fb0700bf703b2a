package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mealboard/internal/board"
	"mealboard/internal/config"
	"mealboard/internal/export"
	"mealboard/internal/metrics"
	"mealboard/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Exporter produces the JSON array of all booking records.
type Exporter interface {
	Payload(ctx context.Context) ([]byte, error)
	Invalidate(ctx context.Context) error
}

// Options wires the optional parts of the API. Routes for a nil Board or
// Exporter are not mounted.
type Options struct {
	Board       *board.Session
	Exporter    Exporter
	DateField   string
	LoadTimeout time.Duration
	Metrics     bool
	Logger      *zerolog.Logger
}

// HTTPServer exposes the export endpoint and the board API.
type HTTPServer struct {
	cfg       *config.APIConfig
	board     *board.Session
	exporter  Exporter
	dateField string
	timeout   time.Duration
	logger    *zerolog.Logger
	server    *http.Server

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewHTTPServer(cfg *config.APIConfig, opts Options) *HTTPServer {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.DateField == "" {
		opts.DateField = models.DateFieldBooking
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &HTTPServer{
		cfg:       cfg,
		board:     opts.Board,
		exporter:  opts.Exporter,
		dateField: opts.DateField,
		timeout:   opts.LoadTimeout,
		logger:    logger,
		baseCtx:   baseCtx,
		cancel:    cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/readyz", srv.handleReady)
	if srv.exporter != nil {
		mux.HandleFunc("/exec", srv.handleRecords)
		mux.HandleFunc("/api/v1/records", srv.handleRecords)
	}
	if srv.board != nil {
		mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
		mux.HandleFunc("/api/v1/reload", srv.handleReload)
	}
	if opts.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	limiter := newRateLimiter(cfg)
	handler := loggingMiddleware(logger, mux, limiter.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped request handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.cancel()
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.board != nil && !s.board.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	callback := strings.TrimSpace(r.URL.Query().Get("callback"))
	if callback != "" && !export.ValidCallbackName(callback) {
		writeError(w, http.StatusBadRequest, "invalid callback name")
		return
	}

	payload, err := s.exporter.Payload(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("export records")
		writeError(w, http.StatusBadGateway, "records unavailable")
		return
	}

	if callback == "" {
		metrics.IncExport("json")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}

	wrapped, err := export.WrapCallback(callback, payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.IncExport("callback")
	w.Header().Set("Content-Type", export.CallbackContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wrapped)
}

type bookingsResponse struct {
	State    board.State     `json:"state"`
	Date     string          `json:"date"`
	Count    int             `json:"count"`
	Bookings json.RawMessage `json:"bookings,omitempty"`
	LoadedAt *time.Time      `json:"loaded_at,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = s.board.Today().Key()
	}

	view, err := s.board.View(date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	metrics.IncView(string(view.State))

	resp := bookingsResponse{
		State:   view.State,
		Date:    view.Date,
		Count:   view.Count,
		Message: view.Message,
	}
	if view.State != board.StateReady {
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	bookings, err := models.EncodeRecords(view.Records, s.dateField)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("encode bookings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp.Bookings = bookings
	loadedAt := view.LoadedAt
	resp.LoadedAt = &loadedAt

	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.board.Loading() {
		writeError(w, http.StatusConflict, "load already in progress")
		return
	}

	if s.exporter != nil {
		if err := s.exporter.Invalidate(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("invalidate export cache")
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
		defer cancel()
		if err := s.board.Load(ctx); err != nil && !errors.Is(err, board.ErrLoadInProgress) {
			s.logger.Warn().Err(err).Msg("manual reload failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reloading"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
