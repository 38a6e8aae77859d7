package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/ecowitt-ingest/internal/catalog"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
	"github.com/couchcryptid/ecowitt-ingest/internal/observability"
	"github.com/couchcryptid/ecowitt-ingest/internal/registry"
)

// Pipeline is the ingest side of the service as seen by the HTTP layer.
type Pipeline interface {
	sharedobs.ReadinessChecker
	Ingest(ctx context.Context, raw domain.RawRecord) domain.Report
	LastReport() (domain.Report, bool)
	Station() (domain.Station, bool)
}

// SensorStore exposes the sensor registry read-only.
type SensorStore interface {
	Sensors() []registry.Sensor
	Sensor(key string) (registry.Sensor, bool)
	KeysByKind(kind catalog.Kind) []string
}

// WindchillControl reads and switches the wind chill formula.
type WindchillControl interface {
	WindchillMode() domain.WindchillMode
	SetWindchillMode(name string) error
}

// Options configures a Server. Stream is optional; when set it is mounted
// at GET /ws.
type Options struct {
	Addr         string
	IngestPath   string
	MaxBodyBytes int64

	Pipeline  Pipeline
	Sensors   SensorStore
	Windchill WindchillControl
	Stream    http.Handler

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Server receives station uploads and exposes the sensor API alongside
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the ingest route, the /api/v1
// routes, /healthz, /readyz, and /metrics.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(opts.Logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)
	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      recovery(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(opts.Pipeline))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Consoles differ on whether the configured path keeps its trailing
	// slash, and the mux would answer the other form with a redirect.
	mux.HandleFunc("POST "+opts.IngestPath, s.handleIngest)
	if trimmed := strings.TrimSuffix(opts.IngestPath, "/"); trimmed != "" && trimmed != opts.IngestPath {
		mux.HandleFunc("POST "+trimmed, s.handleIngest)
	}

	mux.HandleFunc("GET /api/v1/sensors", s.handleSensors)
	mux.HandleFunc("GET /api/v1/sensors/{key}", s.handleSensor)
	mux.HandleFunc("GET /api/v1/station", s.handleStation)
	mux.HandleFunc("GET /api/v1/reports/latest", s.handleLatest)
	mux.HandleFunc("GET /api/v1/windchill", s.handleGetWindchill)
	mux.HandleFunc("PUT /api/v1/windchill", s.handlePutWindchill)

	if opts.Stream != nil {
		mux.Handle("GET /ws", opts.Stream)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr, "ingest_path", s.opts.IngestPath)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleIngest accepts a station upload. Stations retry on anything but a
// 200, so the upload is acknowledged whenever the body could be read, even
// if individual fields fail to decode.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		s.metrics.ReportsRejected.Inc()
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Warn("station upload rejected", "error", err, "remote", r.RemoteAddr)
		http.Error(w, http.StatusText(status), status)
		return
	}

	raw, err := domain.ParseForm(string(body))
	if err != nil {
		s.logger.Warn("malformed pairs skipped in station upload", "error", err, "remote", r.RemoteAddr)
	}

	// Delivery must not be cut short when the station hangs up.
	s.opts.Pipeline.Ingest(context.WithoutCancel(r.Context()), raw)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	sensors := s.opts.Sensors.Sensors()

	if name := r.URL.Query().Get("kind"); name != "" {
		kind, ok := catalog.ParseKind(name)
		if !ok {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown kind " + name})
			return
		}
		keys := make(map[string]struct{})
		for _, k := range s.opts.Sensors.KeysByKind(kind) {
			keys[k] = struct{}{}
		}
		filtered := sensors[:0]
		for _, sensor := range sensors {
			if _, ok := keys[sensor.Key]; ok {
				filtered = append(filtered, sensor)
			}
		}
		sensors = filtered
	}

	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"count": len(sensors), "sensors": sensors})
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	sensor, ok := s.opts.Sensors.Sensor(key)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "sensor " + key + " has not reported"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, sensor)
}

func (s *Server) handleStation(w http.ResponseWriter, _ *http.Request) {
	station, ok := s.opts.Pipeline.Station()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no station report received yet"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"id": station.ID(), "station": station})
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.opts.Pipeline.LastReport()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no station report received yet"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

type windchillBody struct {
	Mode string `json:"mode"`
}

func (s *Server) handleGetWindchill(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, windchillBody{Mode: s.opts.Windchill.WindchillMode().String()})
}

func (s *Server) handlePutWindchill(w http.ResponseWriter, r *http.Request) {
	var body windchillBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&body); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := s.opts.Windchill.SetWindchillMode(body.Mode); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
			"mode":  s.opts.Windchill.WindchillMode().String(),
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, windchillBody{Mode: s.opts.Windchill.WindchillMode().String()})
}
