package webservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/antimetal/timeline-agent/internal/nodeservice"
	timelinev1 "github.com/antimetal/timeline-agent/pkg/api/timeline/v1"
	"github.com/antimetal/timeline-agent/pkg/errors"
	"github.com/antimetal/timeline-agent/pkg/timeline"
)

// Registry is the read and write surface of the collector manager the HTTP
// handlers use.
type Registry interface {
	Get(appID string) timeline.Collector
	Has(appID string) bool
}

// Lifecycle receives container events arriving over HTTP.
type Lifecycle interface {
	InitializeContainer(ctx context.Context, id nodeservice.ContainerID) error
	StopContainer(id nodeservice.ContainerID)
}

type Config struct {
	// Addr is the listen address, typically "host:0" to let the kernel pick
	// an ephemeral port.
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:0"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Server exposes the per-node timeline surface over HTTP.
type Server struct {
	cfg       Config
	registry  Registry
	lifecycle Lifecycle
	logger    logr.Logger

	server *http.Server
}

var _ timeline.RestServer = (*Server)(nil)

func New(cfg Config, registry Registry, lifecycle Lifecycle, promReg *prometheus.Registry, logger logr.Logger) (*Server, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	cfg.applyDefaults()

	s := &Server{
		cfg:       cfg,
		registry:  registry,
		lifecycle: lifecycle,
		logger:    logger.WithName("webservice"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	if promReg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.HandleFunc("/v1/timeline/apps/{app}", s.handleGetApp).Methods(http.MethodGet)
	r.HandleFunc("/v1/timeline/apps/{app}/entities", s.handleGetEntities).Methods(http.MethodGet)
	r.HandleFunc("/v1/timeline/apps/{app}/entities", s.handlePutEntities).Methods(http.MethodPost)
	if lifecycle != nil {
		r.HandleFunc("/v1/containers/{container}", s.handleInitContainer).Methods(http.MethodPut)
		r.HandleFunc("/v1/containers/{container}", s.handleStopContainer).Methods(http.MethodDelete)
	}

	s.server = &http.Server{
		Handler:      cors.Default().Handler(r),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// Serve binds the listener and starts serving in the background. It returns
// the bound address.
func (s *Server) Serve() (string, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(err, "http server exited")
		}
	}()
	addr := ln.Addr().String()
	s.logger.Info("serving", "address", addr)
	return addr, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type appInfo struct {
	AppID string `json:"appId"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["app"]
	if !s.registry.Has(appID) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no collector for application %s", appID))
		return
	}
	writeJSON(w, http.StatusOK, appInfo{AppID: appID})
}

func (s *Server) handleGetEntities(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["app"]
	c := s.registry.Get(appID)
	if c == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no collector for application %s", appID))
		return
	}
	entities, err := c.Entities(r.URL.Query().Get("type"))
	if err != nil {
		s.logger.Error(err, "failed to query entities", "app", appID)
		writeError(w, http.StatusInternalServerError, "failed to query entities")
		return
	}
	if entities == nil {
		entities = []*timelinev1.TimelineEntity{}
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handlePutEntities(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["app"]
	c := s.registry.Get(appID)
	if c == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no collector for application %s", appID))
		return
	}

	var entities []*timelinev1.TimelineEntity
	if err := json.NewDecoder(r.Body).Decode(&entities); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed entity payload: %v", err))
		return
	}
	if err := c.Put(entities...); err != nil {
		switch {
		case errors.Is(err, timeline.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, "collector is not accepting writes")
		case errors.Is(err, timeline.ErrBufferFull):
			writeError(w, http.StatusTooManyRequests, "collector write buffer full")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleInitContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseContainer(w, r)
	if !ok {
		return
	}
	if err := s.lifecycle.InitializeContainer(r.Context(), id); err != nil {
		s.logger.Error(err, "failed to initialize container", "container", id.String())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStopContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseContainer(w, r)
	if !ok {
		return
	}
	s.lifecycle.StopContainer(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseContainer(w http.ResponseWriter, r *http.Request) (nodeservice.ContainerID, bool) {
	id, err := nodeservice.ParseContainerID(mux.Vars(r)["container"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nodeservice.ContainerID{}, false
	}
	return id, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
