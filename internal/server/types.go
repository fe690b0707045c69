package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/lookout-vision/lookout/internal/annotate"
	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// detectionService defines what the handlers need from the detection
// façade.
type detectionService interface {
	Detect(ctx context.Context, imagePath, backendName string) (*detection.Result, error)
	Backends() []string
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	service        detectionService
	renderer       *annotate.Renderer
	defaultBackend string
	corsOrigin     string
	maxUploadMB    int64
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	DefaultBackend string
}

// NewServer creates a detection server instance.
func NewServer(cfg Config, svc detectionService, renderer *annotate.Renderer) (*Server, error) {
	if svc == nil {
		return nil, errors.New("detection service is required")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.DefaultBackend == "" {
		cfg.DefaultBackend = "yolo"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if renderer == nil {
		renderer = annotate.NewRenderer(annotate.DefaultOptions())
	}
	return &Server{
		service:        svc,
		renderer:       renderer,
		defaultBackend: cfg.DefaultBackend,
		corsOrigin:     cfg.CORSOrigin,
		maxUploadMB:    cfg.MaxUploadMB,
	}, nil
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// BackendsResponse is the /backends payload.
type BackendsResponse struct {
	Backends []string `json:"backends"`
	Default  string   `json:"default"`
	Count    int      `json:"count"`
}

// DetectResponse mirrors a detection result on the wire, plus the optional
// base64-encoded annotated image.
type DetectResponse struct {
	*detection.Result
	AnnotatedImage string `json:"annotated_image,omitempty"`
}

// ErrorResponse is the uniform error envelope for malformed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.withMiddleware(s.healthHandler))
	mux.HandleFunc("/backends", s.withMiddleware(s.backendsHandler))
	mux.HandleFunc("/detect", s.withMiddleware(s.detectHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
