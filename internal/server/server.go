// Package server exposes environment map conversion over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"envmap/pkg/envmap"
	"envmap/pkg/imageio"
	"envmap/pkg/interpolation"
	"envmap/pkg/projection"
)

// DefaultMaxBodyBytes bounds uploaded images when no limit is configured.
const DefaultMaxBodyBytes = 64 << 20

// Options configure a Server.
type Options struct {
	// Version is reported by the health endpoint
	Version string

	// Workers bounds channel concurrency per request; zero means one per CPU
	Workers int

	// MaxBodyBytes bounds the size of uploaded images
	MaxBodyBytes int64

	// Timeout is applied to every request
	Timeout time.Duration
}

// Server serves the conversion API
type Server struct {
	startTime time.Time
	opts      Options
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version,omitempty"`
}

// FormatsResponse is returned by GET /formats
type FormatsResponse struct {
	Formats []string `json:"formats"`
	Methods []string `json:"methods"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer creates a new server instance
func NewServer(opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Server{
		startTime: time.Now(),
		opts:      opts,
	}
}

// Router returns the chi router with middleware and the API mounted at /api/v1.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(s.opts.Timeout))

	// CORS middleware for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Get("/formats", s.GetFormats)
		r.Post("/convert", s.Convert)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.opts.Version,
	})
}

// GetFormats lists the supported projections and interpolation methods
func (s *Server) GetFormats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, FormatsResponse{
		Formats: projection.SupportedNames(),
		Methods: []string{interpolation.Linear.String(), interpolation.Nearest.String()},
	})
}

// Convert reprojects the uploaded image and responds with a PNG.
//
// Query parameters: from and to (required), method, and background as a comma
// separated list with one value per channel.
func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	query := r.URL.Query()

	from, err := projection.ParseFormat(query.Get("from"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_FORMAT", fmt.Sprintf("from: %v", err), requestID)
		return
	}
	to, err := projection.ParseFormat(query.Get("to"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_FORMAT", fmt.Sprintf("to: %v", err), requestID)
		return
	}
	method, err := interpolation.ParseMethod(query.Get("method"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_METHOD", err.Error(), requestID)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	data, err := imageio.Decode(body, false)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE",
				fmt.Sprintf("image exceeds %d bytes", tooLarge.Limit), requestID)
			return
		}
		s.writeError(w, http.StatusBadRequest, "INVALID_IMAGE", err.Error(), requestID)
		return
	}

	background := make([]float64, data.Channels)
	if raw := query.Get("background"); raw != "" {
		background, err = parseBackground(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "INVALID_BACKGROUND", err.Error(), requestID)
			return
		}
	}

	env, err := envmap.NewWithFormat(data, from)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_IMAGE", err.Error(), requestID)
		return
	}
	if err := env.SetBackgroundColor(background, env.ValidMask()); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BACKGROUND", err.Error(), requestID)
		return
	}

	if err := env.ConvertToFormat(to, envmap.WithMethod(method), envmap.WithWorkers(s.opts.Workers)); err != nil {
		log.Printf("Conversion failed for %s: %v", requestID, err)
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", requestID)
		return
	}

	img, err := imageio.ToImage(env.Data())
	if err != nil {
		log.Printf("Encoding failed for %s: %v", requestID, err)
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", requestID)
		return
	}
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, img, ".png"); err != nil {
		log.Printf("Encoding failed for %s: %v", requestID, err)
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Envmap-Format", to.String())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// parseBackground parses "r,g,b" into channel values
func parseBackground(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	color := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid background value %q: %v", p, err)
		}
		color[i] = v
	}
	return color, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError writes a standard error response
func (s *Server) writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID,
	})
}
