// Package httpapi provides the plain HTTP surface next to the MCP
// transport: health, documentation, and the SSE mount points.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/naicud/freecad-mcp/internal/bridge"
	"github.com/naicud/freecad-mcp/internal/tools"
)

// Server wires the HTTP collaborator endpoints.
type Server struct {
	Conns    bridge.ConnectionSource
	Registry *tools.Registry

	// Debug enables request logging and pprof handlers.
	Debug bool
}

// Router builds the chi router. The SSE and message handlers may be nil,
// in which case only the plain HTTP endpoints are mounted.
func (s *Server) Router(ssePath, messagePath string, sse, message http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.Debug {
		r.Use(middleware.Logger)
		r.Mount("/debug", middleware.Profiler())
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/docs.json", s.handleDocsJSON)
	r.Get("/docs", s.handleDocs)

	if sse != nil {
		r.Handle(ssePath, sse)
	}
	if message != nil {
		r.Handle(messagePath, message)
	}

	return r
}

type healthDetails struct {
	FreeCAD string `json:"freecad"`
	Tools   int    `json:"tools"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Details healthDetails `json:"details"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Details: healthDetails{
			FreeCAD: "connected",
			Tools:   s.Registry.Len(),
		},
	}

	alive := false
	client, err := s.Conns.Acquire(r.Context())
	if err == nil {
		alive, err = client.Ping(r.Context())
	}
	if err != nil || !alive {
		resp.Status = "degraded"
		resp.Details.FreeCAD = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocsJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": s.Registry.Summaries(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: write response: %v", err)
	}
}
