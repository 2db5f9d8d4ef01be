// Package server implements a plain net/http JSON transport: one handler
// exposing writeConfig/writeAllConfigs/getConfig/getContextConfigs/
// getAllConfigs/deleteConfigs plus the label application rule plug-in.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/hypertrace/config-service-go/internal/configstore"
	"github.com/hypertrace/config-service-go/internal/docstore"
	"github.com/hypertrace/config-service-go/internal/events"
)

// Server wires the versioned configuration store to HTTP handlers. It
// holds no mutable state beyond its collaborators.
type Server struct {
	store *configstore.Store
	sink  events.Sink
}

// New returns a Server backed by the given adapter and event sink. A nil
// sink defaults to a no-op.
func New(adapter docstore.Adapter, sink events.Sink) *Server {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Server{store: configstore.New(adapter, nil), sink: sink}
}

// NewHTTPHandler returns an http.Handler with all routes registered. When
// authToken is non-empty, requests other than GET /v1/health must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	mux.HandleFunc("PUT /v1/tenants/{tenant}/namespaces/{namespace}/resources/{resource}/contexts/{context...}", s.handleWriteConfig)
	mux.HandleFunc("GET /v1/tenants/{tenant}/namespaces/{namespace}/resources/{resource}/contexts/{context...}", s.handleGetConfig)
	mux.HandleFunc("DELETE /v1/tenants/{tenant}/namespaces/{namespace}/resources/{resource}/contexts/{context...}", s.handleDeleteConfig)
	mux.HandleFunc("GET /v1/tenants/{tenant}/namespaces/{namespace}/resources/{resource}", s.handleGetAllConfigs)
	mux.HandleFunc("POST /v1/tenants/{tenant}/namespaces/{namespace}/resources/{resource}/batch-write", s.handleWriteAllConfigs)
	mux.HandleFunc("POST /v1/tenants/{tenant}/namespaces/{namespace}/resources/{resource}/batch-get", s.handleGetContextConfigs)
	mux.HandleFunc("POST /v1/tenants/{tenant}/namespaces/{namespace}/resources/{resource}/batch-delete", s.handleDeleteConfigs)

	mux.HandleFunc("PUT /v1/tenants/{tenant}/label-application-rules/{id}", s.handlePutRule)
	mux.HandleFunc("GET /v1/tenants/{tenant}/label-application-rules/{id}", s.handleGetRule)
	mux.HandleFunc("DELETE /v1/tenants/{tenant}/label-application-rules/{id}", s.handleDeleteRule)
	mux.HandleFunc("GET /v1/tenants/{tenant}/label-application-rules", s.handleListRules)
	mux.HandleFunc("POST /v1/tenants/{tenant}/label-application-rules/batch", s.handlePutRules)

	return RecoveryMiddleware(LoggingMiddleware(AuthMiddleware(authToken, mux)))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.store.HealthCheck(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "document store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userIdentity(r *http.Request) (userID, userEmail string) {
	return r.Header.Get("X-User-Id"), r.Header.Get("X-User-Email")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
