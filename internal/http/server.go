// Package http exposes the tenant-facing API: WhatsApp channel
// lifecycle (connect, disconnect, status, live status stream) and deal
// registration, which fans out sale notifications.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/imovelware/vendazap/internal/store"
	"github.com/imovelware/vendazap/internal/whatsapp"
)

// Server wires the session manager and store into HTTP handlers.
type Server struct {
	mgr      *whatsapp.Manager
	store    *store.Store
	token    string
	upgrader websocket.Upgrader
}

func NewServer(mgr *whatsapp.Manager, st *store.Store, token string) *Server {
	return &Server{
		mgr:   mgr,
		store: st,
		token: token,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/whatsapp/connect", s.withTenant(s.handleConnect))
	mux.HandleFunc("/api/whatsapp/disconnect", s.withTenant(s.handleDisconnect))
	mux.HandleFunc("/api/whatsapp/status", s.withTenant(s.handleStatus))
	mux.HandleFunc("/api/whatsapp/send", s.withTenant(s.handleSend))
	mux.HandleFunc("/api/whatsapp/status/ws", s.withTenant(s.handleStatusWS))
	mux.HandleFunc("/api/deals", s.withTenant(s.handleCreateDeal))
	return mux
}

// withTenant authenticates the request and resolves the tenant from the
// X-Tenant slug header before invoking the handler.
func (s *Server) withTenant(h func(w http.ResponseWriter, r *http.Request, tenant *store.Tenant)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tokenMatch(extractBearerToken(r), s.token) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		slug := r.Header.Get("X-Tenant")
		if slug == "" {
			http.Error(w, `{"error":"missing X-Tenant header"}`, http.StatusBadRequest)
			return
		}
		tenant, err := s.store.TenantBySlug(r.Context(), slug)
		if err != nil {
			slog.Warn("tenant resolution failed", "slug", slug, "error", err)
			http.Error(w, `{"error":"unknown tenant"}`, http.StatusNotFound)
			return
		}
		h(w, r, tenant)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
