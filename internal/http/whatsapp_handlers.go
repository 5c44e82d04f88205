package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/imovelware/vendazap/internal/store"
	"github.com/imovelware/vendazap/internal/whatsapp"
)

// handleConnect fires channel bring-up and answers with the current
// snapshot right away; callers watch progress via status polling or the
// websocket stream. Bring-up failures only reach the server log.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, tenant *store.Tenant) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID := tenant.ID
	go func() {
		if err := s.mgr.Initialize(context.Background(), tenantID); err != nil {
			slog.Error("whatsapp initialize failed", "tenant", tenantID, "error", err)
		}
	}()
	writeJSON(w, http.StatusOK, s.mgr.Status(tenantID))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request, tenant *store.Tenant) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mgr.Disconnect(r.Context(), tenant.ID)
	writeJSON(w, http.StatusOK, s.mgr.Status(tenant.ID))
}

// handleSend pushes an arbitrary text message through the tenant's
// channel. The settings page uses it for "send test message"; the CLI
// exposes it as `vendazap wa send`.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, tenant *store.Tenant) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Phone   string `json:"phone"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body: %s", err)
		return
	}
	if req.Phone == "" || req.Message == "" {
		errorJSON(w, http.StatusBadRequest, "phone and message are required")
		return
	}
	delivered := s.mgr.SendMessage(r.Context(), tenant.ID, req.Phone, req.Message)
	writeJSON(w, http.StatusOK, map[string]bool{"delivered": delivered})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, tenant *store.Tenant) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.mgr.Status(tenant.ID))
}

// handleStatusWS streams status changes over a websocket: the current
// snapshot first, then one frame per transition. The settings page uses
// it to swap the QR image live while the operator pairs a phone.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request, tenant *store.Tenant) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tenant", tenant.ID, "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan whatsapp.Snapshot, 16)
	unsubscribe := s.mgr.Subscribe(tenant.ID, func(status whatsapp.Status, qr string) {
		select {
		case updates <- whatsapp.Snapshot{Status: status, QR: qr}:
		default:
			// Slow reader; it will catch up on the next transition.
		}
	})
	defer unsubscribe()

	// Reader goroutine solely to observe the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.mgr.Status(tenant.ID)); err != nil {
		return
	}
	for {
		select {
		case snap := <-updates:
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
