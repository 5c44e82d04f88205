package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/imovelware/vendazap/internal/store"
	"github.com/imovelware/vendazap/internal/whatsapp"
)

type createDealRequest struct {
	PropertyTitle   string   `json:"propertyTitle"`
	PropertyAddress string   `json:"propertyAddress"`
	Value           float64  `json:"value"`
	SaleDate        string   `json:"saleDate"` // 2006-01-02
	BrokerIDs       []string `json:"brokerIds"`
}

// handleCreateDeal records a sale and congratulates every participant
// over WhatsApp. Notification failures never fail the deal: the rows
// are committed first and the sends are fire-and-forget.
func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request, tenant *store.Tenant) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req createDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON: %s", err)
		return
	}
	if req.PropertyTitle == "" || req.Value <= 0 || len(req.BrokerIDs) == 0 {
		errorJSON(w, http.StatusBadRequest, "propertyTitle, value and brokerIds are required")
		return
	}
	if _, err := time.Parse("2006-01-02", req.SaleDate); err != nil {
		errorJSON(w, http.StatusBadRequest, "saleDate must be YYYY-MM-DD")
		return
	}

	deal := &store.Deal{
		TenantID:        tenant.ID,
		PropertyTitle:   req.PropertyTitle,
		PropertyAddress: req.PropertyAddress,
		Value:           req.Value,
		SaleDate:        req.SaleDate,
	}
	shares, err := s.store.CreateDeal(r.Context(), deal, req.BrokerIDs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorJSON(w, http.StatusBadRequest, "no valid participants for this tenant")
			return
		}
		slog.Error("deal insert failed", "tenant", tenant.ID, "error", err)
		errorJSON(w, http.StatusInternalServerError, "could not record deal")
		return
	}

	go s.notifyParticipants(tenant.ID, deal, shares)

	writeJSON(w, http.StatusCreated, map[string]any{
		"deal":         deal,
		"participants": len(shares),
	})
}

// notifyParticipants sends one sale notification per participating
// broker. Failures are logged per participant and never interrupt the
// remaining sends.
func (s *Server) notifyParticipants(tenantID int64, deal *store.Deal, shares []store.Share) {
	ctx := context.Background()
	for _, share := range shares {
		goal, current, err := s.store.GoalProgress(ctx, tenantID, share.Broker.ID, deal.Date())
		if err != nil {
			slog.Warn("goal progress lookup failed", "tenant", tenantID, "broker", share.Broker.ID, "error", err)
		}
		ok := s.mgr.SendSaleNotification(ctx, whatsapp.SaleNotification{
			TenantID:         tenantID,
			Phone:            share.Broker.Phone,
			BrokerName:       share.Broker.Name,
			PropertyTitle:    deal.PropertyTitle,
			PropertyAddress:  deal.PropertyAddress,
			SaleValue:        deal.Value,
			SaleDate:         deal.Date(),
			CommissionValue:  share.Commission,
			CurrentMetaValue: current,
			MetaGoal:         goal,
		})
		if !ok {
			slog.Warn("sale notification not delivered", "tenant", tenantID, "broker", share.Broker.ID)
		}
	}
}
