package store

import (
	"context"
	"fmt"
	"time"
)

// Deal is one closed property sale.
type Deal struct {
	ID              string  `db:"id" json:"id"`
	TenantID        int64   `db:"tenant_id" json:"tenantId"`
	PropertyTitle   string  `db:"property_title" json:"propertyTitle"`
	PropertyAddress string  `db:"property_address" json:"propertyAddress,omitempty"`
	Value           float64 `db:"value" json:"value"`
	SaleDate        string  `db:"sale_date" json:"saleDate"`
	CreatedAt       string  `db:"created_at" json:"createdAt"`
}

// Share is one broker's cut of a deal, as handed to the notifier.
type Share struct {
	Broker     Broker
	Commission float64
}

// Date parses the deal's sale date.
func (d Deal) Date() time.Time {
	t, err := time.Parse("2006-01-02", d.SaleDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateDeal records the deal and each participant's commission (the
// broker's configured percentage of the sale value) in one
// transaction. The returned shares feed the notification step.
func (s *Store) CreateDeal(ctx context.Context, d *Deal, brokerIDs []string) ([]Share, error) {
	brokers, err := s.BrokersByIDs(ctx, d.TenantID, brokerIDs)
	if err != nil {
		return nil, err
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("deal has no valid participants: %w", ErrNotFound)
	}

	if d.ID == "" {
		d.ID = NewID()
	}
	d.CreatedAt = nowText()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO deals (id, tenant_id, property_title, property_address, value, sale_date, created_at)
		VALUES (:id, :tenant_id, :property_title, :property_address, :value, :sale_date, :created_at)`, d); err != nil {
		return nil, fmt.Errorf("insert deal: %w", err)
	}

	shares := make([]Share, 0, len(brokers))
	for _, b := range brokers {
		commission := d.Value * b.CommissionPct / 100
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deal_participants (deal_id, broker_id, commission_value)
			VALUES (?, ?, ?)`, d.ID, b.ID, commission); err != nil {
			return nil, fmt.Errorf("insert participant %s: %w", b.ID, err)
		}
		shares = append(shares, Share{Broker: b, Commission: commission})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deal: %w", err)
	}
	return shares, nil
}
