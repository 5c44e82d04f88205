package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Broker is a sales agent belonging to one tenant.
type Broker struct {
	ID            string  `db:"id" json:"id"`
	TenantID      int64   `db:"tenant_id" json:"tenantId"`
	Name          string  `db:"name" json:"name"`
	Phone         string  `db:"phone" json:"phone"`
	CommissionPct float64 `db:"commission_pct" json:"commissionPct"`
	Active        bool    `db:"active" json:"active"`
}

// CreateBroker inserts b, assigning its id.
func (s *Store) CreateBroker(ctx context.Context, b *Broker) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO brokers (id, tenant_id, name, phone, commission_pct, active)
		VALUES (:id, :tenant_id, :name, :phone, :commission_pct, :active)`, b)
	if err != nil {
		return fmt.Errorf("insert broker %s: %w", b.Name, err)
	}
	return nil
}

// BrokersByIDs returns the tenant's brokers among ids, preserving only
// rows that actually belong to the tenant.
func (s *Store) BrokersByIDs(ctx context.Context, tenantID int64, ids []string) ([]Broker, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM brokers WHERE tenant_id = ? AND id IN (?)`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	var brokers []Broker
	if err := s.db.SelectContext(ctx, &brokers, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup brokers: %w", err)
	}
	return brokers, nil
}

// BrokersByTenant lists all active brokers for a tenant.
func (s *Store) BrokersByTenant(ctx context.Context, tenantID int64) ([]Broker, error) {
	var brokers []Broker
	err := s.db.SelectContext(ctx, &brokers,
		`SELECT * FROM brokers WHERE tenant_id = ? AND active = 1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list brokers: %w", err)
	}
	return brokers, nil
}
