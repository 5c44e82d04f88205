package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Tenant is one customer agency. The WhatsApp core keys everything by
// the integer id; the HTTP layer resolves it from the slug.
type Tenant struct {
	ID        int64  `db:"id" json:"id"`
	Slug      string `db:"slug" json:"slug"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

// CreateTenant inserts a tenant and returns it with its assigned id.
func (s *Store) CreateTenant(ctx context.Context, slug, name string) (*Tenant, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (slug, name, created_at) VALUES (?, ?, ?)`,
		slug, name, nowText())
	if err != nil {
		return nil, fmt.Errorf("insert tenant %s: %w", slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.TenantByID(ctx, id)
}

// TenantBySlug resolves a tenant from its URL slug.
func (s *Store) TenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var t Tenant
	err := s.db.GetContext(ctx, &t, `SELECT * FROM tenants WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tenant %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tenant %s: %w", slug, err)
	}
	return &t, nil
}

// Tenants returns every tenant ordered by id.
func (s *Store) Tenants(ctx context.Context) ([]Tenant, error) {
	var out []Tenant
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM tenants ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return out, nil
}

func (s *Store) TenantByID(ctx context.Context, id int64) (*Tenant, error) {
	var t Tenant
	err := s.db.GetContext(ctx, &t, `SELECT * FROM tenants WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tenant %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tenant %d: %w", id, err)
	}
	return &t, nil
}
