package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetGoal upserts a broker's monthly sales goal.
func (s *Store) SetGoal(ctx context.Context, tenantID int64, brokerID string, year, month int, value float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (tenant_id, broker_id, year, month, goal_value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, broker_id, year, month)
		DO UPDATE SET goal_value = excluded.goal_value`,
		tenantID, brokerID, year, month, value)
	if err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

// GoalProgress returns a broker's goal and accumulated sales value for
// the month of ref. A broker without a goal reads as zero, which the
// notifier renders as an empty progress bar.
func (s *Store) GoalProgress(ctx context.Context, tenantID int64, brokerID string, ref time.Time) (goal, current float64, err error) {
	year, month := ref.Year(), int(ref.Month())

	err = s.db.GetContext(ctx, &goal, `
		SELECT goal_value FROM goals
		WHERE tenant_id = ? AND broker_id = ? AND year = ? AND month = ?`,
		tenantID, brokerID, year, month)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("lookup goal: %w", err)
	}

	prefix := fmt.Sprintf("%04d-%02d", year, month)
	err = s.db.GetContext(ctx, &current, `
		SELECT COALESCE(SUM(d.value), 0)
		FROM deals d
		JOIN deal_participants p ON p.deal_id = d.id
		WHERE d.tenant_id = ? AND p.broker_id = ? AND d.sale_date LIKE ?`,
		tenantID, brokerID, prefix+"%")
	if err != nil {
		return 0, 0, fmt.Errorf("sum monthly sales: %w", err)
	}
	return goal, current, nil
}
