package database

import (
	"context"
	"fmt"

	"github.com/tOgg1/forge-sub005/internal/types"
)

// ViolationDAO provides database access for resource violation records.
type ViolationDAO struct {
	db *DB
}

// NewViolationDAO creates a new ViolationDAO instance.
func NewViolationDAO(db *DB) *ViolationDAO {
	return &ViolationDAO{db: db}
}

// Create records a resource violation.
func (dao *ViolationDAO) Create(ctx context.Context, v *types.ResourceViolation) error {
	if err := v.ID.Validate(); err != nil {
		return fmt.Errorf("violation id: %w", err)
	}
	if err := v.AgentID.Validate(); err != nil {
		return fmt.Errorf("violation agent id: %w", err)
	}

	query := `
		INSERT INTO resource_violations (id, agent_id, resource, limit_value, observed, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(ctx, query,
		v.ID.String(),
		v.AgentID.String(),
		v.Resource,
		v.Limit,
		v.Observed,
		v.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}

	return nil
}

// ListByAgent returns all recorded violations for an agent, newest first.
func (dao *ViolationDAO) ListByAgent(ctx context.Context, agentID types.ID) ([]*types.ResourceViolation, error) {
	query := `
		SELECT id, agent_id, resource, limit_value, observed, occurred_at
		FROM resource_violations WHERE agent_id = ? ORDER BY occurred_at DESC
	`

	rows, err := dao.db.QueryContext(ctx, query, agentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	var violations []*types.ResourceViolation
	for rows.Next() {
		var v types.ResourceViolation
		var id, aid string
		if err := rows.Scan(&id, &aid, &v.Resource, &v.Limit, &v.Observed, &v.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		v.ID = types.ID(id)
		v.AgentID = types.ID(aid)
		violations = append(violations, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return violations, nil
}
