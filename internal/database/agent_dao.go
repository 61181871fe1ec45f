package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tOgg1/forge-sub005/internal/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// AgentDAO provides database access for Agent entities.
type AgentDAO struct {
	db *DB
}

// NewAgentDAO creates a new AgentDAO instance.
func NewAgentDAO(db *DB) *AgentDAO {
	return &AgentDAO{db: db}
}

// Create inserts a new agent into the registry.
func (dao *AgentDAO) Create(ctx context.Context, agent *types.Agent) error {
	if err := agent.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO agents (id, name, workspace_id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(ctx, query,
		agent.ID.String(),
		agent.Name,
		nullableID(agent.WorkspaceID),
		agent.State.String(),
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}

	return nil
}

// Get retrieves an agent by ID.
func (dao *AgentDAO) Get(ctx context.Context, id types.ID) (*types.Agent, error) {
	query := `
		SELECT id, name, workspace_id, state, created_at, updated_at
		FROM agents WHERE id = ?
	`

	agent, err := scanAgent(dao.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}

// List returns all agents, newest first.
func (dao *AgentDAO) List(ctx context.Context) ([]*types.Agent, error) {
	query := `
		SELECT id, name, workspace_id, state, created_at, updated_at
		FROM agents ORDER BY created_at DESC
	`

	rows, err := dao.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*types.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return agents, nil
}

// ListByWorkspace returns all agents in a workspace.
func (dao *AgentDAO) ListByWorkspace(ctx context.Context, workspaceID types.ID) ([]*types.Agent, error) {
	query := `
		SELECT id, name, workspace_id, state, created_at, updated_at
		FROM agents WHERE workspace_id = ? ORDER BY created_at DESC
	`

	rows, err := dao.db.QueryContext(ctx, query, workspaceID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*types.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return agents, nil
}

// UpdateState transitions an agent to a new lifecycle state.
func (dao *AgentDAO) UpdateState(ctx context.Context, id types.ID, state types.AgentState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	result, err := dao.db.ExecContext(ctx,
		"UPDATE agents SET state = ?, updated_at = ? WHERE id = ?",
		state.String(), time.Now(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update agent state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}

	return nil
}

// Delete removes an agent from the registry.
func (dao *AgentDAO) Delete(ctx context.Context, id types.ID) error {
	result, err := dao.db.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(s scanner) (*types.Agent, error) {
	var agent types.Agent
	var id, state string
	var workspaceID sql.NullString

	if err := s.Scan(&id, &agent.Name, &workspaceID, &state, &agent.CreatedAt, &agent.UpdatedAt); err != nil {
		return nil, err
	}

	agent.ID = types.ID(id)
	agent.State = types.AgentState(state)
	if workspaceID.Valid {
		agent.WorkspaceID = types.ID(workspaceID.String)
	}

	return &agent, nil
}

// nullableID converts a possibly-zero ID to a driver-friendly value so empty
// foreign keys store as NULL rather than "".
func nullableID(id types.ID) any {
	if id.IsZero() {
		return nil
	}
	return id.String()
}
