package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tOgg1/forge-sub005/internal/types"
)

// WorkspaceDAO provides database access for Workspace entities.
type WorkspaceDAO struct {
	db *DB
}

// NewWorkspaceDAO creates a new WorkspaceDAO instance.
func NewWorkspaceDAO(db *DB) *WorkspaceDAO {
	return &WorkspaceDAO{db: db}
}

// Create inserts a new workspace into the registry.
func (dao *WorkspaceDAO) Create(ctx context.Context, ws *types.Workspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO workspaces (id, name, root_path, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(ctx, query,
		ws.ID.String(),
		ws.Name,
		ws.RootPath,
		ws.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert workspace: %w", err)
	}

	return nil
}

// Get retrieves a workspace by ID.
func (dao *WorkspaceDAO) Get(ctx context.Context, id types.ID) (*types.Workspace, error) {
	query := `SELECT id, name, root_path, created_at FROM workspaces WHERE id = ?`

	var ws types.Workspace
	var wsID string
	err := dao.db.QueryRowContext(ctx, query, id.String()).
		Scan(&wsID, &ws.Name, &ws.RootPath, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	ws.ID = types.ID(wsID)
	return &ws, nil
}

// GetByName retrieves a workspace by its unique name.
func (dao *WorkspaceDAO) GetByName(ctx context.Context, name string) (*types.Workspace, error) {
	query := `SELECT id, name, root_path, created_at FROM workspaces WHERE name = ?`

	var ws types.Workspace
	var wsID string
	err := dao.db.QueryRowContext(ctx, query, name).
		Scan(&wsID, &ws.Name, &ws.RootPath, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("workspace %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	ws.ID = types.ID(wsID)
	return &ws, nil
}

// List returns all workspaces ordered by name.
func (dao *WorkspaceDAO) List(ctx context.Context) ([]*types.Workspace, error) {
	query := `SELECT id, name, root_path, created_at FROM workspaces ORDER BY name`

	rows, err := dao.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*types.Workspace
	for rows.Next() {
		var ws types.Workspace
		var wsID string
		if err := rows.Scan(&wsID, &ws.Name, &ws.RootPath, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		ws.ID = types.ID(wsID)
		workspaces = append(workspaces, &ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return workspaces, nil
}

// Delete removes a workspace from the registry.
func (dao *WorkspaceDAO) Delete(ctx context.Context, id types.ID) error {
	result, err := dao.db.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}

	return nil
}
