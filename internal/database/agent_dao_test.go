package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/forge-sub005/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "forge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, NewMigrator(db).Migrate(context.Background()))
	return db
}

func newTestAgent(wsID types.ID) *types.Agent {
	now := time.Now()
	return &types.Agent{
		ID:          types.NewID(),
		Name:        "loop-1",
		WorkspaceID: wsID,
		State:       types.AgentStateStarting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	m := NewMigrator(db)
	require.NoError(t, m.Migrate(context.Background()))

	version, err := m.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestAgentDAO_CreateGet(t *testing.T) {
	db := openTestDB(t)
	dao := NewAgentDAO(db)
	ctx := context.Background()

	agent := newTestAgent("")
	require.NoError(t, dao.Create(ctx, agent))

	got, err := dao.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.ID)
	assert.Equal(t, "loop-1", got.Name)
	assert.Equal(t, types.AgentStateStarting, got.State)
	assert.True(t, got.WorkspaceID.IsZero())
}

func TestAgentDAO_GetMissing(t *testing.T) {
	db := openTestDB(t)
	dao := NewAgentDAO(db)

	_, err := dao.Get(context.Background(), types.NewID())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAgentDAO_UpdateState(t *testing.T) {
	db := openTestDB(t)
	dao := NewAgentDAO(db)
	ctx := context.Background()

	agent := newTestAgent("")
	require.NoError(t, dao.Create(ctx, agent))

	require.NoError(t, dao.UpdateState(ctx, agent.ID, types.AgentStateRunning))

	got, err := dao.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentStateRunning, got.State)

	// Unknown agent
	err = dao.UpdateState(ctx, types.NewID(), types.AgentStateStopped)
	assert.ErrorIs(t, err, ErrNotFound)

	// Invalid state
	err = dao.UpdateState(ctx, agent.ID, types.AgentState("exploded"))
	assert.Error(t, err)
}

func TestAgentDAO_ListByWorkspace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	wsDAO := NewWorkspaceDAO(db)
	ws := &types.Workspace{
		ID:        types.NewID(),
		Name:      "main",
		RootPath:  "/srv/ws/main",
		CreatedAt: time.Now(),
	}
	require.NoError(t, wsDAO.Create(ctx, ws))

	agentDAO := NewAgentDAO(db)
	inWS := newTestAgent(ws.ID)
	outWS := newTestAgent("")
	outWS.Name = "loop-2"
	require.NoError(t, agentDAO.Create(ctx, inWS))
	require.NoError(t, agentDAO.Create(ctx, outWS))

	got, err := agentDAO.ListByWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inWS.ID, got[0].ID)
}

func TestWorkspaceDAO_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	dao := NewWorkspaceDAO(db)
	ctx := context.Background()

	ws := &types.Workspace{
		ID:        types.NewID(),
		Name:      "main",
		RootPath:  "/srv/ws/main",
		CreatedAt: time.Now(),
	}
	require.NoError(t, dao.Create(ctx, ws))

	byName, err := dao.GetByName(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, ws.ID, byName.ID)

	all, err := dao.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, dao.Delete(ctx, ws.ID))
	_, err = dao.Get(ctx, ws.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViolationDAO_CreateAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	agentDAO := NewAgentDAO(db)
	agent := newTestAgent("")
	require.NoError(t, agentDAO.Create(ctx, agent))

	dao := NewViolationDAO(db)
	v := &types.ResourceViolation{
		ID:         types.NewID(),
		AgentID:    agent.ID,
		Resource:   "tokens_per_hour",
		Limit:      10000,
		Observed:   15000,
		OccurredAt: time.Now(),
	}
	require.NoError(t, dao.Create(ctx, v))

	got, err := dao.ListByAgent(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tokens_per_hour", got[0].Resource)
	assert.InDelta(t, 15000, got[0].Observed, 0.001)

	// Violations for other agents stay invisible.
	other, err := dao.ListByAgent(ctx, types.NewID())
	require.NoError(t, err)
	assert.Empty(t, other)
}
