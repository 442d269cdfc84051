package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"status-notification/internal/core/domain"
	output "status-notification/internal/core/ports/output"
)

// setupTestDB migrates the database named by TEST_DATABASE_URL and empties
// it. Tests are skipped when the variable is unset.
func setupTestDB(t *testing.T) output.MonitorRepository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, Migrate(url))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	_, err = pool.Exec(context.Background(), `TRUNCATE objects, sub_objects RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	repo := NewMonitorRepository(pool)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func TestPostgres_TouchKeepsNotified(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	first := time.Date(2025, 7, 18, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	require.NoError(t, repo.Touch(ctx, "Energy_SolDar", "PLC1", first))
	objects, err := repo.ListObjects(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Len(t, objects[0].Children, 1)
	require.NoError(t, repo.SetNotified(ctx, objects[0].Children[0].ID, true))

	require.NoError(t, repo.Touch(ctx, "Energy_SolDar", "PLC1", second))

	objects, err = repo.ListObjects(ctx)
	require.NoError(t, err)
	sub := objects[0].Children[0]
	assert.True(t, sub.Notified)
	require.NotNil(t, sub.LastUpdate)
	assert.True(t, sub.LastUpdate.Equal(second))
}

func TestPostgres_ObjectWithoutChildren(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Touch(ctx, "Energy_SolDar", "PLC1", time.Now()))
	require.NoError(t, repo.DeleteSubObject(ctx, "Energy_SolDar", "PLC1"))

	objects, err := repo.ListObjects(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "Energy_SolDar", objects[0].Name)
	assert.Empty(t, objects[0].Children)
}

func TestPostgres_NotFound(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Touch(ctx, "Energy_SolDar", "PLC1", time.Now()))

	assert.ErrorIs(t, repo.SetObjectPaused(ctx, "ghost", true), domain.ErrObjectNotFound)
	assert.ErrorIs(t, repo.SetSubObjectPaused(ctx, "ghost", "PLC1", true), domain.ErrObjectNotFound)
	assert.ErrorIs(t, repo.SetSubObjectPaused(ctx, "Energy_SolDar", "PLC9", true), domain.ErrSubObjectNotFound)
	assert.ErrorIs(t, repo.DeleteSubObject(ctx, "Energy_SolDar", "PLC9"), domain.ErrSubObjectNotFound)
	assert.ErrorIs(t, repo.DeleteObject(ctx, "ghost"), domain.ErrObjectNotFound)
	assert.ErrorIs(t, repo.SetNotified(ctx, 9999, true), domain.ErrSubObjectNotFound)
}

func TestPostgres_DeleteObjectCascades(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Touch(ctx, "Energy_SolDar", "PLC1", time.Now()))
	require.NoError(t, repo.Touch(ctx, "Energy_SolDar", "PLC2", time.Now()))

	require.NoError(t, repo.DeleteObject(ctx, "Energy_SolDar"))

	objects, err := repo.ListObjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)

	// Recreated from scratch on the next heartbeat.
	require.NoError(t, repo.Touch(ctx, "Energy_SolDar", "PLC1", time.Now()))
	objects, err = repo.ListObjects(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Len(t, objects[0].Children, 1)
}
