package data

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestPostgres_Store runs the attempt store against a real server. It needs
// a container runtime, so it only runs when DUANJU_PG_TEST is set.
func TestPostgres_Store(t *testing.T) {
	if testing.Short() || os.Getenv("DUANJU_PG_TEST") == "" {
		t.Skip("set DUANJU_PG_TEST to run against postgres")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("duanju"),
		postgres.WithUsername("duanju"),
		postgres.WithPassword("duanju"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.True(t, IsPostgres(dsn))

	require.NoError(t, Init(dsn))
	require.NoError(t, Init(dsn))

	db, err := GetDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", bind(db, "SELECT 1 WHERE a = ? AND b = ?"))

	a := scoredAttempt(t, 4, 2, 5)
	require.NoError(t, SaveAttempt(db, a))

	got, err := GetAttempt(db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, got.Missing)

	src := "manual"
	list, err := ListAttempts(db, &AttemptCriteria{Source: &src, Unsynced: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stats, err := GetStats(db)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Incorrect)

	n, err := DeleteAttempts(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
