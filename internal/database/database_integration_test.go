//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres runs a disposable PostgreSQL container and returns a DB bound to it.
func startPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("helpdesk_triage"),
		tcpostgres.WithUsername("triage"),
		tcpostgres.WithPassword("triage"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	db := &DB{pool: pool, logger: zerolog.Nop()}
	t.Cleanup(db.Close)
	return db
}

func TestIntegration_EmbeddedMigrations(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	migrator, err := NewEmbeddedMigrator(db, zerolog.Nop())
	require.NoError(t, err)
	defer migrator.Close()

	require.NoError(t, migrator.Up())
	// Second run is a no-op.
	require.NoError(t, migrator.Up())

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	var count int
	require.NoError(t, db.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('users', 'tickets')").Scan(&count))
	assert.Equal(t, 2, count)

	require.NoError(t, migrator.Down())
}

func TestIntegration_BeginAndHealth(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, "CREATE TABLE tx_check (n INT)")
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO tx_check VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO tx_check VALUES (2)")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	var count int
	require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM tx_check").Scan(&count))
	assert.Equal(t, 1, count)

	health := db.Health(ctx)
	assert.True(t, health.Healthy())

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, db.Ping(pingCtx))
}
