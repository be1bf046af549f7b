package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/orgsync/internal/config"
	"github.com/JonMunkholm/orgsync/internal/core"
)

// newTestPostgres connects to ORGSYNC_TEST_DATABASE_URL, migrates it and
// runs the test inside a transaction that is rolled back afterwards.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("ORGSYNC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ORGSYNC_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := OpenPool(ctx, config.DatabaseConfig{URL: url, MaxConns: 4, MinConns: 0})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })

	return NewPostgres(pool).WithTx(tx)
}

func TestPostgres_EmployeeLifecycle(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()

	email := "pg-" + uuid.NewString() + "@example.com"
	id, err := p.UpsertEmployee(ctx, core.Employee{
		NormalizedEmail: email,
		Name:            "First",
		Salary:          pgtype.Int8{Int64: 10, Valid: true},
	})
	require.NoError(t, err)

	_, err = p.UpsertEmployee(ctx, core.Employee{ID: id, NormalizedEmail: email, Name: "Second"})
	require.NoError(t, err)

	got, err := p.FindEmployeeByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Second", got.Name)
	assert.Equal(t, int64(10), got.Salary.Int64)
	assert.False(t, got.IsActive)
	assert.False(t, got.Credential.Valid)

	missing, err := p.FindEmployeeByEmail(ctx, "missing-"+email)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgres_DuplicateEmail(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()

	email := "dup-" + uuid.NewString() + "@example.com"
	_, err := p.UpsertEmployee(ctx, core.Employee{NormalizedEmail: email})
	require.NoError(t, err)

	_, err = p.UpsertEmployee(ctx, core.Employee{NormalizedEmail: email})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgres_Chain(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()

	boss, err := p.UpsertEmployee(ctx, core.Employee{NormalizedEmail: "boss-" + uuid.NewString() + "@example.com"})
	require.NoError(t, err)
	report, err := p.UpsertEmployee(ctx, core.Employee{
		NormalizedEmail: "report-" + uuid.NewString() + "@example.com",
		ManagerID:       core.ToPgUUID(boss),
	})
	require.NoError(t, err)

	require.NoError(t, p.UpsertChain(ctx, boss, []uuid.UUID{}))
	require.NoError(t, p.UpsertChain(ctx, report, []uuid.UUID{boss}))

	c, err := p.FindChainByEmployeeID(ctx, report)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []uuid.UUID{boss}, c.Chain)

	c, err = p.FindChainByEmployeeID(ctx, boss)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.Chain)

	emps, err := p.FindEmployeesByIDs(ctx, []uuid.UUID{report, boss})
	require.NoError(t, err)
	require.Len(t, emps, 2)
	assert.Equal(t, report, emps[0].ID)
	assert.Equal(t, boss, emps[1].ID)
}
