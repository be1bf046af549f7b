package core

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSourceFromContext(t *testing.T) {
	_, ok := BatchSourceFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithBatchSource(context.Background(), BatchSource{Origin: "http", IPAddress: "10.0.0.1"})
	src, ok := BatchSourceFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "http", src.Origin)
	assert.Equal(t, []any{"origin", "http", "ip", "10.0.0.1"}, src.logAttrs())
}

func TestReconcileLogsBatchSource(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	engine := NewEngine(nopStore{}, EngineOptions{Logger: logger})

	ctx := ContextWithBatchSource(context.Background(), BatchSource{Origin: "cli", Name: "batch.csv"})
	_, err := engine.ReconcileText(ctx, "Name,Email,Manager,Salary,Hire Date\n")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"origin":"cli"`)
	assert.Contains(t, buf.String(), `"file":"batch.csv"`)
}

// nopStore is an empty Store.
type nopStore struct{}

func (nopStore) FindEmployeeByEmail(context.Context, string) (*Employee, error) { return nil, nil }

func (nopStore) UpsertEmployee(context.Context, Employee) (uuid.UUID, error) { return uuid.New(), nil }

func (nopStore) FindChainByEmployeeID(context.Context, uuid.UUID) (*ChainOfCommand, error) {
	return nil, nil
}

func (nopStore) UpsertChain(context.Context, uuid.UUID, []uuid.UUID) error { return nil }
