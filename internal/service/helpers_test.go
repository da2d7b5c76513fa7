package service

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibvrd/cadastro-server/internal/config"
	"github.com/ibvrd/cadastro-server/internal/repository"
)

func newTestRepo(t *testing.T) *repository.SQLiteRepository {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	}
	db, err := config.SetupDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repository.NewSQLiteRepository(db)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)),
		"expected %s, got %s", want, got.String())
}

func requireValidation(t *testing.T, err error, message string) {
	t.Helper()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, message, vErr.Message)
}

func requireConflict(t *testing.T, err error, message string) {
	t.Helper()
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, message, cErr.Message)
}
