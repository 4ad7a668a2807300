package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"monitor-precos/internal/database"
	"monitor-precos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedDatabase cria um banco com um produto abaixo do alvo
func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	db, err := database.New(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	id, err := db.AddProduct(ctx, models.Product{
		URL:         "https://loja.com/fone",
		Name:        "Fone",
		TargetPrice: decimal.NewNullDecimal(decimal.RequireFromString("100")),
	})
	require.NoError(t, err)

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.AppendObservation(ctx, id, decimal.RequireFromString("120"), base))
	require.NoError(t, db.AppendObservation(ctx, id, decimal.RequireFromString("95.50"), base.Add(time.Hour)))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHistoryCommand(t *testing.T) {
	t.Setenv("DATABASE_PATH", seedDatabase(t))
	t.Setenv("DATABASE_URL", "")

	out, err := runCLI(t, "history", "1", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Fone")
	assert.Contains(t, out, "120.00")
	assert.Contains(t, out, "mínimo 95.50  máximo 120.00  registros 2")
}

func TestAlertsCommand(t *testing.T) {
	t.Setenv("DATABASE_PATH", seedDatabase(t))
	t.Setenv("DATABASE_URL", "")

	out, err := runCLI(t, "alerts", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "atual 95.50  alvo 100.00  economia 4.50 (4.50%)")
}

func TestHistoryCommandInvalidID(t *testing.T) {
	_, err := runCLI(t, "history", "abc", "--log-level", "error")
	assert.Error(t, err)
}
