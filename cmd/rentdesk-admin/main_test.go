package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPeriodsCommand(t *testing.T) {
	out, err := run(t, "periods", "--start", "2024-01-01", "--end", "2024-01-31", "--frequency", "weekly",
		"--amount", "100", "--paid", "150", "--as-of", "2024-01-10")
	require.NoError(t, err)
	assert.Contains(t, out, "periods:        5")
	assert.Contains(t, out, "expected total: 500.00")
	assert.Contains(t, out, "balance left:   350.00")
	assert.Contains(t, out, "due to date:    200.00 (2 of 5 periods started)")
	assert.Contains(t, out, "arrears:        50.00")
	assert.Contains(t, out, "next due:       2024-01-15")

	_, err = run(t, "periods", "--start", "2024-01-01", "--end", "2024-01-31", "--amount", "lots")
	assert.ErrorContains(t, err, "--amount")

	_, err = run(t, "periods", "--start", "2024-01-01")
	assert.Error(t, err)
}

func TestMigrateAndCreateUser(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "rentdesk.db")

	out, err := run(t, "migrate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version")

	out, err = run(t, "user", "create", "--db", db, "--email", "Efua@Example.com", "--password", "long-enough", "--role", "Manager")
	require.NoError(t, err)
	assert.Contains(t, out, "created Manager user efua@example.com")

	_, err = run(t, "user", "create", "--db", db, "--email", "efua@example.com", "--password", "long-enough")
	assert.ErrorContains(t, err, "already exists")
}

func TestExportRejectsUnknownResource(t *testing.T) {
	_, err := run(t, "export", "users", "--token", "t")
	assert.ErrorContains(t, err, "cannot export")
}
