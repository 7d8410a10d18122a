package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"chatbot-economy-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_TYPE", "sqlite")
	t.Setenv("STORE_PATH", dbPath)
	t.Setenv("APP_ENV", "test")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestShowCreatesDefaultAccount(t *testing.T) {
	db := filepath.Join(t.TempDir(), "economy.db")

	out, err := executeCLI(t, db, "show", "alice")
	require.NoError(t, err)

	var view model.AccountView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "alice", view.UserID)
	assert.Equal(t, 1, view.Level)
}

func TestSetMoneyPersistsAcrossRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "economy.db")

	_, err := executeCLI(t, db, "show", "bob")
	require.NoError(t, err)
	_, err = executeCLI(t, db, "set-money", "bob", "1234")
	require.NoError(t, err)

	out, err := executeCLI(t, db, "show", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, `"money": 1234`)
}

func TestSetExpLevelsUp(t *testing.T) {
	db := filepath.Join(t.TempDir(), "economy.db")

	_, err := executeCLI(t, db, "show", "carol")
	require.NoError(t, err)

	out, err := executeCLI(t, db, "set-exp", "carol", "100")
	require.NoError(t, err)

	var receipt model.ExpReceipt
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	assert.Equal(t, 3, receipt.Level)
	assert.True(t, receipt.LeveledUp)
}

func TestPrivilegedCommandsRequireExistingAccount(t *testing.T) {
	db := filepath.Join(t.TempDir(), "economy.db")

	_, err := executeCLI(t, db, "set-money", "ghost", "10")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	_, err = executeCLI(t, db, "grant", "ghost", "luckycharm")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestSetMoneyRejectsNonInteger(t *testing.T) {
	db := filepath.Join(t.TempDir(), "economy.db")

	_, err := executeCLI(t, db, "set-money", "dave", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "money must be an integer")
}

func TestSweepReportsResult(t *testing.T) {
	db := filepath.Join(t.TempDir(), "economy.db")

	out, err := executeCLI(t, db, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, `"expired_items": 0`)
}
