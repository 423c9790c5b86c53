package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/estudorank/estudorank/internal/auth"
	"github.com/estudorank/estudorank/internal/config"
	"github.com/estudorank/estudorank/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "leaderboard", "token"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	_, err := execute(t, "migrate", "sideways")

	var vErr *errors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "direction", vErr.Field)
}

func TestMigrateRequiresDirection(t *testing.T) {
	_, err := execute(t, "migrate")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ESTUDORANK_AUTH_JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--sub", "user-1", "--email", "a@example.com", "--admin")
	require.NoError(t, err)

	claims, err := auth.NewVerifier("cli-secret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}

func TestTokenCommandRequiresSubject(t *testing.T) {
	_, err := execute(t, "token")
	assert.EqualError(t, err, "--sub is required")
}

func TestTokenCommandWithoutSecret(t *testing.T) {
	t.Setenv("ESTUDORANK_AUTH_JWT_SECRET", "")

	_, err := execute(t, "token", "--sub", "user-1")
	assert.ErrorIs(t, err, auth.ErrNotConfigured)
}

func TestTablesFromConfig(t *testing.T) {
	tables := tablesFromConfig(config.LeaderboardConfig{
		View:          "v",
		ProgressTable: "p",
		PointsTable:   "pts",
		ProfilesTable: "prof",
	})
	assert.Equal(t, "v", tables.View)
	assert.Equal(t, "p", tables.Progress)
	assert.Equal(t, "pts", tables.Points)
	assert.Equal(t, "prof", tables.Profiles)
}
