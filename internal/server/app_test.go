package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/server/config"
	"github.com/dmitrijs2005/flashboard/internal/server/rbac"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/flashboard/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = ""
	cfg.EndpointAddrHTTP = "127.0.0.1:0"
	cfg.PasswordHashRounds = 1000
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestNewApp_InMemorySeedsRolesAndAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.AdminName = "root"
	cfg.AdminEmail = "root@example.com"
	cfg.AdminPassword = "Admin123"
	ctx := context.Background()

	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, app.db)

	admin, err := app.userService.LoadValidUser(ctx, services.ByEmail("root@example.com"), "Admin123", false)
	require.NoError(t, err)
	assert.True(t, admin.Active)
	assert.NoError(t, app.gate.CheckAccess(ctx, admin, rbac.ModuleAdmin))

	for _, r := range rbac.DefaultRoles() {
		want := r.Name == rbac.RoleAdmin || r.Name == rbac.RoleUser
		assert.Equal(t, want, app.userService.HasRole(ctx, services.Resolved{User: admin}, services.RoleByName(r.Name)), r.Name)
	}
}

func TestNewApp_NoAdminConfigured(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = app.userService.LoadUser(context.Background(), services.ByID(1))
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestNewApp_CustomRBACControl(t *testing.T) {
	cfg := testConfig()
	cfg.AdminName = "root"
	cfg.AdminEmail = "root@example.com"
	cfg.AdminPassword = "Admin123"
	cfg.RBACControl = map[string][]string{rbac.ModuleAdmin: {rbac.RoleOperator}}
	ctx := context.Background()

	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)

	admin, err := app.userService.LoadUser(ctx, services.ByEmail("root@example.com"))
	require.NoError(t, err)
	assert.Error(t, app.gate.CheckAccess(ctx, admin, rbac.ModuleAdmin))
}

func TestNewApp_OpenError(t *testing.T) {
	orig := openRepositories
	openRepositories = func(context.Context, string) (repomanager.RepositoryManager, *sql.DB, error) {
		return nil, nil, errors.New("connection refused")
	}
	defer func() { openRepositories = orig }()

	_, err := NewApp(context.Background(), testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
