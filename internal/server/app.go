// Package server initializes and runs the auth service. It selects the
// storage backend, applies migrations, seeds the role catalogue and the
// bootstrap administrator, and serves the JSON API until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/flashboard/internal/logging"
	"github.com/dmitrijs2005/flashboard/internal/server/auth"
	"github.com/dmitrijs2005/flashboard/internal/server/config"
	"github.com/dmitrijs2005/flashboard/internal/server/metrics"
	"github.com/dmitrijs2005/flashboard/internal/server/rbac"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/memory"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/flashboard/internal/server/rest"
	"github.com/dmitrijs2005/flashboard/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repos        repomanager.RepositoryManager
	userService  *services.UserService
	tokenService *services.TokenService
	gate         *rbac.Gate
	metrics      *metrics.Metrics
}

// openRepositories is a seam for tests; an empty DSN selects the in-memory
// backend.
var openRepositories = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, *sql.DB, error) {
	if dsn == "" {
		return memory.NewManager(), nil, nil
	}
	db, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return repomanager.NewPostgresRepositoryManager(db), db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env)

	repos, db, err := openRepositories(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if db == nil {
		logger.Warn(ctx, "no database configured, using the in-memory store")
	}

	if err := repos.RunMigrations(ctx); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	ts := services.NewTokenService(repos, auth.NewBearerCodec(c.SecretKey), c, logger)
	us := services.NewUserService(repos, ts, c, logger)

	if err := us.SeedRoles(ctx, rbac.DefaultRoles()); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("role seeding error: %w", err)
	}
	if c.AdminEmail != "" && c.AdminPassword != "" {
		if err := us.EnsureAdmin(ctx, c.AdminName, c.AdminEmail, c.AdminPassword, rbac.RoleAdmin); err != nil {
			closeDB(db)
			return nil, fmt.Errorf("bootstrap admin error: %w", err)
		}
	}

	control := c.RBACControl
	if control == nil {
		control = rbac.DefaultControl()
	}
	policy := rbac.NewPolicy(control)
	logger.Info(ctx, "access policy loaded", "modules", policy.Modules())

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		repos:        repos,
		userService:  us,
		tokenService: ts,
		gate:         rbac.NewGate(policy, us),
		metrics:      metrics.New(),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newHTTPServer() *rest.Server {
	return rest.NewServer(app.config.EndpointAddrHTTP, app.config.ShutdownTimeout, rest.Deps{
		Users:   app.userService,
		Tokens:  app.tokenService,
		Gate:    app.gate,
		Metrics: app.metrics,
		Logger:  app.logger,
	})
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.newHTTPServer().Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a shutdown signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	closeDB(app.db)
	app.logger.Info(ctx, "App stopped")
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
