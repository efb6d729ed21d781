package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/joyofrisk/api/auth"
	"github.com/joyofrisk/api/config"
	"github.com/joyofrisk/api/internal/dashboard"
	"github.com/joyofrisk/api/internal/rbac"
	"github.com/joyofrisk/api/middleware"
	"github.com/joyofrisk/api/repositories"
	"github.com/joyofrisk/api/repositories/postgres"
	"github.com/joyofrisk/api/repositories/sqlite"
	"github.com/joyofrisk/api/services"
	"github.com/joyofrisk/api/services/audit"
	"github.com/joyofrisk/api/supabase"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// RepoFactory and SQLite are set only for their respective stores
	RepoFactory *postgres.RepositoryFactory
	SQLite      *sql.DB
	Supabase    *supabase.Client

	// Repositories
	Profiles  repositories.ProfileRepository
	AuditLogs repositories.AuditRepository

	// Services
	AuthService  *services.AuthService
	AuditService *audit.AuditService

	// Authorization
	Issuer         *auth.Issuer
	AuthMiddleware *middleware.AuthMiddleware
	AccessPolicy   *middleware.AccessPolicy
	Permissions    *rbac.Table
	Guard          *dashboard.Guard

	// HealthChecks are consulted by the readiness endpoint, keyed by component name
	HealthChecks map[string]HealthChecker
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:       cfg,
		Logger:       logger,
		HealthChecks: make(map[string]HealthChecker),
	}

	client, err := supabase.NewClient(supabase.Config{
		URL:            cfg.Supabase.URL,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		HTTPTimeout:    cfg.Supabase.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	deps.Supabase = client

	if err := deps.initStore(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize profile store: %w", err)
	}

	if err := deps.initPermissions(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to load permission table: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("profile_store", cfg.Storage.Backend))
	return deps, nil
}

// initStore selects the profile and audit store named by PROFILE_STORE
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Backend {
	case config.StorePostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		if cfg.Storage.InitSchema {
			if err := factory.InitSchema(ctx); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
		}
		d.setRepositories(factory.NewRepositories())

	case config.StoreSQLite:
		repos, db, err := sqlite.NewRepositories(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		d.SQLite = db
		d.setRepositories(repos)
		d.Logger.Info("using local sqlite store", zap.String("path", cfg.Storage.SQLitePath))

	default:
		auditStore := supabase.NewAuditStore(d.Supabase)
		d.setRepositories(&repositories.Repositories{
			Profiles:  supabase.NewProfileStore(d.Supabase),
			AuditLogs: auditStore,
		})
		// the tables come from supabase/schema.sql, not from this process
		d.HealthChecks["audit_store"] = auditStore
	}

	d.HealthChecks["profile_store"] = d.Profiles
	return nil
}

func (d *Dependencies) setRepositories(repos *repositories.Repositories) {
	d.Profiles = repos.Profiles
	d.AuditLogs = repos.AuditLogs
}

func (d *Dependencies) initPermissions(cfg *config.Config) error {
	if cfg.Permissions.File == "" {
		d.Permissions = rbac.Default()
	} else {
		table, err := rbac.Load(cfg.Permissions.File)
		if err != nil {
			return err
		}
		d.Permissions = table
		d.Logger.Info("permission table loaded", zap.String("file", cfg.Permissions.File))
	}
	d.Guard = dashboard.NewGuard(d.Permissions)
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	issuer, err := auth.NewIssuer(cfg.Session.JWTSecret, cfg.Session.ExpiresIn)
	if err != nil {
		return err
	}
	d.Issuer = issuer

	validators := middleware.ChainValidator{issuer}
	if cfg.Supabase.AcceptAccessTokens {
		validators = append(validators, supabase.NewTokenValidator(supabase.ValidatorConfig{
			URL:         cfg.Supabase.URL,
			JWTSecret:   cfg.Supabase.JWTSecret,
			CacheTTL:    cfg.Supabase.JWKSCacheTTL,
			HTTPTimeout: cfg.Supabase.HTTPTimeout,
		}))
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(validators, d.Logger)

	d.AccessPolicy = middleware.NewAccessPolicy(cfg.Authz.AdminEmails, d.Logger)
	if !d.AccessPolicy.Enforced() {
		d.Logger.Warn("ADMIN_EMAILS is empty, every authenticated caller may manage users")
	}
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.Workers,
	})
	if err := d.AuditService.Start(); err != nil {
		return err
	}

	d.AuthService = services.NewAuthService(d.Supabase, d.Profiles, d.AuditLogs, d.Issuer, d.AuditService, d.Logger)
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditService != nil && d.AuditService.GetStats().Started {
		if err := d.AuditService.Stop(d.Config.Audit.ShutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.SQLite != nil {
		if err := d.SQLite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sqlite store: %w", err))
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
