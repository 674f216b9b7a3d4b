package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/auth"
	"github.com/CachoMX/vhlabs/internal/cache"
	"github.com/CachoMX/vhlabs/internal/config"
	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/sysutil"
)

// app carries what PersistentPreRunE loads for the subcommands.
type app struct {
	envFile string

	cfg config.Config
	log zerolog.Logger

	// newProvider builds the GoTrue client; tests swap it.
	newProvider func(config.SupabaseConfig, zerolog.Logger) (auth.Provider, error)
}

func newApp() *app {
	return &app{newProvider: buildProvider}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "vhlabs",
		Short:             "VH Labs dashboard API",
		Long:              "Serves the VH Labs admin dashboard API and runs its database and user maintenance tasks.",
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		a.serveCmd(),
		a.migrateCmd(),
		a.seedCmd(),
		a.importPromptsCmd(),
		a.checkDataCmd(),
		a.createUserCmd(),
	)
	return root
}

// setup loads .env and the configuration, then installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := sysutil.LoadDotEnv(a.envFile); err != nil {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	a.log = sysutil.SetupLogging(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	cmd.SetContext(a.log.WithContext(cmd.Context()))
	return nil
}

// openDB connects to the configured database and migrates it when
// DB_AUTO_MIGRATE is on. The returned func closes the pool.
func (a *app) openDB() (*gorm.DB, func(), error) {
	db, err := repo.Open(a.cfg.DB, repo.Options{Tracing: a.cfg.OTEL.Enabled})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return db, closeDB, nil
}

// cacheStore returns Redis when REDIS_ADDR is set and reachable, and the
// in-process store otherwise.
func (a *app) cacheStore(ctx context.Context) (cache.Store, func()) {
	if a.cfg.Cache.Addr == "" {
		return cache.NewMemory(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Cache.Addr,
		Password: a.cfg.Cache.Password,
		DB:       a.cfg.Cache.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.log.Warn().Err(err).Str("addr", a.cfg.Cache.Addr).Msg("redis unreachable; using in-process cache")
		_ = client.Close()
		return cache.NewMemory(), func() {}
	}
	return cache.NewRedis(client), func() { _ = client.Close() }
}

// buildProvider returns GoTrue behind a circuit breaker, or Unconfigured
// when no project URL and anon key are set.
func buildProvider(cfg config.SupabaseConfig, log zerolog.Logger) (auth.Provider, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return auth.Unconfigured{}, nil
	}
	sb, err := auth.NewSupabase(cfg.URL, cfg.AnonKey)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return auth.NewBreaker(sb, auth.DefaultBreakerConfig(), log), nil
}

// buildVerifier prefers local JWT verification over a GoTrue round trip.
func buildVerifier(cfg config.SupabaseConfig, p auth.Provider) (auth.Verifier, error) {
	if cfg.JWTSecret == "" {
		return auth.RemoteVerifier{Provider: p}, nil
	}
	v, err := auth.NewJWTVerifier(cfg.JWTSecret, "authenticated")
	if err != nil {
		return nil, err
	}
	return v, nil
}
