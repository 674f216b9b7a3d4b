package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/cache"
	httpapi "github.com/CachoMX/vhlabs/internal/http"
	"github.com/CachoMX/vhlabs/internal/notify"
	"github.com/CachoMX/vhlabs/internal/observability"
	"github.com/CachoMX/vhlabs/internal/repo"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	shutdownOTel, err := observability.SetupOTel(ctx, a.cfg.OTEL, observability.BuildInfo{
		Version:     version,
		Environment: a.cfg.Environment,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			a.log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, closeDB, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	infra, closeInfra, err := a.buildInfra(ctx)
	if err != nil {
		return err
	}
	defer closeInfra()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, infra, a.cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", a.cfg.Port),
		Handler:           r,
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().
			Str("addr", srv.Addr).
			Str("db", a.cfg.DB.Driver).
			Bool("auth_disabled", a.cfg.Supabase.AuthDisabled).
			Bool("webhook", infra.Webhook.Enabled()).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		a.purgeIdempotency(gctx, db, purgeInterval)
		return nil
	})
	return g.Wait()
}

// buildInfra assembles the cache, auth and webhook collaborators. The
// returned func releases the cache connection.
func (a *app) buildInfra(ctx context.Context) (httpapi.Infra, func(), error) {
	provider, err := a.newProvider(a.cfg.Supabase, a.log)
	if err != nil {
		return httpapi.Infra{}, nil, err
	}
	verifier, err := buildVerifier(a.cfg.Supabase, provider)
	if err != nil {
		return httpapi.Infra{}, nil, err
	}
	store, closeStore := a.cacheStore(ctx)
	return httpapi.Infra{
		Cache:    cache.New(store, a.log),
		Provider: provider,
		Verifier: verifier,
		Webhook:  notify.NewWebhook(a.cfg.Webhook.SendURL, a.cfg.Webhook.Timeout),
	}, closeStore, nil
}

// purgeIdempotency drops expired idempotency records every interval until
// ctx is done.
func (a *app) purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				a.log.Warn().Err(err).Msg("purge idempotency records")
				continue
			}
			if n > 0 {
				a.log.Debug().Int64("deleted", n).Msg("purged idempotency records")
			}
		}
	}
}
