// Command vhlabs runs the VH Labs dashboard API and its maintenance tasks.
//
// @title                       VH Labs Dashboard API
// @version                     1.0
// @description                 Contacts, content, distributions, prompts and analytics for the VH Labs admin dashboard.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Supabase access token, as "Bearer <token>".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/CachoMX/vhlabs/docs"
)

//go:generate swag init -d ../../ -g cmd/vhlabs/main.go -o ../../docs --parseInternal

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
