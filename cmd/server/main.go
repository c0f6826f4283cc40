// Package main provides the entry point for the AutumnDB server: a
// JSON-Schema-compiled query engine and link-graph expansion service
// layered over Postgres.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/autumndb/autumndb/domain/contracts"
	"github.com/autumndb/autumndb/domain/health"
	"github.com/autumndb/autumndb/domain/links"
	"github.com/autumndb/autumndb/domain/query"
	"github.com/autumndb/autumndb/domain/streams"
	"github.com/autumndb/autumndb/domain/typeregistry"
	"github.com/autumndb/autumndb/domain/useraccess"
	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/internal/database"
	"github.com/autumndb/autumndb/internal/server"
	"github.com/autumndb/autumndb/pkg/auth"
	"github.com/autumndb/autumndb/pkg/cache"
	"github.com/autumndb/autumndb/pkg/logger"
)

func main() {
	// Load .env files if present (for local development). Order matters:
	// .env.local overrides .env. Load() won't overwrite existing vars,
	// Overload() will.
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure
		logger.Module,
		config.Module,
		database.Module,
		server.Module,

		// Domain
		auth.Module,
		health.Module,
		contracts.Module,
		links.Module,
		typeregistry.Module,
		useraccess.Module,
		query.Module,
		streams.Module,
		cache.Module,
	).Run()
}
