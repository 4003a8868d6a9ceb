package postgres

import (
	"context"
	"embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klevu/catalog-sync/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the schema migrations for this service.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	return database.RunMigrations(ctx, pool, migrationFiles, "migrations", logger)
}
