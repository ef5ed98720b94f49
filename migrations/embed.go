// Package migrations embeds SQL migration files into the binary, so the
// hub can migrate its reading-history schema without the SQL files being
// present on the filesystem.
package migrations

import (
	"embed"

	"github.com/sensaur/sensaur-hub/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
