// Package migrations embeds the SQL schema into the binary and registers it
// with the database package. Import it for side effects.
package migrations

import (
	"embed"

	"github.com/nerrad567/homedash/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
