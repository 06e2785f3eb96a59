// Package migrations embeds the user service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Table is the golang-migrate version table for this schema.
const Table = "user_schema_migrations"
