// Package migrations embeds the advisor service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Table is the golang-migrate version table for this schema.
const Table = "advisor_schema_migrations"
