// Package migrations embeds the weather service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Table is the golang-migrate version table for this schema.
const Table = "weather_schema_migrations"
