package db

import "embed"

// MigrationFS embeds the users schema migrations from internal/db/migrations.
// The migrate runner (cmd/migrate and integration tests) applies them.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
