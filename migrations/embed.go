// Package migrations embeds the listings schema migrations so the
// ingestor binary ships them.
package migrations

import "embed"

// FS holds the SQL migration files.
//
//go:embed *.sql
var FS embed.FS
