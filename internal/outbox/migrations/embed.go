// Package migrations embeds the outbox schema.
package migrations

import "embed"

// FS holds the SQL migration files in apply order.
//
//go:embed *.sql
var FS embed.FS
