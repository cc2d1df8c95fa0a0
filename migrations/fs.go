// Package migrations embeds the SQL migrations that create the store's collections.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
