// Package migrations embeds the order database schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
