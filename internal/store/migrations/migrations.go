// Package migrations embeds the SQL schema migrations for chat.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
