// Package migrations embeds the SQL schema so the server binary can migrate
// tenant schemas without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
