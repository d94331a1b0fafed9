// Package migrations embeds the local replica schema applied by goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
