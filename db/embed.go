// Package db embeds the snapshot table schema.
package db

import _ "embed"

// Schema creates cart_snapshots if it does not exist.
//
//go:embed migrations/001_schema.sql
var Schema string
