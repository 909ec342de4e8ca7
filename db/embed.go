// Package db embeds the database schema and seed fixtures.
package db

import _ "embed"

// Schema contains the DDL statements for the back office tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedData contains the default customers and catalog items loaded by the
// seed-db tool.
//
//go:embed seed/bookshop.json
var SeedData []byte
