// Package data embeds the database init scripts.
package data

import (
	_ "embed"
)

// InitdbMariaDBTables creates the kiosek schema
//
//go:embed initdb/mariadb/002-ddl-tables.sql
var InitdbMariaDBTables string

// InitdbMariaDBPrivileges grants the application user access to the schema
//
//go:embed initdb/mariadb/003-ddl-privileges.sql
var InitdbMariaDBPrivileges string
