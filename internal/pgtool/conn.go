package pgtool

import (
	"strconv"
	"strings"
)

// ConnectionConfig describes how a tool connects to a PostgreSQL server.
// Zero-valued fields are omitted from generated arguments, so the tool
// falls back to its own defaults (or libpq environment variables).
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string
	Password string // passed via PGPASSWORD, never on the command line
	Database string
}

// Flags returns the standard client connection flags (-h, -p, -U) for the
// populated fields. The database is deliberately excluded: tools disagree on
// how they accept it (-d flag vs. positional argument), so each tool config
// appends it itself. The password never appears here; Invoker.Run exports it
// through PGPASSWORD.
func (c ConnectionConfig) Flags() []string {
	var args []string
	if c.Host != "" {
		args = append(args, "-h", c.Host)
	}
	if c.Port > 0 {
		args = append(args, "-p", strconv.Itoa(c.Port))
	}
	if c.Username != "" {
		args = append(args, "-U", c.Username)
	}
	return args
}

// KeywordValue renders the connection as a libpq keyword/value string
// ("host=localhost port=5432 user=postgres ..."), the form pg_rewind's
// --source-server flag expects. Empty fields are omitted.
func (c ConnectionConfig) KeywordValue() string {
	var parts []string
	if c.Host != "" {
		parts = append(parts, "host="+c.Host)
	}
	if c.Port > 0 {
		parts = append(parts, "port="+strconv.Itoa(c.Port))
	}
	if c.Username != "" {
		parts = append(parts, "user="+c.Username)
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	if c.Database != "" {
		parts = append(parts, "dbname="+c.Database)
	}
	return strings.Join(parts, " ")
}
