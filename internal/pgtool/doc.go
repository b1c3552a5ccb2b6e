// Package pgtool invokes the PostgreSQL client utilities (pg_dump,
// pg_dumpall, pg_restore, pg_basebackup, pg_rewind, psql, pg_isready) as
// external processes with captured output.
//
// Each tool has a config struct whose Args method builds the exact argument
// vector, separate from the Invoker that resolves binaries and runs them.
// This keeps argument construction pure and testable without spawning
// anything.
package pgtool
