// Package core implements the embedded PostgreSQL instance: the
// Stopped/Starting/Running/Stopping state machine, one-time data directory
// initialization, connection descriptor caching, database management, and
// the structured query result pipeline built on psql.
//
// The public pgenv package is a thin veneer over this package.
package core
