package core

import "github.com/giantswarm/pgenv/internal/sentinel"

// ErrNotRunning is returned by operations that require a running server
// (database management, queries, tools, promote) when the instance is not
// in the Running state.
const ErrNotRunning = sentinel.Error("server is not running")

// ErrAlreadyRunning is returned by Start when the instance is already Running.
const ErrAlreadyRunning = sentinel.Error("server is already running")

// ErrAlreadyStarting is returned by Start when a start is already in flight.
const ErrAlreadyStarting = sentinel.Error("server is already starting")

// ErrAlreadyStopped is returned by Stop when the instance is already Stopped.
const ErrAlreadyStopped = sentinel.Error("server is already stopped")

// ErrNotInitialized is returned by accessors that need a resolved data
// directory before the instance has ever been started.
const ErrNotInitialized = sentinel.Error("server has not been initialized")

// ErrCleanedUp is returned by Start after Cleanup has released the
// instance's resources; a cleaned-up instance cannot be reused.
const ErrCleanedUp = sentinel.Error("instance has been cleaned up")

// ErrEmptyDatabaseName is returned by database operations given an empty name.
const ErrEmptyDatabaseName = sentinel.Error("database name cannot be empty")

// ErrEmptySQL is returned by query operations given an empty statement.
const ErrEmptySQL = sentinel.Error("sql cannot be empty")

// ErrTimeout marks operations that exceeded their configured time budget.
// It wraps alongside the underlying context error, so both
// errors.Is(err, ErrTimeout) and errors.Is(err, context.DeadlineExceeded)
// match.
const ErrTimeout = sentinel.Error("operation timed out")
