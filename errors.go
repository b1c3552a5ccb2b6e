package pgenv

import (
	"github.com/giantswarm/pgenv/internal/core"
	"github.com/giantswarm/pgenv/internal/pgtool"
)

// Sentinel errors returned by Instance operations. They are constants, so
// they compare with errors.Is across package boundaries.
const (
	ErrNotRunning        = core.ErrNotRunning
	ErrAlreadyRunning    = core.ErrAlreadyRunning
	ErrAlreadyStarting   = core.ErrAlreadyStarting
	ErrAlreadyStopped    = core.ErrAlreadyStopped
	ErrNotInitialized    = core.ErrNotInitialized
	ErrCleanedUp         = core.ErrCleanedUp
	ErrEmptyDatabaseName = core.ErrEmptyDatabaseName
	ErrEmptySQL          = core.ErrEmptySQL
	ErrTimeout           = core.ErrTimeout
	ErrToolNotFound      = pgtool.ErrToolNotFound
)

// ToolExecutionError reports a CLI tool that ran but exited non-zero, on
// the paths that treat that as a failure (ExecuteSQLJSON,
// ExecuteSQLStructured, database management). It carries the tool name,
// its exit code, and its stderr.
type ToolExecutionError = pgtool.ExecError
