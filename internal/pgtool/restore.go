package pgtool

import (
	"strconv"

	"github.com/giantswarm/pgenv/internal/sentinel"
)

// ErrRestoreFileRequired is returned when RestoreConfig.File is empty.
const ErrRestoreFileRequired = sentinel.Error("restore requires an archive file")

// RestoreConfig holds the options for a pg_restore invocation.
type RestoreConfig struct {
	File              string // archive to restore; required
	Format            string // c, d, or t; empty lets pg_restore detect it
	Clean             bool
	Create            bool
	ExitOnError       bool
	Jobs              int
	SingleTransaction bool
	Verbose           bool
	DataOnly          bool
	SchemaOnly        bool
	Superuser         string
	Tables            []string
	Triggers          []string
	NoOwner           bool
	NoPrivileges      bool
}

// Validate checks that the required archive file is set.
func (c RestoreConfig) Validate() error {
	if c.File == "" {
		return ErrRestoreFileRequired
	}
	return nil
}

// Args builds the pg_restore argument vector. The archive file is the final
// positional argument.
func (c RestoreConfig) Args(conn ConnectionConfig) []string {
	args := conn.Flags()
	if conn.Database != "" {
		args = append(args, "-d", conn.Database)
	}
	if c.Format != "" {
		args = append(args, "--format", c.Format)
	}
	if c.Clean {
		args = append(args, "--clean")
	}
	if c.Create {
		args = append(args, "--create")
	}
	if c.ExitOnError {
		args = append(args, "--exit-on-error")
	}
	if c.Jobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(c.Jobs))
	}
	if c.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	if c.Verbose {
		args = append(args, "--verbose")
	}
	if c.DataOnly {
		args = append(args, "--data-only")
	}
	if c.SchemaOnly {
		args = append(args, "--schema-only")
	}
	if c.Superuser != "" {
		args = append(args, "--superuser", c.Superuser)
	}
	for _, table := range c.Tables {
		args = append(args, "--table", table)
	}
	for _, trigger := range c.Triggers {
		args = append(args, "--trigger", trigger)
	}
	if c.NoOwner {
		args = append(args, "--no-owner")
	}
	if c.NoPrivileges {
		args = append(args, "--no-privileges")
	}
	return append(args, c.File)
}
