package pgtool

// DumpAllConfig holds the options for a pg_dumpall invocation, which dumps
// every database in the cluster plus globals (roles, tablespaces).
type DumpAllConfig struct {
	File            string // empty writes the dump to stdout
	GlobalsOnly     bool
	RolesOnly       bool
	TablespacesOnly bool
	Verbose         bool
	Clean           bool
	NoOwner         bool
	NoPrivileges    bool
}

// Args builds the pg_dumpall argument vector. pg_dumpall connects to a
// database only to enumerate the cluster, so the connection's Database
// field is ignored.
func (c DumpAllConfig) Args(conn ConnectionConfig) []string {
	args := conn.Flags()
	if c.File != "" {
		args = append(args, "--file", c.File)
	}
	if c.GlobalsOnly {
		args = append(args, "--globals-only")
	}
	if c.RolesOnly {
		args = append(args, "--roles-only")
	}
	if c.TablespacesOnly {
		args = append(args, "--tablespaces-only")
	}
	if c.Verbose {
		args = append(args, "--verbose")
	}
	if c.Clean {
		args = append(args, "--clean")
	}
	if c.NoOwner {
		args = append(args, "--no-owner")
	}
	if c.NoPrivileges {
		args = append(args, "--no-privileges")
	}
	return args
}
