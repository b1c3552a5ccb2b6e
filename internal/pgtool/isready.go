package pgtool

import "strconv"

// IsReadyConfig holds the options for a pg_isready invocation. pg_isready
// reports connection acceptance through its exit code: 0 accepting, 1
// rejecting (e.g. still starting up), 2 no response, 3 invalid parameters.
type IsReadyConfig struct {
	TimeoutSeconds int
	Quiet          bool
	DBName         string
}

// Args builds the pg_isready argument vector. The database defaults to the
// connection's database when DBName is unset.
func (c IsReadyConfig) Args(conn ConnectionConfig) []string {
	args := conn.Flags()
	dbname := c.DBName
	if dbname == "" {
		dbname = conn.Database
	}
	if dbname != "" {
		args = append(args, "-d", dbname)
	}
	if c.TimeoutSeconds > 0 {
		args = append(args, "--timeout", strconv.Itoa(c.TimeoutSeconds))
	}
	if c.Quiet {
		args = append(args, "--quiet")
	}
	return args
}
