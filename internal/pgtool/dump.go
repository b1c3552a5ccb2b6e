package pgtool

import "strconv"

// DumpConfig holds the options for a pg_dump invocation. Zero values mean
// "use the tool's default" and produce no flag.
type DumpConfig struct {
	DataOnly      bool
	Clean         bool
	Create        bool
	Extension     string
	Encoding      string
	File          string // empty writes the dump to stdout
	Format        string // p, c, d, or t
	Jobs          int
	Schema        string
	ExcludeSchema string
	NoOwner       bool
	SchemaOnly    bool
	Superuser     string
	Table         string
	ExcludeTable  string
	Verbose       bool
	NoPrivileges  bool
	Compression   string // level or method:detail, passed to --compress

	BinaryUpgrade              bool
	ColumnInserts              bool
	AttributeInserts           bool
	DisableDollarQuoting       bool
	DisableTriggers            bool
	EnableRowSecurity          bool
	Inserts                    bool
	NoComments                 bool
	NoPublications             bool
	NoSecurityLabels           bool
	NoSubscriptions            bool
	NoTableAccessMethod        bool
	NoTablespaces              bool
	NoToastCompression         bool
	NoUnloggedTableData        bool
	OnConflictDoNothing        bool
	QuoteAllIdentifiers        bool
	RowsPerInsert              int
	Snapshot                   string
	StrictNames                bool
	UseSetSessionAuthorization bool
}

// Args builds the pg_dump argument vector. The database is passed with -d
// rather than positionally so the output is unambiguous regardless of flag
// ordering.
func (c DumpConfig) Args(conn ConnectionConfig) []string {
	args := conn.Flags()
	if conn.Database != "" {
		args = append(args, "-d", conn.Database)
	}
	if c.DataOnly {
		args = append(args, "--data-only")
	}
	if c.Clean {
		args = append(args, "--clean")
	}
	if c.Create {
		args = append(args, "--create")
	}
	if c.Extension != "" {
		args = append(args, "--extension", c.Extension)
	}
	if c.Encoding != "" {
		args = append(args, "--encoding", c.Encoding)
	}
	if c.File != "" {
		args = append(args, "--file", c.File)
	}
	if c.Format != "" {
		args = append(args, "--format", c.Format)
	}
	if c.Jobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(c.Jobs))
	}
	if c.Schema != "" {
		args = append(args, "--schema", c.Schema)
	}
	if c.ExcludeSchema != "" {
		args = append(args, "--exclude-schema", c.ExcludeSchema)
	}
	if c.NoOwner {
		args = append(args, "--no-owner")
	}
	if c.SchemaOnly {
		args = append(args, "--schema-only")
	}
	if c.Superuser != "" {
		args = append(args, "--superuser", c.Superuser)
	}
	if c.Table != "" {
		args = append(args, "--table", c.Table)
	}
	if c.ExcludeTable != "" {
		args = append(args, "--exclude-table", c.ExcludeTable)
	}
	if c.Verbose {
		args = append(args, "--verbose")
	}
	if c.NoPrivileges {
		args = append(args, "--no-privileges")
	}
	if c.Compression != "" {
		args = append(args, "--compress", c.Compression)
	}
	if c.BinaryUpgrade {
		args = append(args, "--binary-upgrade")
	}
	if c.ColumnInserts {
		args = append(args, "--column-inserts")
	}
	if c.AttributeInserts {
		args = append(args, "--attribute-inserts")
	}
	if c.DisableDollarQuoting {
		args = append(args, "--disable-dollar-quoting")
	}
	if c.DisableTriggers {
		args = append(args, "--disable-triggers")
	}
	if c.EnableRowSecurity {
		args = append(args, "--enable-row-security")
	}
	if c.Inserts {
		args = append(args, "--inserts")
	}
	if c.NoComments {
		args = append(args, "--no-comments")
	}
	if c.NoPublications {
		args = append(args, "--no-publications")
	}
	if c.NoSecurityLabels {
		args = append(args, "--no-security-labels")
	}
	if c.NoSubscriptions {
		args = append(args, "--no-subscriptions")
	}
	if c.NoTableAccessMethod {
		args = append(args, "--no-table-access-method")
	}
	if c.NoTablespaces {
		args = append(args, "--no-tablespaces")
	}
	if c.NoToastCompression {
		args = append(args, "--no-toast-compression")
	}
	if c.NoUnloggedTableData {
		args = append(args, "--no-unlogged-table-data")
	}
	if c.OnConflictDoNothing {
		args = append(args, "--on-conflict-do-nothing")
	}
	if c.QuoteAllIdentifiers {
		args = append(args, "--quote-all-identifiers")
	}
	if c.RowsPerInsert > 0 {
		args = append(args, "--rows-per-insert", strconv.Itoa(c.RowsPerInsert))
	}
	if c.Snapshot != "" {
		args = append(args, "--snapshot", c.Snapshot)
	}
	if c.StrictNames {
		args = append(args, "--strict-names")
	}
	if c.UseSetSessionAuthorization {
		args = append(args, "--use-set-session-authorization")
	}
	return args
}
