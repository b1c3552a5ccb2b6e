package pgtool

// Variable is a psql variable assignment passed with --variable or --pset.
type Variable struct {
	Name  string
	Value string
}

// PsqlConfig holds the options for a psql invocation. Command and File are
// mutually reinforcing entry points: Command runs a single SQL string, File
// executes a script. When both are empty psql would drop into interactive
// mode, which callers of this package never want; core always sets one.
type PsqlConfig struct {
	Command           string // -c
	File              string // -f
	List              bool
	Variable          *Variable
	NoPsqlrc          bool
	SingleTransaction bool

	EchoAll     bool
	EchoErrors  bool
	EchoQueries bool
	EchoHidden  bool
	LogFile     string
	NoReadline  bool
	Output      string
	Quiet       bool
	SingleStep  bool
	SingleLine  bool

	NoAlign             bool
	CSV                 bool
	FieldSeparator      string
	HTML                bool
	Pset                *Variable
	RecordSeparator     string
	TuplesOnly          bool
	TableAttr           string
	Expanded            bool
	FieldSeparatorZero  bool
	RecordSeparatorZero bool
}

// Args builds the psql argument vector.
func (c PsqlConfig) Args(conn ConnectionConfig) []string {
	args := conn.Flags()
	if conn.Database != "" {
		args = append(args, "-d", conn.Database)
	}
	if c.Command != "" {
		args = append(args, "--command", c.Command)
	}
	if c.File != "" {
		args = append(args, "--file", c.File)
	}
	if c.List {
		args = append(args, "--list")
	}
	if c.Variable != nil {
		args = append(args, "--variable", c.Variable.Name+"="+c.Variable.Value)
	}
	if c.NoPsqlrc {
		args = append(args, "--no-psqlrc")
	}
	if c.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	if c.EchoAll {
		args = append(args, "--echo-all")
	}
	if c.EchoErrors {
		args = append(args, "--echo-errors")
	}
	if c.EchoQueries {
		args = append(args, "--echo-queries")
	}
	if c.EchoHidden {
		args = append(args, "--echo-hidden")
	}
	if c.LogFile != "" {
		args = append(args, "--log-file", c.LogFile)
	}
	if c.NoReadline {
		args = append(args, "--no-readline")
	}
	if c.Output != "" {
		args = append(args, "--output", c.Output)
	}
	if c.Quiet {
		args = append(args, "--quiet")
	}
	if c.SingleStep {
		args = append(args, "--single-step")
	}
	if c.SingleLine {
		args = append(args, "--single-line")
	}
	if c.NoAlign {
		args = append(args, "--no-align")
	}
	if c.CSV {
		args = append(args, "--csv")
	}
	if c.FieldSeparator != "" {
		args = append(args, "--field-separator", c.FieldSeparator)
	}
	if c.HTML {
		args = append(args, "--html")
	}
	if c.Pset != nil {
		args = append(args, "--pset", c.Pset.Name+"="+c.Pset.Value)
	}
	if c.RecordSeparator != "" {
		args = append(args, "--record-separator", c.RecordSeparator)
	}
	if c.TuplesOnly {
		args = append(args, "--tuples-only")
	}
	if c.TableAttr != "" {
		args = append(args, "--table-attr", c.TableAttr)
	}
	if c.Expanded {
		args = append(args, "--expanded")
	}
	if c.FieldSeparatorZero {
		args = append(args, "--field-separator-zero")
	}
	if c.RecordSeparatorZero {
		args = append(args, "--record-separator-zero")
	}
	return args
}
