package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/pgenv"
)

var (
	flagExecFile     string
	flagExecDatabase string
	flagExecRaw      bool
)

var execCmd = &cobra.Command{
	Use:   "exec [sql]",
	Short: "Run SQL against a server and print the result as JSON",
	Long: `Bring up the configured server, execute the statement (or the
script given with --file), and print the result: a JSON object with the
rows under "data" and the row count under "rowCount".

With a persistent data directory this operates on the existing cluster;
otherwise the statement runs against a fresh, empty one.

Examples:
  pgenvctl exec "SELECT version()"
  pgenvctl exec -D ~/pg --persistent -d app "SELECT count(*) FROM users"
  pgenvctl exec --file schema.sql --raw`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVarP(&flagExecFile, "file", "f", "", "execute a SQL script instead of a statement")
	execCmd.Flags().StringVarP(&flagExecDatabase, "database", "d", "", "database to run against (default: the configured one)")
	execCmd.Flags().BoolVar(&flagExecRaw, "raw", false, "print psql output verbatim instead of JSON")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	sql := ""
	if len(args) == 1 {
		sql = args[0]
	}
	if sql == "" && flagExecFile == "" {
		return errors.New("either a SQL statement or --file is required")
	}
	if sql != "" && flagExecFile != "" {
		return errors.New("a SQL statement and --file are mutually exclusive")
	}

	inst, err := newInstance()
	if err != nil {
		return err
	}
	defer inst.Cleanup()

	ctx := cmd.Context()
	if err := inst.Start(ctx); err != nil {
		return err
	}
	if flagExecDatabase != "" {
		if err := ensureDatabase(cmd, inst, flagExecDatabase); err != nil {
			return err
		}
	}

	if flagExecFile != "" || flagExecRaw {
		cfg := pgenv.PsqlConfig{File: flagExecFile, Quiet: true, NoPsqlrc: true}
		res, err := inst.ExecuteSQL(ctx, sql, cfg, flagExecDatabase)
		if err != nil {
			return err
		}
		os.Stdout.WriteString(res.Stdout)
		if res.ExitCode != 0 {
			os.Stderr.WriteString(res.Stderr)
			return fmt.Errorf("psql exited with code %d", res.ExitCode)
		}
		return nil
	}

	result, err := inst.ExecuteSQLJSON(ctx, sql, flagExecDatabase)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// ensureDatabase creates the target database when it does not exist yet,
// so exec/restore against a fresh cluster just work.
func ensureDatabase(cmd *cobra.Command, inst *pgenv.Instance, name string) error {
	exists, err := inst.DatabaseExists(cmd.Context(), name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return inst.CreateDatabase(cmd.Context(), name)
}
