package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/pgenv"
)

var (
	flagRestoreDatabase string
	flagRestoreClean    bool
	flagRestoreJobs     int
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore a pg_dump archive with pg_restore",
	Long: `Bring up the configured server and restore a custom, directory or
tar format archive into the target database, creating it first when it
does not exist.

Examples:
  pgenvctl restore -D ~/pg --persistent -d app app.dump
  pgenvctl restore -D ~/pg --persistent -d app --clean --jobs 4 app.dump`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&flagRestoreDatabase, "database", "d", "", "database to restore into (default: the configured one)")
	restoreCmd.Flags().BoolVar(&flagRestoreClean, "clean", false, "drop database objects before recreating them")
	restoreCmd.Flags().IntVar(&flagRestoreJobs, "jobs", 0, "number of parallel restore jobs")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	inst, err := newInstance()
	if err != nil {
		return err
	}
	defer inst.Cleanup()

	ctx := cmd.Context()
	if err := inst.Start(ctx); err != nil {
		return err
	}
	if flagRestoreDatabase != "" {
		if err := ensureDatabase(cmd, inst, flagRestoreDatabase); err != nil {
			return err
		}
	}

	cfg := pgenv.RestoreConfig{
		File:  args[0],
		Clean: flagRestoreClean,
		Jobs:  flagRestoreJobs,
	}
	res, err := inst.CreateRestore(ctx, cfg, flagRestoreDatabase)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		os.Stderr.WriteString(res.Stderr)
		return fmt.Errorf("pg_restore exited with code %d", res.ExitCode)
	}
	fmt.Printf("restored %s\n", args[0])
	return nil
}
