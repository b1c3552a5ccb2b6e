package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/pgenv"
)

var (
	flagDumpFile     string
	flagDumpFormat   string
	flagDumpDatabase string
	flagDumpAll      bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump a database with pg_dump",
	Long: `Bring up the configured server and dump one database (or, with
--all, the whole cluster via pg_dumpall). Meant for clusters kept in a
persistent data directory.

Examples:
  pgenvctl dump -D ~/pg --persistent -d app -o app.sql
  pgenvctl dump -D ~/pg --persistent -d app -o app.dump --format c
  pgenvctl dump -D ~/pg --persistent --all -o cluster.sql`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&flagDumpFile, "output", "o", "", "output file (default: stdout)")
	dumpCmd.Flags().StringVar(&flagDumpFormat, "format", "", "pg_dump format: p(lain), c(ustom), d(irectory), t(ar)")
	dumpCmd.Flags().StringVarP(&flagDumpDatabase, "database", "d", "", "database to dump (default: the configured one)")
	dumpCmd.Flags().BoolVar(&flagDumpAll, "all", false, "dump the whole cluster with pg_dumpall")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	inst, err := newInstance()
	if err != nil {
		return err
	}
	defer inst.Cleanup()

	ctx := cmd.Context()
	if err := inst.Start(ctx); err != nil {
		return err
	}

	var res pgenv.Result
	if flagDumpAll {
		res, err = inst.CreateDumpAll(ctx, pgenv.DumpAllConfig{File: flagDumpFile})
	} else {
		cfg := pgenv.DumpConfig{File: flagDumpFile, Format: flagDumpFormat}
		res, err = inst.CreateDump(ctx, cfg, flagDumpDatabase)
	}
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		os.Stderr.WriteString(res.Stderr)
		return fmt.Errorf("dump exited with code %d", res.ExitCode)
	}
	if flagDumpFile == "" {
		os.Stdout.WriteString(res.Stdout)
	} else {
		fmt.Printf("dump written to %s (%s)\n", flagDumpFile, res.Duration.Round(time.Millisecond))
	}
	return nil
}
