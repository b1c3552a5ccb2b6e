package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a server and keep it running until interrupted",
	Long: `Start a PostgreSQL server and print its connection details, then
block until SIGINT or SIGTERM. The server and (unless --persistent) its
data directory are cleaned up on exit.

Examples:
  pgenvctl run                            # throwaway server on a free port
  pgenvctl run -p 5432 -D ~/pg --persistent
  pgenvctl run -c pgenv.toml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	inst, err := newInstance()
	if err != nil {
		return err
	}
	defer inst.Cleanup()

	if err := inst.Start(cmd.Context()); err != nil {
		return err
	}
	info, err := inst.ConnectionInfo()
	if err != nil {
		return err
	}

	dataDir, _ := inst.DataDir()
	fmt.Printf("server ready on port %d\n", info.Port)
	fmt.Printf("  url:      %s\n", info.ConnectionString())
	fmt.Printf("  jdbc:     %s\n", info.JDBCURL())
	fmt.Printf("  data dir: %s\n", dataDir)
	fmt.Println("press Ctrl-C to stop")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	signal.Stop(stop)

	fmt.Println("\nshutting down")
	return nil
}
