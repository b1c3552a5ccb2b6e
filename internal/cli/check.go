package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the effective settings",
	Long: `Resolve the settings from the file and flags, validate them, and
print the result without starting a server. Useful in CI to catch a broken
settings file early.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	port := "auto"
	if settings.Port != 0 {
		port = fmt.Sprintf("%d", settings.Port)
	}
	fmt.Println("settings valid")
	fmt.Printf("  host:       %s\n", settings.Host)
	fmt.Printf("  port:       %s\n", port)
	fmt.Printf("  database:   %s\n", settings.DatabaseName)
	if settings.DataDir != "" {
		fmt.Printf("  data dir:   %s (persistent: %t)\n", settings.DataDir, settings.Persistent)
	}
	if settings.InstallationDir != "" {
		fmt.Printf("  binaries:   %s\n", settings.InstallationDir)
	}
	return nil
}
