package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:               "cleanup",
	Short:             "Clear transient device state between test runs",
	PersistentPreRunE: requireDeps(),
	Long: `Clears notifications, force-stops known pop-over apps, purges download and
capture folders, and dismisses stuck system dialogs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess := newSession(cfg)
		sess.Cleanup()
		for _, app := range sess.KnownApps {
			state := "not installed"
			if sess.AppInstalled(app) {
				state = "stopped"
			}
			fmt.Printf("  %-40s %s\n", app, state)
		}
		fmt.Println("Cleanup done.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
