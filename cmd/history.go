package cmd

import (
	"fmt"

	"github.com/FluidXR/droidprep/internal/config"
	"github.com/FluidXR/droidprep/internal/manifest"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyAll   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent readiness checks and collected artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := manifest.Open(config.ConfigDir())
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		defer db.Close()

		serial := serialOrDefault(cfg)
		filter := serial
		if historyAll {
			filter = ""
		}
		checks, err := db.RecentChecks(filter, historyLimit)
		if err != nil {
			return err
		}
		if len(checks) == 0 {
			fmt.Println("No readiness checks recorded.")
		}
		for _, c := range checks {
			status := "ready"
			if !c.Ready {
				status = "not ready: " + c.Reason
			}
			battery := "-"
			if c.BatteryLevel != nil {
				battery = fmt.Sprintf("%d%%", *c.BatteryLevel)
			}
			fmt.Printf("%s  %-16s %-6s %s\n", c.CheckedAt.Format("2006-01-02 15:04:05"), c.DeviceSerial, battery, status)
		}

		if historyAll {
			return nil
		}
		artifacts, err := db.Artifacts(serial)
		if err != nil {
			return err
		}
		if len(artifacts) > 0 {
			fmt.Printf("\nArtifacts for %s:\n", serial)
		}
		for _, a := range artifacts {
			fmt.Printf("  %-10s %s (%d bytes)\n", a.Kind, a.LocalPath, a.Size)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of checks to show")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Show checks for every device")
	rootCmd.AddCommand(historyCmd)
}
