package cmd

import (
	"fmt"

	"github.com/FluidXR/droidprep/internal/config"
	"github.com/FluidXR/droidprep/internal/manifest"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:               "devices",
	Short:             "List attached devices and their readiness history",
	PersistentPreRunE: requireDeps(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		devices, err := newClient(cfg).Devices()
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Println("No devices connected.")
			return nil
		}

		db, err := manifest.Open(config.ConfigDir())
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		defer db.Close()

		for _, d := range devices {
			selected := ""
			if d.Serial == cfg.Device {
				selected = " *"
			}

			status := d.State
			if !d.IsOnline() {
				status = "OFFLINE"
			}

			fmt.Printf("%-20s %s  [%s] [%s]%s\n",
				d.Serial, d.Model, d.ConnType, status, selected)

			stats, err := db.GetDeviceStats(d.Serial)
			if err == nil && stats.Checks > 0 {
				fmt.Printf("  Checks: %d | Ready: %d | Artifacts: %d\n",
					stats.Checks, stats.ReadyChecks, stats.Artifacts)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
