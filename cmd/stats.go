package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsSample time.Duration

var statsCmd = &cobra.Command{
	Use:               "stats",
	Short:             "Show device identity, battery, clock and traffic counters",
	PersistentPreRunE: requireDeps(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess := newSession(cfg)

		version, kernel := sess.Identity()
		fmt.Printf("Version:     %s (%.1f)\n", orUnknown(version), sess.ShortVersion)
		fmt.Printf("Client id:   %s\n", orUnknown(kernel))

		b := sess.Battery()
		if b.Level != nil {
			fmt.Printf("Battery:     %d%%\n", *b.Level)
		}
		if b.Temperature != nil {
			fmt.Printf("Temperature: %.1f C\n", *b.Temperature)
		}

		t := sess.Jiffies()
		if t.Nsecs != nil && t.Jiffies != nil {
			fmt.Printf("Uptime:      %s (%d jiffies)\n", time.Duration(*t.Nsecs).Round(time.Second), *t.Jiffies)
		}

		sess.BytesReceived()
		time.Sleep(statsSample)
		rx := sess.BytesReceived()
		fmt.Printf("Received:    %d bytes in %s\n", rx, statsSample)
		return nil
	},
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func init() {
	statsCmd.Flags().DurationVar(&statsSample, "sample", time.Second, "Window for the received-bytes measurement")
	rootCmd.AddCommand(statsCmd)
}
