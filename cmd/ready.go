package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/FluidXR/droidprep/internal/config"
	"github.com/FluidXR/droidprep/internal/device"
	"github.com/FluidXR/droidprep/internal/manifest"

	"github.com/spf13/cobra"
)

var (
	readyWait     bool
	readyInterval time.Duration
	readyTimeout  time.Duration
	readyNoRecord bool
)

var readyCmd = &cobra.Command{
	Use:               "ready",
	Short:             "Check whether the device is ready to run a test",
	PersistentPreRunE: requireDeps(),
	Long: `Runs one readiness pass: battery and temperature, network bridge, and a
connectivity probe. With --wait, repeats until the device is ready or the
timeout elapses. Exits non-zero when the device is not ready.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess := newSession(cfg)
		if !sess.Start() {
			return fmt.Errorf("adb is not usable")
		}
		defer sess.Stop()

		var db *manifest.DB
		if !readyNoRecord {
			db, err = manifest.Open(config.ConfigDir())
			if err != nil {
				return fmt.Errorf("open manifest: %w", err)
			}
			defer db.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		deadline := time.Now().Add(readyTimeout)
		for {
			report := sess.Check()
			if db != nil {
				recordCheck(db, serialOrDefault(cfg), report)
			}
			printReport(sess, report)
			if report.Ready {
				return nil
			}
			if !readyWait || !time.Now().Add(readyInterval).Before(deadline) {
				return fmt.Errorf("device not ready: %s", report.Reason)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("interrupted: device not ready: %s", report.Reason)
			case <-time.After(readyInterval):
			}
		}
	},
}

func recordCheck(db *manifest.DB, serial string, r device.Report) {
	_, err := db.RecordCheck(manifest.Check{
		RunID:        runID,
		DeviceSerial: serial,
		Ready:        r.Ready,
		Reason:       string(r.Reason),
		BatteryLevel: r.Battery.Level,
		Temperature:  r.Battery.Temperature,
		PingAddress:  r.PingAddress,
		RTT:          r.RTT,
	})
	if err != nil {
		slog.Warn("could not record check", "error", err)
	}
}

func printReport(sess *device.Session, r device.Report) {
	if r.Ready {
		fmt.Printf("ready (%s, ping %s %.1f ms)\n", sess.Version, r.PingAddress, r.RTT)
		return
	}
	fmt.Printf("not ready: %s\n", r.Reason)
}

func init() {
	readyCmd.Flags().BoolVar(&readyWait, "wait", false, "Poll until the device is ready")
	readyCmd.Flags().DurationVar(&readyInterval, "interval", 10*time.Second, "Delay between readiness passes with --wait")
	readyCmd.Flags().DurationVar(&readyTimeout, "timeout", 10*time.Minute, "Give up waiting after this long")
	readyCmd.Flags().BoolVar(&readyNoRecord, "no-record", false, "Don't record checks in the manifest")
	rootCmd.AddCommand(readyCmd)
}
