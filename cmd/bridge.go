package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/FluidXR/droidprep/internal/bridge"
	"github.com/FluidXR/droidprep/internal/host"

	"github.com/spf13/cobra"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Manage the device network bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mode, err := bridge.ParseMode(cfg.RNDIS, cfg.SimpleRT)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		fmt.Printf("Bridge mode: %s\n", mode.Kind)
		switch mode.Kind {
		case bridge.StaticRNDIS:
			s := mode.Static
			fmt.Printf("  address %s gateway %s dns %s %s\n", s.Addr, s.Gateway, s.DNS1, s.DNS2)
		case bridge.Userspace:
			fmt.Printf("  interface %s dns %q\n", mode.Interface, mode.DNS)
			fmt.Printf("  helper running: %v\n", host.NewProcesses(slog.Default()).Running(bridge.HelperName))
		}
		return nil
	},
}

var bridgeUpCmd = &cobra.Command{
	Use:               "up",
	Short:             "Bring the configured bridge up once",
	PersistentPreRunE: requireDeps(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess := newSession(cfg)
		version, kernel := sess.Identity()
		var ok bool
		switch {
		case sess.Mode.IsRNDIS():
			ok = sess.RNDIS.Check(sess.ShortVersion, kernel)
		case sess.Mode.Kind == bridge.Userspace:
			ok = sess.SimpleRT.Check()
			if !ok {
				sess.SimpleRT.Reset()
			}
		default:
			return fmt.Errorf("no bridge configured (set rndis or simplert)")
		}
		if !ok {
			return fmt.Errorf("bridge not ready on %s", version)
		}
		fmt.Println("Bridge ready.")
		return nil
	},
}

var bridgeStartCmd = &cobra.Command{
	Use:               "start",
	Short:             "Run the simple-rt helper until interrupted",
	PersistentPreRunE: requireDeps(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess := newSession(cfg)
		if sess.Helper == nil {
			return fmt.Errorf("no simple-rt bridge configured")
		}
		if !sess.Start() {
			return fmt.Errorf("adb is not usable")
		}
		defer sess.Stop()
		if !sess.Helper.Running() {
			fmt.Println("simple-rt was not started (already running or unsupported host).")
			return nil
		}
		fmt.Println("simple-rt running, Ctrl-C to stop.")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		<-ctx.Done()
		return nil
	},
}

var bridgeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop any running simple-rt helper and its device app",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := newClient(cfg)
		client.Shell("am", "force-stop", bridge.SimpleRTPackage)
		procs := host.NewProcesses(slog.Default())
		procs.KillAll(bridge.HelperName, false)
		if !procs.WaitForAll(bridge.HelperName, 10*time.Second) {
			procs.KillAll(bridge.HelperName, true)
		}
		fmt.Println("simple-rt stopped.")
		return nil
	},
}

func init() {
	bridgeCmd.AddCommand(bridgeUpCmd, bridgeStartCmd, bridgeStopCmd)
	rootCmd.AddCommand(bridgeCmd)
}
