package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Version of droidprep.
const Version = "0.3.0"

var (
	flagDevice   string
	flagADB      string
	flagRNDIS    string
	flagSimpleRT string
	flagVerbose  bool

	// runID groups the manifest rows written by one invocation.
	runID = uuid.NewString()
)

var rootCmd = &cobra.Command{
	Use:     "droidprep",
	Short:   "Prepare tethered Android devices for automated browser testing",
	Version: Version,
	Long: `droidprep drives an Android device over ADB to keep it fit for automated
browser and network testing: it checks battery, temperature and connectivity,
brings up an RNDIS or simple-rt network bridge, cleans transient state between
runs, and captures screenshots, screen recordings and packet captures.`,
	SilenceUsage: true,
}

// requireDeps returns a PersistentPreRunE that checks for external
// dependencies.
func requireDeps() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return checkDeps()
	}
}

func initLogging() {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func init() {
	cobra.OnInitialize(initLogging)
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDevice, "device", "s", "", "Device serial (default: from config, or the only attached device)")
	pf.StringVar(&flagADB, "adb", "", "Path to the adb executable")
	pf.StringVar(&flagRNDIS, "rndis", "", `RNDIS bridge: "dhcp" or "cidr,gateway,dns1,dns2"`)
	pf.StringVar(&flagSimpleRT, "simplert", "", `simple-rt bridge: "interface,dns"`)
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
