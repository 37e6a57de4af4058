package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/FluidXR/droidprep/internal/capture"
	"github.com/FluidXR/droidprep/internal/config"
	"github.com/FluidXR/droidprep/internal/manifest"

	"github.com/spf13/cobra"
)

var (
	captureDuration time.Duration
	tcpdumpBinary   string
)

// artifactPath resolves a destination file, defaulting to a
// timestamped name in the artifact dir.
func artifactPath(cfg *config.Config, args []string, kind, ext string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	dir := cfg.ExpandArtifactDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s", kind, time.Now().Format("20060102-150405"), ext)
	return filepath.Join(dir, name), nil
}

// recordArtifact notes a pulled file in the manifest.
func recordArtifact(cfg *config.Config, kind, path string) {
	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("artifact missing after pull", "path", path, "error", err)
		return
	}
	db, err := manifest.Open(config.ConfigDir())
	if err != nil {
		slog.Warn("open manifest", "error", err)
		return
	}
	defer db.Close()
	abs, _ := filepath.Abs(path)
	if err := db.RecordArtifact(manifest.Artifact{
		RunID:        runID,
		DeviceSerial: serialOrDefault(cfg),
		Kind:         kind,
		LocalPath:    abs,
		Size:         info.Size(),
	}); err != nil {
		slog.Warn("could not record artifact", "error", err)
	}
}

// waitCapture blocks for the capture duration or until interrupted.
func waitCapture() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if captureDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, captureDuration)
		defer cancel()
		fmt.Printf("Capturing for %s (Ctrl-C to stop early)...\n", captureDuration)
	} else {
		fmt.Println("Capturing until Ctrl-C...")
	}
	<-ctx.Done()
}

var screenshotCmd = &cobra.Command{
	Use:               "screenshot [file]",
	Short:             "Capture a PNG screenshot of the device",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: requireDeps(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dest, err := artifactPath(cfg, args, "screenshot", ".png")
		if err != nil {
			return err
		}
		if err := capture.Screenshot(newClient(cfg), dest); err != nil {
			return err
		}
		recordArtifact(cfg, "screenshot", dest)
		fmt.Printf("Saved %s\n", dest)
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:               "record [file]",
	Short:             "Record the device screen to an MP4",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: requireDeps(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dest, err := artifactPath(cfg, args, "video", ".mp4")
		if err != nil {
			return err
		}
		rec := &capture.ScreenRecorder{ADB: newClient(cfg), Logger: slog.Default()}
		if err := rec.Start(); err != nil {
			return err
		}
		waitCapture()
		slog.Debug("recording size", "bytes", rec.Size())
		if err := rec.Stop(dest); err != nil {
			return err
		}
		recordArtifact(cfg, "video", dest)
		fmt.Printf("Saved %s\n", dest)
		return nil
	},
}

var tcpdumpCmd = &cobra.Command{
	Use:               "tcpdump [file]",
	Short:             "Capture device network traffic to a pcap (requires root)",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: requireDeps(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dest, err := artifactPath(cfg, args, "capture", ".cap")
		if err != nil {
			return err
		}
		binary := tcpdumpBinary
		if binary == "" {
			binary = cfg.TcpdumpBinary
		}
		pc := &capture.PacketCapture{ADB: newClient(cfg), LocalBinary: binary, Logger: slog.Default()}
		if err := pc.Start(); err != nil {
			return err
		}
		waitCapture()
		if err := pc.Stop(dest); err != nil {
			return err
		}
		recordArtifact(cfg, "pcap", dest)
		fmt.Printf("Saved %s\n", dest)
		return nil
	},
}

func init() {
	recordCmd.Flags().DurationVar(&captureDuration, "duration", 0, "Stop after this long (default: until Ctrl-C)")
	tcpdumpCmd.Flags().DurationVar(&captureDuration, "duration", 0, "Stop after this long (default: until Ctrl-C)")
	tcpdumpCmd.Flags().StringVar(&tcpdumpBinary, "binary", "", "Local tcpdump build to push if the device lacks one")
	rootCmd.AddCommand(screenshotCmd, recordCmd, tcpdumpCmd)
}
