package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/FluidXR/droidprep/internal/adb"
	"github.com/FluidXR/droidprep/internal/bridge"
	"github.com/FluidXR/droidprep/internal/config"
	"github.com/FluidXR/droidprep/internal/device"
	"github.com/FluidXR/droidprep/internal/host"
)

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDevice != "" {
		cfg.Device = flagDevice
	}
	if flagADB != "" {
		cfg.ADBPath = flagADB
	}
	if flagRNDIS != "" {
		cfg.RNDIS = flagRNDIS
	}
	if flagSimpleRT != "" {
		cfg.SimpleRT = flagSimpleRT
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *adb.Client {
	client := adb.NewClient(cfg.Device)
	if cfg.ADBPath != "" {
		client.Exe = cfg.ADBPath
	}
	if cfg.CommandTimeout > 0 {
		client.Timeout = cfg.CommandTimeout
	}
	client.Logger = slog.Default()
	return client
}

// newSession builds a readiness session from the effective config. A
// malformed bridge descriptor is logged and that bridge is disabled.
func newSession(cfg *config.Config) *device.Session {
	log := slog.Default()
	mode, err := bridge.ParseMode(cfg.RNDIS, cfg.SimpleRT)
	if err != nil {
		var cerr *bridge.ConfigError
		if errors.As(err, &cerr) {
			log.Error("bridge configuration", "field", cerr.Field, "value", cerr.Value, "reason", cerr.Reason)
		} else {
			log.Error("bridge configuration", "error", err)
		}
	}

	client := newClient(cfg)
	sess := device.NewSession(client, mode, log)
	if len(cfg.KnownApps) > 0 {
		sess.KnownApps = cfg.KnownApps
	}
	if cfg.MinBattery > 0 {
		sess.MinBattery = cfg.MinBattery
	}
	if cfg.MaxTemperature > 0 {
		sess.MaxTemperature = cfg.MaxTemperature
	}

	procs := host.NewProcesses(log)
	sess.Pinner = procs
	if mode.Kind == bridge.Userspace {
		dir := cfg.SimpleRTDir
		if dir == "" {
			dir = filepath.Join(config.ConfigDir(), "simple-rt")
		}
		sess.Helper = &bridge.Helper{
			Dir:    dir,
			Mode:   mode,
			ADB:    client,
			Procs:  procs,
			Logger: log,
		}
	}
	return sess
}

func serialOrDefault(cfg *config.Config) string {
	if cfg.Device != "" {
		return cfg.Device
	}
	return "default"
}
