package bridge

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/FluidXR/droidprep/internal/adb"
)

// HelperName is the process name of the host-side userspace bridge.
const HelperName = "simple-rt"

// ProcessTable is the host process control the helper needs.
type ProcessTable interface {
	Running(name string) bool
	KillAll(name string, force bool)
	WaitForAll(name string, timeout time.Duration) bool
}

// LaunchFunc starts argv with working directory dir.
type LaunchFunc func(argv []string, dir string) (adb.Handle, error)

// Helper owns the lifecycle of the simple-rt host process.
type Helper struct {
	Dir    string // directory holding the arm/ and linux64/ builds
	Mode   Mode
	ADB    *adb.Client
	Procs  ProcessTable
	Launch LaunchFunc // nil runs the command with os/exec
	GOOS   string     // zero means runtime.GOOS
	GOARCH string     // zero means runtime.GOARCH
	Logger *slog.Logger

	handle adb.Handle
}

func (h *Helper) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Helper) goos() string {
	if h.GOOS != "" {
		return h.GOOS
	}
	return runtime.GOOS
}

func (h *Helper) goarch() string {
	if h.GOARCH != "" {
		return h.GOARCH
	}
	return runtime.GOARCH
}

// buildDir returns the helper build directory for the host, or "" when
// no build exists for it.
func (h *Helper) buildDir() string {
	if h.goos() != "linux" {
		return ""
	}
	arch := h.goarch()
	switch {
	case arch == "arm":
		return filepath.Join(h.Dir, "arm")
	case strings.HasSuffix(arch, "64"):
		// arm64 hosts included; only 32-bit arm has its own build.
		return filepath.Join(h.Dir, "linux64")
	default:
		return ""
	}
}

// Command returns the sudo command line that runs the helper from dir.
func (h *Helper) Command(dir string) []string {
	argv := []string{"sudo", filepath.Join(dir, HelperName), "-i", h.Mode.Interface}
	if h.Mode.DNS != "" {
		argv = append(argv, "-n", h.Mode.DNS)
	}
	return argv
}

// Start launches the helper unless the mode does not use it, the host
// has no build for it, or one is already running. Stale device and host
// state is cleared first.
func (h *Helper) Start() error {
	if h.Mode.Kind != Userspace {
		return nil
	}
	if h.Procs.Running(HelperName) {
		h.logger().Debug("simple-rt already running")
		return nil
	}
	dir := h.buildDir()
	if dir == "" {
		h.logger().Warn("no simple-rt build for this host", "os", h.goos(), "arch", h.goarch())
		return nil
	}

	h.ADB.Shell("am", "force-stop", SimpleRTPackage)
	h.Procs.KillAll(HelperName, false)
	h.Procs.WaitForAll(HelperName, 30*time.Second)

	h.logger().Debug("starting simple-rt bridge process", "dir", dir)
	launch := h.Launch
	if launch == nil {
		launch = execLaunch
	}
	handle, err := launch(h.Command(dir), dir)
	if err != nil {
		return fmt.Errorf("start simple-rt: %w", err)
	}
	h.handle = handle
	return nil
}

// Stop shuts the helper down if Start launched it.
func (h *Helper) Stop() {
	if h.handle == nil {
		return
	}
	h.ADB.Shell("am", "force-stop", SimpleRTPackage)
	h.logger().Debug("stopping simple-rt bridge process")
	h.Procs.KillAll(HelperName, false)
	h.Procs.WaitForAll(HelperName, 30*time.Second)
	// Reap the sudo wrapper; it exits once the helper does.
	go h.handle.Wait()
	h.handle = nil
}

// Running reports whether Start launched a helper that Stop has not
// shut down.
func (h *Helper) Running() bool {
	return h.handle != nil
}

func execLaunch(argv []string, dir string) (adb.Handle, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProc{cmd}, nil
}

type execProc struct {
	cmd *exec.Cmd
}

func (p execProc) Wait() error { return p.cmd.Wait() }
func (p execProc) Kill() error { return p.cmd.Process.Kill() }
