// Package capture collects diagnostic artifacts from a device: screen
// recordings, packet captures and screenshots. Recordings run as
// background adb processes and are joined when stopped.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FluidXR/droidprep/internal/adb"
	"github.com/FluidXR/droidprep/internal/parse"
)

// Device-side artifact paths.
const (
	VideoPath      = "/data/local/tmp/wpt_video.mp4"
	ScreenshotPath = "/data/local/tmp/wpt_screenshot.png"
	TcpdumpBinary  = "/data/local/tmp/tcpdump474"
	CapturePath    = "/data/local/tmp/tcpdump.cap"
)

// JoinTimeout bounds how long Stop waits for a background process to
// exit after it has been signalled.
const JoinTimeout = 10 * time.Second

// ErrNotRunning is returned by Stop when nothing was started.
var ErrNotRunning = errors.New("capture not running")

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// ScreenRecorder records the device screen to VideoPath.
type ScreenRecorder struct {
	ADB     *adb.Client
	BitRate int // bits per second, zero means 8 Mbps
	Logger  *slog.Logger

	proc *adb.Process
}

// Start begins a recording, discarding any earlier one left on the
// device.
func (r *ScreenRecorder) Start() error {
	if r.proc != nil {
		return fmt.Errorf("screen recording already running")
	}
	rate := r.BitRate
	if rate <= 0 {
		rate = 8000000
	}
	r.ADB.Shell("rm", VideoPath)
	proc, err := r.ADB.Background("shell", "screenrecord", "--verbose",
		"--bit-rate", fmt.Sprint(rate), VideoPath)
	if err != nil {
		return fmt.Errorf("start screenrecord: %w", err)
	}
	r.proc = proc
	return nil
}

// Size returns the current size of the recording on the device.
func (r *ScreenRecorder) Size() int64 {
	out, _ := r.ADB.ShellQuiet("ls", "-l", VideoPath)
	return parse.FileSize(out)
}

// Stop ends the recording and downloads it to local.
func (r *ScreenRecorder) Stop(local string) error {
	if r.proc == nil {
		return ErrNotRunning
	}
	logger(r.Logger).Debug("stopping screenrecord")
	r.ADB.KillProc("screenrecord", "-SIGINT")
	if err := r.proc.Join(JoinTimeout); err != nil {
		logger(r.Logger).Debug("screenrecord exit", "error", err)
	}
	r.proc = nil

	ok := r.ADB.Pull(VideoPath, local)
	r.ADB.Shell("rm", VideoPath)
	if !ok {
		return fmt.Errorf("pull %s: failed", VideoPath)
	}
	return nil
}

// PacketCapture runs tcpdump on the device as root.
type PacketCapture struct {
	ADB         *adb.Client
	LocalBinary string // tcpdump build pushed when the device lacks one
	Logger      *slog.Logger

	proc *adb.Process
}

// Start installs tcpdump if needed and begins capturing all interfaces
// to CapturePath.
func (c *PacketCapture) Start() error {
	if c.proc != nil {
		return fmt.Errorf("packet capture already running")
	}
	out, ok := c.ADB.Su("ls " + TcpdumpBinary)
	if !ok || strings.Contains(out, "No such") {
		if c.LocalBinary == "" {
			return fmt.Errorf("tcpdump missing on device and no local binary configured")
		}
		if !c.ADB.Push(c.LocalBinary, TcpdumpBinary) {
			return fmt.Errorf("push %s: failed", c.LocalBinary)
		}
		c.ADB.Su("chown root " + TcpdumpBinary)
		c.ADB.Su("chmod 755 " + TcpdumpBinary)
	}
	proc, err := c.ADB.Background("shell", "su", "-c",
		fmt.Sprintf("%s -i any -p -s 0 -w %s", TcpdumpBinary, CapturePath))
	if err != nil {
		return fmt.Errorf("start tcpdump: %w", err)
	}
	c.proc = proc
	return nil
}

// Stop ends the capture and downloads it to local.
func (c *PacketCapture) Stop(local string) error {
	if c.proc == nil {
		return ErrNotRunning
	}
	logger(c.Logger).Debug("stopping tcpdump")
	c.ADB.KillProcSu("tcpdump474", "-SIGINT")
	if err := c.proc.Join(JoinTimeout); err != nil {
		logger(c.Logger).Debug("tcpdump exit", "error", err)
	}
	c.proc = nil

	c.ADB.Su("chmod 666 " + CapturePath)
	ok := c.ADB.Pull(CapturePath, local)
	c.ADB.Su("rm " + CapturePath)
	if !ok {
		return fmt.Errorf("pull %s: failed", CapturePath)
	}
	return nil
}

// Screenshot captures a PNG of the screen and downloads it to local.
func Screenshot(client *adb.Client, local string) error {
	client.ShellQuiet("rm", ScreenshotPath)
	client.Shell("screencap", "-p", ScreenshotPath)
	if !client.Pull(ScreenshotPath, local) {
		return fmt.Errorf("pull %s: failed", ScreenshotPath)
	}
	return nil
}
