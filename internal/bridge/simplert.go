package bridge

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/FluidXR/droidprep/internal/adb"
	"github.com/FluidXR/droidprep/internal/parse"
)

// SimpleRTPackage is the device-side companion app of the simple-rt
// helper.
const SimpleRTPackage = "com.viper.simplert"

// DefaultTunnelWait bounds how long Check waits for tun0.
const DefaultTunnelWait = 30 * time.Second

// SimpleRT checks the device side of the userspace bridge.
type SimpleRT struct {
	ADB    *adb.Client
	Clock  clock.Clock
	Wait   time.Duration // zero means DefaultTunnelWait
	Logger *slog.Logger
}

func (s *SimpleRT) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *SimpleRT) clock() clock.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return clock.RealClock{}
}

// TunnelUp reports whether tun0 exists on the device.
func (s *SimpleRT) TunnelUp() bool {
	out, ok := s.ADB.ShellQuiet("ip", "address", "show")
	if !ok {
		return false
	}
	return parse.TunnelPresent(out)
}

// DismissVPNDialog accepts the VPN permission prompt if it is showing.
func (s *SimpleRT) DismissVPNDialog() {
	out, _ := s.ADB.ShellQuiet("dumpsys", "window", "windows")
	if !parse.VPNDialogShowing(out) {
		return
	}
	s.logger().Warn("dismissing VPN dialog")
	for _, key := range []string{"KEYCODE_DPAD_RIGHT", "KEYCODE_ENTER", "KEYCODE_DPAD_RIGHT", "KEYCODE_ENTER"} {
		s.ADB.ShellQuiet("input", "keyevent", key)
	}
}

// Check reports whether the tunnel is up. If it is not, it cycles the
// USB personality so the helper re-attaches and polls for the tunnel
// once a second until the wait elapses.
func (s *SimpleRT) Check() bool {
	if s.TunnelUp() {
		return true
	}
	s.ADB.Su("setprop sys.usb.config adb")
	s.ADB.WaitForDevice()

	wait := s.Wait
	if wait <= 0 {
		wait = DefaultTunnelWait
	}
	clk := s.clock()
	deadline := clk.Now().Add(wait)
	for clk.Now().Before(deadline) {
		clk.Sleep(time.Second)
		s.DismissVPNDialog()
		if s.TunnelUp() {
			return true
		}
	}
	s.logger().Debug("simplert bridge not started")
	return false
}

// Reset force-stops the device app so the next attempt starts clean.
func (s *SimpleRT) Reset() {
	s.ADB.Shell("am", "force-stop", SimpleRTPackage)
}
