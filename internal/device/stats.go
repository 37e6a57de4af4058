package device

import "github.com/FluidXR/droidprep/internal/parse"

// BytesReceived returns the bytes received across all non-loopback
// interfaces since the previous call. The first call returns the full
// counter. If the device counter went backwards, the lower value becomes
// the new baseline and the delta is 0.
func (s *Session) BytesReceived() uint64 {
	out, ok := s.ADB.ShellQuiet("cat", "/proc/net/dev")
	if !ok {
		return 0
	}
	total, found := parse.BytesReceived(out)
	if !found {
		return 0
	}
	var delta uint64
	if total >= s.lastBytesRx {
		delta = total - s.lastBytesRx
	}
	s.lastBytesRx = total
	return delta
}

// Jiffies reads the kernel uptime in nanoseconds and jiffies, used to
// derive the device HZ.
func (s *Session) Jiffies() parse.TimerList {
	out, _ := s.ADB.ShellQuiet("cat", "/proc/timer_list")
	return parse.Jiffies(out)
}

// PackageVersion returns the versionName of an installed package.
func (s *Session) PackageVersion(pkg string) (string, bool) {
	out, ok := s.ADB.Shell("dumpsys", "package", pkg, "|", "grep", "versionName")
	if !ok && out == "" {
		return "", false
	}
	v, found := parse.PackageVersion(out)
	if found {
		s.logger().Debug("package version", "package", pkg, "version", v)
	}
	return v, found
}
