package device

import (
	"strings"

	"github.com/FluidXR/droidprep/internal/parse"
)

// Device paths cleared between runs.
var (
	purgePaths = []string{
		"/sdcard/Download/*",
		"/sdcard/Backucup",
		"/sdcard/UCDownloads",
		"/data/local/tmp/tcpdump.cap",
		"/data/local/tmp/wpt_video.mp4",
	}
	purgeRootPaths = []string{
		"/data/media/0/Download/*",
		"/data/media/0/Backucup",
		"/data/media/0/UCDownloads",
	}
)

// Cleanup clears notifications, force-stops installed known apps,
// purges download folders and dismisses stuck system dialogs.
func (s *Session) Cleanup() {
	s.ADB.Su("service call notification 1")

	for _, app := range s.KnownApps {
		if s.AppInstalled(app) {
			s.ADB.Shell("am", "force-stop", app)
		}
	}

	s.ADB.Shell(append([]string{"rm", "-rf"}, purgePaths...)...)
	s.ADB.Su("rm -rf " + strings.Join(purgeRootPaths, " "))

	out, _ := s.ADB.ShellQuiet("dumpsys", "window", "windows")
	if parse.SystemDialogShowing(out) {
		s.logger().Warn("dismissing system dialog")
		for _, key := range []string{"KEYCODE_DPAD_RIGHT", "KEYCODE_DPAD_RIGHT", "KEYCODE_ENTER"} {
			s.ADB.ShellQuiet("input", "keyevent", key)
		}
	}
}

// AppInstalled reports whether pkg is installed. The answer is cached
// for the life of the session.
func (s *Session) AppInstalled(pkg string) bool {
	if installed, ok := s.installed[pkg]; ok {
		return installed
	}
	out, _ := s.ADB.Shell("dumpsys", "package", pkg, "|", "grep", "versionName", "|", "head", "-n1")
	installed := strings.TrimSpace(out) != ""
	if s.installed == nil {
		s.installed = make(map[string]bool)
	}
	s.installed[pkg] = installed
	return installed
}
