// Package parse extracts structured facts from the free-text output of
// commands run on an Android device. Every function is pure, tolerates
// missing fields and foreign lines, and reports absence explicitly
// rather than returning a zero value that could be mistaken for data.
package parse

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// FallbackProbeAddress is always the last connectivity probe target.
const FallbackProbeAddress = "8.8.8.8"

var (
	batteryLevelRe = regexp.MustCompile(`^\s*level:\s*(\d+)`)
	batteryTempRe  = regexp.MustCompile(`^\s*temperature:\s*(\d+)`)
	rttRe          = regexp.MustCompile(`^\s*rtt\s[^=]*=\s*([\d.]+)`)
	versionRe      = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)
	netDNSRe       = regexp.MustCompile(`^\[net\.dns\d\]:\s+\[([^\]]*)\]`)
	dhcpDNSRe      = regexp.MustCompile(`^\[dhcp\.[^.]+\.dns\d\]:\s+\[([^\]]*)\]`)
	dhcpGatewayRe  = regexp.MustCompile(`^\[dhcp\.[^.]+\.gateway\]:\s+\[([^\]]*)\]`)
	netDevRe       = regexp.MustCompile(`^\s*([\w.-]+):\s+(\d+)`)
	nowNsecsRe     = regexp.MustCompile(`^now at (\d+) nsecs`)
	jiffiesRe      = regexp.MustCompile(`^jiffies:\s+(\d+)`)
	lsSizeRe       = regexp.MustCompile(`[^\d]+\s+(\d+) \d+`)
	pidRe          = regexp.MustCompile(`^\s*\S+\s+(\d+)`)
	appErrorRe     = regexp.MustCompile(`Window #[^\n]*Application Error:`)
	usbDebugRe     = regexp.MustCompile(`Window #[^\n]*systemui\.usb\.UsbDebuggingActivity`)
)

// lines splits output into lines, dropping trailing carriage returns
// left by the device shell.
func lines(output string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out = append(out, strings.TrimRight(scanner.Text(), "\r"))
	}
	return out
}

// BatteryStatus holds the readings from `dumpsys battery`. A nil field
// means the reading was not present in the output.
type BatteryStatus struct {
	Level       *int
	Temperature *float64 // degrees Celsius
}

// Battery parses `dumpsys battery` output. The device reports
// temperature in tenths of a degree.
func Battery(output string) BatteryStatus {
	var b BatteryStatus
	for _, line := range lines(output) {
		if m := batteryLevelRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				b.Level = &n
			}
		}
		if m := batteryTempRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				t := float64(n) / 10.0
				b.Temperature = &t
			}
		}
	}
	return b
}

// PingRTT returns the first figure of the rtt summary line of `ping`
// output, in milliseconds. ok is false when no rtt summary line is present, which
// means the target did not respond.
func PingRTT(output string) (rtt float64, ok bool) {
	for _, line := range lines(output) {
		m := rttRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		rtt, ok = v, true
	}
	return rtt, ok
}

// ShortVersion derives a numeric major.minor version from the
// ro.build.version.release property. "7.1.2" yields 7.1, "10" yields 10.
func ShortVersion(release string) (float64, bool) {
	m := versionRe.FindStringSubmatch(release)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ProbeTargets harvests connectivity probe addresses from `getprop`
// output: the DHCP gateway first, then every DNS server in the order
// encountered, then FallbackProbeAddress. Duplicates are dropped.
func ProbeTargets(getprop string) []string {
	var gateway string
	var dns []string
	for _, line := range lines(getprop) {
		if m := netDNSRe.FindStringSubmatch(line); m != nil {
			dns = append(dns, m[1])
		}
		if m := dhcpDNSRe.FindStringSubmatch(line); m != nil {
			dns = append(dns, m[1])
		}
		if m := dhcpGatewayRe.FindStringSubmatch(line); m != nil && gateway == "" {
			gateway = m[1]
		}
	}

	var targets []string
	seen := make(map[string]bool)
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		targets = append(targets, addr)
	}
	add(gateway)
	for _, d := range dns {
		add(d)
	}
	add(FallbackProbeAddress)
	return targets
}

// BytesReceived sums the receive byte counters of every non-loopback
// interface in /proc/net/dev.
func BytesReceived(procNetDev string) (uint64, bool) {
	var total uint64
	found := false
	for _, line := range lines(procNetDev) {
		m := netDevRe.FindStringSubmatch(line)
		if m == nil || m[1] == "lo" {
			continue
		}
		n, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			continue
		}
		total += n
		found = true
	}
	return total, found
}

// TimerList holds the clock readings from /proc/timer_list. A nil field
// was not found.
type TimerList struct {
	Nsecs   *int64
	Jiffies *int64
}

// Jiffies parses the first "now at N nsecs" and "jiffies: N" lines of
// /proc/timer_list.
func Jiffies(timerList string) TimerList {
	var t TimerList
	for _, line := range lines(timerList) {
		if t.Nsecs == nil {
			if m := nowNsecsRe.FindStringSubmatch(line); m != nil {
				if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					t.Nsecs = &n
				}
			}
		}
		if t.Jiffies == nil {
			if m := jiffiesRe.FindStringSubmatch(line); m != nil {
				if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					t.Jiffies = &n
				}
			}
		}
	}
	return t
}

// FileSize returns the size column of a single-file `ls -l` listing, or
// 0 when it cannot be found.
func FileSize(ls string) int64 {
	m := lsSizeRe.FindStringSubmatch(ls)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// PackageVersion returns the first non-empty value after '=' in the
// `dumpsys package <pkg> | grep versionName` output.
func PackageVersion(output string) (string, bool) {
	for _, line := range lines(output) {
		i := strings.Index(line, "=")
		if i < 0 {
			continue
		}
		if v := strings.TrimSpace(line[i+1:]); v != "" {
			return v, true
		}
	}
	return "", false
}

// PIDs returns the process ids from `ps` output on lines containing
// filter. An empty filter matches every line. The pid is the second
// column.
func PIDs(ps, filter string) []string {
	var pids []string
	for _, line := range lines(ps) {
		if filter != "" && !strings.Contains(line, filter) {
			continue
		}
		if m := pidRe.FindStringSubmatch(line); m != nil {
			pids = append(pids, m[1])
		}
	}
	return pids
}

// SystemDialogShowing reports whether `dumpsys window windows` output
// shows an application error or USB debugging authorization window.
func SystemDialogShowing(windows string) bool {
	return appErrorRe.MatchString(windows) || usbDebugRe.MatchString(windows)
}

// VPNDialogShowing reports whether the VPN permission dialog is on
// screen.
func VPNDialogShowing(windows string) bool {
	return strings.Contains(windows, "com.android.vpndialogs")
}
