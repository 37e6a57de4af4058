package parse

import (
	"regexp"
	"strings"
)

// Tether interface names in order of preference.
const (
	RNDISInterface = "rndis0"
	USBInterface   = "usb0"
	TunInterface   = "tun0"
)

// LinkState is the operational state reported by `ip`.
type LinkState string

const (
	StateUp      LinkState = "up"
	StateDown    LinkState = "down"
	StateUnknown LinkState = "unknown"
)

var (
	linkRe = regexp.MustCompile(`\d+:\s+([^:\s]+):[^\n]*state (\w+)`)
	inetRe = regexp.MustCompile(`^\s*inet ([\d.]+)`)
	tunRe  = regexp.MustCompile(`^\d+:\s+` + TunInterface + `:`)
)

// InterfaceStatus describes one network interface as of a single query.
type InterfaceStatus struct {
	Name    string
	State   LinkState
	Address string // empty when no IPv4 address is assigned
}

// Ready reports whether the interface is up with an address.
func (s InterfaceStatus) Ready() bool {
	return s.Name != "" && s.State == StateUp && s.Address != ""
}

func linkState(s string) LinkState {
	switch strings.ToLower(s) {
	case "up":
		return StateUp
	case "down":
		return StateDown
	default:
		return StateUnknown
	}
}

// TetherInterface finds the USB tether interface in `ip address show`
// output. rndis0 wins over usb0 wherever it appears; ok is false when
// neither is listed. An inet line is attributed to the tether interface
// only when no other interface header intervenes.
func TetherInterface(ipAddr string) (status InterfaceStatus, ok bool) {
	collecting := false
	for _, line := range lines(ipAddr) {
		if m := linkRe.FindStringSubmatch(line); m != nil {
			collecting = false
			name := m[1]
			if name == RNDISInterface || (name == USBInterface && status.Name == "") {
				status = InterfaceStatus{Name: name, State: linkState(m[2])}
				collecting = true
			}
			continue
		}
		if collecting && status.Address == "" {
			if m := inetRe.FindStringSubmatch(line); m != nil {
				status.Address = m[1]
			}
		}
	}
	return status, status.Name != ""
}

// Links returns the interface names in `ip link show` output.
func Links(ipLink string) []string {
	var names []string
	for _, line := range lines(ipLink) {
		if m := linkRe.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// TunnelPresent reports whether tun0 is listed in `ip address show`
// output.
func TunnelPresent(ipAddr string) bool {
	for _, line := range lines(ipAddr) {
		if tunRe.MatchString(line) {
			return true
		}
	}
	return false
}
