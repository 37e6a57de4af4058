// Package bridge brings up the network path between a tethered Android
// device and the host. Two mutually exclusive strategies exist: the
// kernel RNDIS USB interface, configured statically or by DHCP, and
// the simple-rt userspace bridge, which tunnels device traffic through
// a helper process on the host.
//
// Both convergence routines are idempotent and never fail loudly. They
// return false when the bridge is not usable yet and expect the caller
// to try again on its next readiness pass.
package bridge

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind selects a bridge strategy.
type Kind int

const (
	None Kind = iota
	StaticRNDIS
	DHCPRNDIS
	Userspace
)

func (k Kind) String() string {
	switch k {
	case StaticRNDIS:
		return "rndis-static"
	case DHCPRNDIS:
		return "rndis-dhcp"
	case Userspace:
		return "simplert"
	default:
		return "none"
	}
}

// Static is a fixed address assignment for the RNDIS interface.
type Static struct {
	Addr    string // CIDR, e.g. 192.168.0.10/24
	Gateway string
	DNS1    string
	DNS2    string
}

// Mode is the bridge configuration selected at startup.
type Mode struct {
	Kind   Kind
	Static Static // StaticRNDIS only

	// Userspace only.
	Interface string // host interface the helper routes through
	DNS       string // DNS servers handed to the helper, may be empty
}

// ConfigError reports a malformed bridge descriptor.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config %q: %s", e.Field, e.Value, e.Reason)
}

var staticRe = regexp.MustCompile(`^([\d.]+/\d+),([\d.]+),([\d.]+),([\d.]+)`)

// ParseMode builds a Mode from the RNDIS descriptor ("dhcp" or
// "cidr,gateway,dns1,dns2") and the userspace bridge descriptor
// ("interface,dns"). Either may be empty. On error the returned Mode is
// still the best usable configuration: a malformed descriptor is
// dropped, and when both are given the RNDIS one is kept.
func ParseMode(rndis, simplert string) (Mode, error) {
	rndis = strings.TrimSpace(rndis)
	simplert = strings.TrimSpace(simplert)

	var mode Mode
	var err error
	switch {
	case rndis == "":
	case rndis == "dhcp":
		mode.Kind = DHCPRNDIS
	default:
		m := staticRe.FindStringSubmatch(rndis)
		if m == nil {
			err = &ConfigError{Field: "rndis", Value: rndis, Reason: "want dhcp or cidr,gateway,dns1,dns2"}
			break
		}
		mode.Kind = StaticRNDIS
		mode.Static = Static{Addr: m[1], Gateway: m[2], DNS1: m[3], DNS2: m[4]}
	}

	if simplert == "" {
		return mode, err
	}
	if mode.Kind != None {
		return mode, &ConfigError{Field: "simplert", Value: simplert, Reason: "rndis bridge already configured"}
	}
	iface, dns, _ := strings.Cut(simplert, ",")
	iface = strings.TrimSpace(iface)
	if iface == "" {
		if err == nil {
			err = &ConfigError{Field: "simplert", Value: simplert, Reason: "want interface,dns"}
		}
		return mode, err
	}
	mode = Mode{Kind: Userspace, Interface: iface, DNS: strings.TrimSpace(dns)}
	return mode, err
}

// IsRNDIS reports whether the mode uses the kernel RNDIS interface.
func (m Mode) IsRNDIS() bool {
	return m.Kind == StaticRNDIS || m.Kind == DHCPRNDIS
}
