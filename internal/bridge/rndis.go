package bridge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/FluidXR/droidprep/internal/adb"
	"github.com/FluidXR/droidprep/internal/parse"
)

const rndisUSBConfig = "rndis,adb"

// SamsungKernel is the ro.com.google.clientidbase value reported by
// Samsung builds, which use their own tether function code.
const SamsungKernel = "android-samsung"

// TetherFunction returns the connectivity service transaction code that
// enables USB tethering on the given Android version. Unknown versions
// get the 4.4 code.
func TetherFunction(shortVersion float64, kernel string) string {
	switch {
	case shortVersion >= 6.0:
		if kernel == SamsungKernel {
			return "41"
		}
		return "30"
	case shortVersion >= 5.1:
		return "31"
	case shortVersion >= 5.0:
		return "30"
	case shortVersion >= 4.4:
		return "34"
	case shortVersion >= 4.1:
		return "33"
	case shortVersion >= 4.0:
		return "32"
	default:
		return "34"
	}
}

// RNDIS configures the kernel USB tether interface.
type RNDIS struct {
	ADB    *adb.Client
	Mode   Mode
	Logger *slog.Logger
}

func (r *RNDIS) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Interface queries the current tether interface. ok is false when no
// rndis0 or usb0 interface exists.
func (r *RNDIS) Interface() (parse.InterfaceStatus, bool) {
	out, ok := r.ADB.ShellQuiet("ip", "address", "show")
	if !ok {
		return parse.InterfaceStatus{}, false
	}
	return parse.TetherInterface(out)
}

// Check brings the RNDIS interface up if it is not already up with an
// address, and reports whether it is ready. shortVersion and kernel
// select the tether function code.
func (r *RNDIS) Check(shortVersion float64, kernel string) bool {
	status, _ := r.Interface()
	if status.Ready() {
		return true
	}
	if !r.Mode.IsRNDIS() {
		return false
	}
	log := r.logger()

	if cfg, _ := r.ADB.Getprop("sys.usb.config"); cfg != rndisUSBConfig {
		log.Debug("enabling rndis USB mode", "current", cfg)
		r.ADB.Su("setprop sys.usb.config " + rndisUSBConfig)
		r.ADB.WaitForDevice()
	}
	fn := TetherFunction(shortVersion, kernel)
	r.ADB.Su(fmt.Sprintf("service call connectivity %s i32 1", fn))
	r.ADB.WaitForDevice()

	status, found := r.Interface()
	if !found {
		log.Debug("rndis interface did not appear", "tether_function", fn)
		return false
	}
	iface := status.Name

	r.ADB.Su("svc wifi disable")
	r.isolate(iface)

	switch r.Mode.Kind {
	case StaticRNDIS:
		r.assign(iface, r.Mode.Static)
		status, _ = r.Interface()
		if status.Ready() {
			return true
		}
		log.Debug("static rndis address not live", "interface", iface, "state", status.State)
		return false
	case DHCPRNDIS:
		r.ADB.Su(fmt.Sprintf("netcfg %s dhcp", iface))
	}
	return false
}

// isolate takes down every interface other than iface, loopback and
// Wi-Fi so the default route is unambiguous.
func (r *RNDIS) isolate(iface string) {
	out, ok := r.ADB.Su("ip link show")
	if !ok && out == "" {
		return
	}
	for _, name := range parse.Links(out) {
		if name == iface || name == "lo" || strings.HasPrefix(name, "wlan") {
			continue
		}
		r.ADB.Su(fmt.Sprintf("ip link set %s down", name))
	}
}

func (r *RNDIS) assign(iface string, s Static) {
	su := r.ADB.Su
	su("ip rule add from all lookup main")
	su(fmt.Sprintf("ip link set %s down", iface))
	su(fmt.Sprintf("ip addr flush dev %s", iface))
	su(fmt.Sprintf("ip addr add %s dev %s", s.Addr, iface))
	su(fmt.Sprintf("ip link set %s up", iface))

	su(fmt.Sprintf("route add -net 0.0.0.0 netmask 0.0.0.0 gw %s dev %s", s.Gateway, iface))
	su(fmt.Sprintf("setprop net.%s.gw %s", iface, s.Gateway))
	su(fmt.Sprintf("setprop net.%s.gateway %s", iface, s.Gateway))

	su(fmt.Sprintf("setprop net.dns1 %s", s.DNS1))
	su(fmt.Sprintf("setprop net.dns2 %s", s.DNS2))
	su(fmt.Sprintf("setprop net.%s.dns1 %s", iface, s.DNS1))
	su(fmt.Sprintf("setprop net.%s.dns2 %s", iface, s.DNS2))
	su(fmt.Sprintf("ndc resolver setifdns %s %s %s", iface, s.DNS1, s.DNS2))
	su(fmt.Sprintf("ndc resolver setdefaultif %s", iface))

	su(`setprop "net.gprs.http-proxy" ""`)
}
