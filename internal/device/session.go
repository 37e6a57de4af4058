// Package device decides whether an attached Android device is fit to
// run a test and keeps it that way between runs.
//
// A Session holds everything learned about one device for the life of
// the process: its identity, which interfering apps are installed, the
// last address that answered a ping and the receive byte counter.
// IsReady is meant to be polled; every call re-evaluates the device and
// converges it toward a usable state.
package device

import (
	"log/slog"

	"github.com/FluidXR/droidprep/internal/adb"
	"github.com/FluidXR/droidprep/internal/bridge"
	"github.com/FluidXR/droidprep/internal/parse"
)

// Readiness thresholds.
const (
	DefaultMinBattery     = 50
	DefaultMaxTemperature = 36.0
)

// DefaultKnownApps are packages that pop over the browser under test
// and are force-stopped during cleanup.
var DefaultKnownApps = []string{
	"com.motorola.ccc.ota",
	"com.google.android.apps.docs",
	"com.samsung.android.MtpApplication",
}

const cellBroadcastPackage = "com.android.cellbroadcastreceiver"

// State is the outcome of the most recent readiness evaluation.
type State int

const (
	Uninitialized State = iota
	Checking
	Ready
	NotReady
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Ready:
		return "ready"
	case NotReady:
		return "not ready"
	default:
		return "uninitialized"
	}
}

// Reason names the stage at which a readiness pass stopped.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonBattery     Reason = "low battery"
	ReasonTemperature Reason = "high temperature"
	ReasonBridge      Reason = "bridge not ready"
	ReasonNetwork     Reason = "network not responding"
)

// Report describes one readiness pass.
type Report struct {
	Ready       bool
	Reason      Reason
	Battery     parse.BatteryStatus
	PingAddress string
	RTT         float64
}

// Pinner pins the local adb server to one CPU.
type Pinner interface {
	PinADB()
}

// Session is the readiness state of one device.
type Session struct {
	ADB      *adb.Client
	Mode     bridge.Mode
	RNDIS    *bridge.RNDIS
	SimpleRT *bridge.SimpleRT
	Helper   *bridge.Helper // nil when the host does not run the helper
	Pinner   Pinner

	KnownApps      []string
	MinBattery     int
	MaxTemperature float64
	Logger         *slog.Logger

	// Identity, fetched once.
	Version      string // e.g. "Android 7.1.2"
	ShortVersion float64
	Kernel       string
	versionKnown bool
	kernelKnown  bool
	cleaned      bool

	state       State
	initialized bool
	pingAddress string
	lastBytesRx uint64
	installed   map[string]bool
}

// NewSession returns a Session for client with default thresholds and
// bridge controllers for mode.
func NewSession(client *adb.Client, mode bridge.Mode, logger *slog.Logger) *Session {
	return &Session{
		ADB:            client,
		Mode:           mode,
		RNDIS:          &bridge.RNDIS{ADB: client, Mode: mode, Logger: logger},
		SimpleRT:       &bridge.SimpleRT{ADB: client, Logger: logger},
		KnownApps:      DefaultKnownApps,
		MinBattery:     DefaultMinBattery,
		MaxTemperature: DefaultMaxTemperature,
		Logger:         logger,
	}
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// State returns the outcome of the last readiness pass.
func (s *Session) State() State { return s.state }

// Initialized reports whether a readiness pass has fully succeeded.
func (s *Session) Initialized() bool { return s.initialized }

// PingAddress returns the last address that answered a ping.
func (s *Session) PingAddress() string { return s.pingAddress }

// Start verifies that adb works and launches the userspace bridge
// helper when one is configured.
func (s *Session) Start() bool {
	if _, err := s.ADB.Devices(); err != nil {
		s.logger().Error("adb is not usable", "error", err)
		return false
	}
	if s.Pinner != nil {
		s.Pinner.PinADB()
	}
	if s.Helper != nil {
		if err := s.Helper.Start(); err != nil {
			s.logger().Error("userspace bridge", "error", err)
		}
	}
	return true
}

// Stop shuts down the userspace bridge helper if Start launched it.
func (s *Session) Stop() {
	if s.Helper != nil {
		s.Helper.Stop()
	}
}

// IsReady reports whether the device can run a test now.
func (s *Session) IsReady() bool {
	return s.Check().Ready
}

// Check runs one readiness pass and describes the outcome.
func (s *Session) Check() Report {
	s.state = Checking
	r := s.check()
	if r.Ready {
		s.state = Ready
	} else {
		s.state = NotReady
	}
	return r
}

func (s *Session) check() Report {
	log := s.logger()
	s.identify()

	var r Report
	r.Battery = s.Battery()
	if b := r.Battery.Level; b != nil && *b < s.MinBattery {
		log.Info("device not ready, low battery", "level", *b)
		r.Reason = ReasonBattery
		return r
	}
	if t := r.Battery.Temperature; t != nil && *t > s.MaxTemperature {
		log.Info("device not ready, high temperature", "celsius", *t)
		r.Reason = ReasonTemperature
		return r
	}

	switch {
	case s.Mode.IsRNDIS():
		if !s.RNDIS.Check(s.ShortVersion, s.Kernel) {
			r.Reason = ReasonBridge
			return r
		}
	case s.Mode.Kind == bridge.Userspace:
		if !s.SimpleRT.Check() {
			s.SimpleRT.Reset()
			r.Reason = ReasonBridge
			return r
		}
	}

	addr, rtt, ok := s.probe()
	if !ok {
		log.Info("device not ready, network not responding")
		if s.Mode.Kind == bridge.Userspace {
			s.SimpleRT.Reset()
		}
		r.Reason = ReasonNetwork
		return r
	}
	r.PingAddress, r.RTT = addr, rtt

	if !s.initialized {
		s.initialized = true
		s.ADB.Su("pm disable " + cellBroadcastPackage)
	}
	r.Ready = true
	return r
}

// identify runs the one-time cleanup pass and fetches the device
// identity. Cleanup repeats on later passes until the version is known.
func (s *Session) identify() {
	if !s.cleaned {
		// One notch per pass until identified.
		s.ADB.Shell("input", "keyevent", "25")
		s.Cleanup()
	}
	s.Identity()
	s.cleaned = s.versionKnown
}

// Identity returns the device version and kernel strings, fetching each
// until it is known.
func (s *Session) Identity() (version, kernel string) {
	if !s.versionKnown {
		if out, ok := s.ADB.Getprop("ro.build.version.release"); ok && out != "" {
			s.Version = "Android " + out
			s.versionKnown = true
			if v, ok := parse.ShortVersion(out); ok {
				s.ShortVersion = v
			}
		}
	}
	if !s.kernelKnown {
		if out, ok := s.ADB.Getprop("ro.com.google.clientidbase"); ok {
			s.Kernel = out
			s.kernelKnown = true
		}
	}
	return s.Version, s.Kernel
}

// Battery reads the battery level and temperature.
func (s *Session) Battery() parse.BatteryStatus {
	out, ok := s.ADB.ShellQuiet("dumpsys", "battery")
	if !ok {
		return parse.BatteryStatus{}
	}
	b := parse.Battery(out)
	s.logger().Debug("battery", "level", deref(b.Level), "celsius", deref(b.Temperature))
	return b
}

// Ping pings address from the device and returns the round-trip time.
func (s *Session) Ping(address string) (float64, bool) {
	if address == "" {
		return 0, false
	}
	out, _ := s.ADB.ShellQuiet("ping", "-n", "-c3", "-i0.2", "-w5", address)
	rtt, ok := parse.PingRTT(out)
	if ok {
		s.logger().Debug("ping", "address", address, "rtt_ms", rtt)
	} else {
		s.logger().Debug("address unreachable", "address", address)
	}
	return rtt, ok
}

// ProbeTargets returns the fallback connectivity probe order read from
// the device properties.
func (s *Session) ProbeTargets() []string {
	out, _ := s.ADB.ShellQuiet("getprop")
	return parse.ProbeTargets(out)
}

// probe pings the last known good address, falling back to the probe
// targets in order. The first responder becomes the new last known good
// address.
func (s *Session) probe() (string, float64, bool) {
	if rtt, ok := s.Ping(s.pingAddress); ok {
		return s.pingAddress, rtt, true
	}
	for _, addr := range s.ProbeTargets() {
		if addr == s.pingAddress {
			continue
		}
		if rtt, ok := s.Ping(addr); ok {
			s.pingAddress = addr
			return addr, rtt, true
		}
	}
	return "", 0, false
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
