package bridge

import (
	"strings"
	"testing"
	"time"

	"github.com/FluidXR/droidprep/internal/adb"
	"github.com/FluidXR/droidprep/internal/adb/adbtest"

	"github.com/google/go-cmp/cmp"
	testingclock "k8s.io/utils/clock/testing"
)

var epoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

const ipTunnel = ipNoTether + `9: tun0: <POINTOPOINT,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UNKNOWN qlen 500
    inet 10.1.1.2/24 scope global tun0
`

func TestSimpleRTCheckTunnelUp(t *testing.T) {
	fake := adbtest.New().On("ip address show", ipTunnel)
	s := &SimpleRT{ADB: fakeClient(fake), Clock: testingclock.NewFakeClock(epoch)}

	if !s.Check() {
		t.Fatal("Check() = false with tun0 present")
	}
	if n := fake.Count("setprop sys.usb.config"); n != 0 {
		t.Errorf("USB mode cycled %d times with the tunnel already up", n)
	}
}

func TestSimpleRTCheckTimeout(t *testing.T) {
	fake := adbtest.New().On("ip address show", ipNoTether)
	clk := testingclock.NewFakeClock(epoch)
	s := &SimpleRT{ADB: fakeClient(fake), Clock: clk}

	if s.Check() {
		t.Fatal("Check() = true without tun0")
	}
	if got := clk.Since(epoch); got != DefaultTunnelWait {
		t.Errorf("waited %s, want %s", got, DefaultTunnelWait)
	}
	if n := fake.Count("su -c setprop sys.usb.config adb"); n != 1 {
		t.Errorf("USB mode cycled %d times, want 1", n)
	}
	if n := fake.Count("wait-for-device"); n != 1 {
		t.Errorf("wait-for-device ran %d times, want 1", n)
	}
}

func TestSimpleRTCheckDismissesVPNDialog(t *testing.T) {
	fake := adbtest.New().
		On("ip address show", ipNoTether, ipNoTether, ipTunnel).
		On("dumpsys window windows",
			"  Window #6 Window{77 u0 com.android.vpndialogs/com.android.vpndialogs.ConfirmDialog}:\n",
			"")
	clk := testingclock.NewFakeClock(epoch)
	s := &SimpleRT{ADB: fakeClient(fake), Clock: clk, Wait: 10 * time.Second}

	if !s.Check() {
		t.Fatalf("Check() = false, calls %v", fake.Calls())
	}
	if got := clk.Since(epoch); got != 2*time.Second {
		t.Errorf("waited %s, want 2s", got)
	}
	var keys []string
	for _, c := range fake.Calls() {
		if k, ok := strings.CutPrefix(c, "adb -s R58M123 shell input keyevent "); ok {
			keys = append(keys, k)
		}
	}
	want := []string{"KEYCODE_DPAD_RIGHT", "KEYCODE_ENTER", "KEYCODE_DPAD_RIGHT", "KEYCODE_ENTER"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("dialog key sequence mismatch (-want +got):\n%s", diff)
	}
}

type fakeProcs struct {
	running map[string]bool
	killed  []string
	waited  []time.Duration
}

func (p *fakeProcs) Running(name string) bool { return p.running[name] }

func (p *fakeProcs) KillAll(name string, force bool) {
	p.killed = append(p.killed, name)
	delete(p.running, name)
}

func (p *fakeProcs) WaitForAll(name string, timeout time.Duration) bool {
	p.waited = append(p.waited, timeout)
	return true
}

type launch struct {
	argv []string
	dir  string
}

type nopHandle struct{}

func (nopHandle) Wait() error { return nil }
func (nopHandle) Kill() error { return nil }

func newHelper(fake *adbtest.FakeRunner, procs *fakeProcs, launches *[]launch) *Helper {
	return &Helper{
		Dir:    "/opt/simple-rt",
		Mode:   Mode{Kind: Userspace, Interface: "eth0", DNS: "8.8.8.8"},
		ADB:    fakeClient(fake),
		Procs:  procs,
		GOOS:   "linux",
		GOARCH: "amd64",
		Launch: func(argv []string, dir string) (adb.Handle, error) {
			*launches = append(*launches, launch{argv: argv, dir: dir})
			return nopHandle{}, nil
		},
	}
}

func TestHelperStartStop(t *testing.T) {
	fake := adbtest.New()
	procs := &fakeProcs{running: map[string]bool{}}
	var launches []launch
	h := newHelper(fake, procs, &launches)

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	want := []launch{{
		argv: []string{"sudo", "/opt/simple-rt/linux64/simple-rt", "-i", "eth0", "-n", "8.8.8.8"},
		dir:  "/opt/simple-rt/linux64",
	}}
	if diff := cmp.Diff(want, launches, cmp.AllowUnexported(launch{})); diff != "" {
		t.Errorf("launch mismatch (-want +got):\n%s", diff)
	}
	if !h.Running() {
		t.Error("Running() = false after Start()")
	}
	if n := fake.Count("am force-stop " + SimpleRTPackage); n != 1 {
		t.Errorf("device app force-stopped %d times before launch", n)
	}

	h.Stop()
	if h.Running() {
		t.Error("Running() = true after Stop()")
	}
	if diff := cmp.Diff([]string{HelperName, HelperName}, procs.killed); diff != "" {
		t.Errorf("KillAll calls mismatch (-want +got):\n%s", diff)
	}
}

func TestHelperStartSkips(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Helper, *fakeProcs)
	}{
		{
			name:   "rndis mode",
			mutate: func(h *Helper, _ *fakeProcs) { h.Mode = Mode{Kind: StaticRNDIS} },
		},
		{
			name:   "already running",
			mutate: func(_ *Helper, p *fakeProcs) { p.running[HelperName] = true },
		},
		{
			name:   "no build for darwin",
			mutate: func(h *Helper, _ *fakeProcs) { h.GOOS = "darwin" },
		},
		{
			name:   "no build for 386",
			mutate: func(h *Helper, _ *fakeProcs) { h.GOARCH = "386" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			procs := &fakeProcs{running: map[string]bool{}}
			var launches []launch
			h := newHelper(adbtest.New(), procs, &launches)
			tt.mutate(h, procs)

			if err := h.Start(); err != nil {
				t.Fatalf("Start() error: %v", err)
			}
			if len(launches) != 0 || h.Running() {
				t.Errorf("helper launched: %v", launches)
			}
			if len(procs.killed) != 0 {
				t.Errorf("host processes killed: %v", procs.killed)
			}
		})
	}
}

func TestHelperCommandArm(t *testing.T) {
	h := &Helper{Dir: "/opt/simple-rt", Mode: Mode{Kind: Userspace, Interface: "wlan0"}, GOOS: "linux", GOARCH: "arm"}
	dir := h.buildDir()
	if dir != "/opt/simple-rt/arm" {
		t.Errorf("buildDir() = %q, want /opt/simple-rt/arm", dir)
	}
	want := []string{"sudo", "/opt/simple-rt/arm/simple-rt", "-i", "wlan0"}
	if diff := cmp.Diff(want, h.Command(dir)); diff != "" {
		t.Errorf("Command() mismatch (-want +got):\n%s", diff)
	}
}

func TestHelperBuildDir(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"linux", "amd64", "/opt/simple-rt/linux64"},
		{"linux", "arm64", "/opt/simple-rt/linux64"},
		{"linux", "riscv64", "/opt/simple-rt/linux64"},
		{"linux", "arm", "/opt/simple-rt/arm"},
		{"linux", "386", ""},
		{"darwin", "arm64", ""},
	}
	for _, tt := range tests {
		h := &Helper{Dir: "/opt/simple-rt", GOOS: tt.goos, GOARCH: tt.goarch}
		if got := h.buildDir(); got != tt.want {
			t.Errorf("buildDir() on %s/%s = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
}
