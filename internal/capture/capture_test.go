package capture

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/FluidXR/droidprep/internal/adb"
	"github.com/FluidXR/droidprep/internal/adb/adbtest"

	"github.com/google/go-cmp/cmp"
)

func fakeClient(fake *adbtest.FakeRunner) *adb.Client {
	c := adb.NewClient("R58M123")
	c.Runner = fake
	return c
}

func TestScreenshot(t *testing.T) {
	fake := adbtest.New()
	if err := Screenshot(fakeClient(fake), "/tmp/shot.png"); err != nil {
		t.Fatalf("Screenshot() error: %v", err)
	}
	want := []string{
		"adb -s R58M123 shell rm " + ScreenshotPath,
		"adb -s R58M123 shell screencap -p " + ScreenshotPath,
		"adb -s R58M123 pull " + ScreenshotPath + " /tmp/shot.png",
	}
	if diff := cmp.Diff(want, fake.Calls()); diff != "" {
		t.Errorf("Screenshot() commands mismatch (-want +got):\n%s", diff)
	}
}

func TestScreenshotPullFails(t *testing.T) {
	fake := adbtest.New().OnResponses("pull", adbtest.Response{Err: errors.New("exit status 1")})
	if err := Screenshot(fakeClient(fake), "/tmp/shot.png"); err == nil {
		t.Error("Screenshot() succeeded with a failing pull")
	}
}

func TestScreenRecorder(t *testing.T) {
	fake := adbtest.New().
		On("ps | grep screenrecord", "shell     4321  1     10000  2000  ffffffff 00000000 S screenrecord\n").
		On("ls -l "+VideoPath, "-rw-rw-rw- shell    shell     2097152 2017-03-01 10:00 wpt_video.mp4\n")
	r := &ScreenRecorder{ADB: fakeClient(fake)}

	if err := r.Stop("/tmp/video.mp4"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() before Start() = %v, want ErrNotRunning", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Start(); err == nil {
		t.Error("second Start() succeeded")
	}
	want := []string{"adb -s R58M123 shell screenrecord --verbose --bit-rate 8000000 " + VideoPath}
	if diff := cmp.Diff(want, fake.Started()); diff != "" {
		t.Errorf("background commands mismatch (-want +got):\n%s", diff)
	}
	if got := r.Size(); got != 2097152 {
		t.Errorf("Size() = %d, want 2097152", got)
	}

	if err := r.Stop("/tmp/video.mp4"); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	for _, cmd := range []string{
		"adb -s R58M123 shell kill -SIGINT 4321",
		"adb -s R58M123 pull " + VideoPath + " /tmp/video.mp4",
	} {
		if fake.Count(cmd) != 1 {
			t.Errorf("expected %q, calls %v", cmd, fake.Calls())
		}
	}
	if n := fake.Count("shell rm " + VideoPath); n != 2 {
		t.Errorf("recording removed %d times, want 2", n)
	}
}

func TestStopLogsExitStatus(t *testing.T) {
	fake := adbtest.New().ExitWith(errors.New("signal: interrupt"))
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := &ScreenRecorder{ADB: fakeClient(fake), Logger: log}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Stop("/tmp/video.mp4"); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	c := &PacketCapture{ADB: fakeClient(fake.On("su -c ls "+TcpdumpBinary, TcpdumpBinary+"\n")), Logger: log}
	if err := c.Start(); err != nil {
		t.Fatalf("PacketCapture.Start() error: %v", err)
	}
	if err := c.Stop("/tmp/net.cap"); err != nil {
		t.Fatalf("PacketCapture.Stop() error: %v", err)
	}

	for _, want := range []string{
		`msg="screenrecord exit" error="signal: interrupt"`,
		`msg="tcpdump exit" error="signal: interrupt"`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPacketCapturePushesMissingBinary(t *testing.T) {
	fake := adbtest.New().
		OnResponses("su -c ls "+TcpdumpBinary, adbtest.Response{
			Out: "ls: " + TcpdumpBinary + ": No such file or directory\n",
			Err: errors.New("exit status 1"),
		}).
		On("su -c ps", "root      99    1     10000  2000  ffffffff 00000000 S "+TcpdumpBinary+"\n")
	c := &PacketCapture{ADB: fakeClient(fake), LocalBinary: "/opt/tcpdump/tcpdump474"}

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	for _, cmd := range []string{
		"adb -s R58M123 push /opt/tcpdump/tcpdump474 " + TcpdumpBinary,
		"su -c chown root " + TcpdumpBinary,
		"su -c chmod 755 " + TcpdumpBinary,
	} {
		if fake.Count(cmd) != 1 {
			t.Errorf("expected %q, calls %v", cmd, fake.Calls())
		}
	}
	want := []string{"adb -s R58M123 shell su -c " + TcpdumpBinary + " -i any -p -s 0 -w " + CapturePath}
	if diff := cmp.Diff(want, fake.Started()); diff != "" {
		t.Errorf("background commands mismatch (-want +got):\n%s", diff)
	}

	if err := c.Stop("/tmp/net.cap"); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	for _, cmd := range []string{
		"su -c kill -SIGINT 99",
		"su -c chmod 666 " + CapturePath,
		"adb -s R58M123 pull " + CapturePath + " /tmp/net.cap",
		"su -c rm " + CapturePath,
	} {
		if fake.Count(cmd) != 1 {
			t.Errorf("expected %q, calls %v", cmd, fake.Calls())
		}
	}
}

func TestPacketCaptureBinaryPresent(t *testing.T) {
	fake := adbtest.New().On("su -c ls "+TcpdumpBinary, TcpdumpBinary+"\n")
	c := &PacketCapture{ADB: fakeClient(fake)}

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if n := fake.Count("push"); n != 0 {
		t.Errorf("tcpdump pushed %d times with a binary on the device", n)
	}
}

func TestPacketCaptureNoBinary(t *testing.T) {
	fake := adbtest.New().On("su -c ls "+TcpdumpBinary, "ls: "+TcpdumpBinary+": No such file or directory\n")
	c := &PacketCapture{ADB: fakeClient(fake)}

	if err := c.Start(); err == nil {
		t.Fatal("Start() succeeded without a tcpdump binary")
	}
	if len(fake.Started()) != 0 {
		t.Errorf("tcpdump started: %v", fake.Started())
	}
}
