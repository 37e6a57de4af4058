// Package host manages processes on the machine the device is attached
// to: the local adb server and the userspace bridge helper.
package host

import (
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"k8s.io/utils/clock"
)

// Processes is the local process table.
type Processes struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// NewProcesses returns a Processes backed by the real clock.
func NewProcesses(logger *slog.Logger) *Processes {
	return &Processes{Clock: clock.RealClock{}, Logger: logger}
}

func (p *Processes) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Processes) clock() clock.Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return clock.RealClock{}
}

// named returns every process whose executable name is one of names.
// Processes that exit while being inspected are skipped.
func named(names ...string) []*process.Process {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var matched []*process.Process
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		if want[name] {
			matched = append(matched, proc)
		}
	}
	return matched
}

// Running reports whether any process called name exists.
func (p *Processes) Running(name string) bool {
	return len(named(name)) > 0
}

// KillAll terminates every process called name. force sends SIGKILL
// instead of SIGTERM. Processes that have already exited are ignored.
func (p *Processes) KillAll(name string, force bool) {
	for _, proc := range named(name) {
		var err error
		if force {
			err = proc.Kill()
		} else {
			err = proc.Terminate()
		}
		if err != nil {
			p.logger().Debug("kill process", "name", name, "pid", proc.Pid, "error", err)
		}
	}
}

// WaitForAll waits up to timeout for every process called name to
// exit. It reports whether none remain.
func (p *Processes) WaitForAll(name string, timeout time.Duration) bool {
	clk := p.clock()
	deadline := clk.Now().Add(timeout)
	for {
		if !p.Running(name) {
			return true
		}
		if !clk.Now().Before(deadline) {
			p.logger().Warn("processes still running", "name", name, "timeout", timeout)
			return false
		}
		clk.Sleep(100 * time.Millisecond)
	}
}

// PinADB restricts local adb server processes to the first CPU, which
// avoids hangs seen with some USB host controllers.
func (p *Processes) PinADB() {
	for _, proc := range named("adb", "adb.exe", "adb-arm") {
		if err := pinToFirstCPU(proc.Pid); err != nil {
			p.logger().Debug("set adb affinity", "pid", proc.Pid, "error", err)
		}
	}
}
