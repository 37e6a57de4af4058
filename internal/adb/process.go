package adb

import "time"

// Process tracks a background adb process such as a screen recording.
type Process struct {
	handle Handle
	done   chan struct{}
	err    error
}

func newProcess(h Handle) *Process {
	p := &Process{handle: h, done: make(chan struct{})}
	go func() {
		p.err = h.Wait()
		close(p.done)
	}()
	return p
}

// Join waits up to timeout for the process to exit, killing it if it
// is still running. Killing an already-exited process is not an error.
func (p *Process) Join(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return p.err
	case <-timer.C:
	}
	_ = p.handle.Kill()
	<-p.done
	return p.err
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}
