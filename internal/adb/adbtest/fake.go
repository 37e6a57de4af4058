// Package adbtest provides a scripted adb.Runner for tests.
package adbtest

import (
	"strings"
	"sync"
	"time"

	"github.com/FluidXR/droidprep/internal/adb"
)

// Response is one scripted command result.
type Response struct {
	Out string
	Err error
}

type rule struct {
	match     string
	responses []Response
	served    int
}

// FakeRunner answers commands from registered rules and records every
// invocation. A command matches a rule when its space-joined argv
// contains the rule's match string; the longest matching rule wins.
// Commands without a rule succeed with empty output.
type FakeRunner struct {
	mu      sync.Mutex
	rules   []*rule
	calls   []string
	started []string
	exitErr error
}

// New returns an empty FakeRunner.
func New() *FakeRunner {
	return &FakeRunner{}
}

// On scripts successful outputs for commands containing match. Outputs
// are served in order and the last one repeats.
func (f *FakeRunner) On(match string, outs ...string) *FakeRunner {
	var rs []Response
	for _, o := range outs {
		rs = append(rs, Response{Out: o})
	}
	return f.OnResponses(match, rs...)
}

// OnResponses scripts arbitrary responses for commands containing match,
// replacing any rule registered earlier for the same match.
func (f *FakeRunner) OnResponses(match string, rs ...Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rules {
		if r.match == match {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			break
		}
	}
	f.rules = append(f.rules, &rule{match: match, responses: rs})
	return f
}

// ExitWith makes background processes started from now on report err
// from Wait.
func (f *FakeRunner) ExitWith(err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitErr = err
	return f
}

// Run implements adb.Runner.
func (f *FakeRunner) Run(argv []string, timeout time.Duration) ([]byte, error) {
	joined := strings.Join(argv, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, joined)

	var best *rule
	for _, r := range f.rules {
		if strings.Contains(joined, r.match) && (best == nil || len(r.match) > len(best.match)) {
			best = r
		}
	}
	if best == nil || len(best.responses) == 0 {
		return nil, nil
	}
	i := best.served
	if i >= len(best.responses) {
		i = len(best.responses) - 1
	}
	best.served++
	resp := best.responses[i]
	return []byte(resp.Out), resp.Err
}

// Start implements adb.Runner. The returned process has already exited.
func (f *FakeRunner) Start(argv []string) (adb.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, strings.Join(argv, " "))
	return exited{f.exitErr}, nil
}

// Calls returns every command run so far, space-joined.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Started returns every background command started so far.
func (f *FakeRunner) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// Count returns how many commands run so far contain match.
func (f *FakeRunner) Count(match string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c, match) {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded invocations but keeps the rules.
func (f *FakeRunner) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.started = nil
}

type exited struct{ err error }

func (e exited) Wait() error { return e.err }
func (exited) Kill() error { return nil }
