package adb

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Default time limits for commands.
const (
	DefaultTimeout = 60 * time.Second
	CommandTimeout = 120 * time.Second
)

// Client wraps ADB command-line calls, optionally scoped to one
// device serial. All shell helpers degrade to ("", false) on failure or
// timeout instead of returning an error.
type Client struct {
	Exe     string
	Serial  string
	Timeout time.Duration
	Runner  Runner
	Logger  *slog.Logger
}

// NewClient creates a new ADB client for the given device serial. An
// empty serial addresses the only attached device.
func NewClient(serial string) *Client {
	return &Client{
		Exe:     "adb",
		Serial:  serial,
		Timeout: DefaultTimeout,
		Runner:  ExecRunner{},
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Command builds an adb argument vector for args with the device
// serial applied.
func (c *Client) Command(args ...string) []string {
	exe := c.Exe
	if exe == "" {
		exe = "adb"
	}
	argv := []string{exe}
	if c.Serial != "" {
		argv = append(argv, "-s", c.Serial)
	}
	return append(argv, args...)
}

// ShellCommand builds the argument vector for `adb shell args...`.
func (c *Client) ShellCommand(args ...string) []string {
	return c.Command(append([]string{"shell"}, args...)...)
}

// SuCommand builds the argument vector for `adb shell su -c command`.
func (c *Client) SuCommand(command string) []string {
	return c.ShellCommand("su", "-c", command)
}

// Run executes argv with a time limit and returns its output. ok is
// false when the command failed or timed out. A failed command still
// returns whatever it printed; a timed out one returns nothing. silent
// suppresses debug logging, for high-frequency polling.
func (c *Client) Run(argv []string, timeout time.Duration, silent bool) (out string, ok bool) {
	log := c.logger()
	if !silent {
		log.Debug(strings.Join(argv, " "))
	}
	raw, err := c.Runner.Run(argv, timeout)
	out = string(raw)
	if !silent && len(out) > 0 {
		log.Debug("output", "head", head(out, 100))
	}
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			log.Debug("command timed out", "command", argv[0], "timeout", timeout)
			return "", false
		}
		if !silent {
			log.Debug("command failed", "error", err)
		}
		return out, false
	}
	return out, true
}

// Shell runs `adb shell args...`.
func (c *Client) Shell(args ...string) (string, bool) {
	return c.Run(c.ShellCommand(args...), c.timeout(), false)
}

// ShellQuiet runs `adb shell args...` without debug logging.
func (c *Client) ShellQuiet(args ...string) (string, bool) {
	return c.Run(c.ShellCommand(args...), c.timeout(), true)
}

// Su runs command as root on the device.
func (c *Client) Su(command string) (string, bool) {
	return c.Run(c.SuCommand(command), c.timeout(), false)
}

// Getprop returns the trimmed value of a device property.
func (c *Client) Getprop(name string) (string, bool) {
	out, ok := c.ShellQuiet("getprop", name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(out), true
}

// ADB runs an arbitrary adb command and reports whether it exited
// successfully.
func (c *Client) ADB(args ...string) bool {
	_, ok := c.Run(c.Command(args...), CommandTimeout, false)
	return ok
}

// WaitForDevice blocks until the device re-enumerates.
func (c *Client) WaitForDevice() bool {
	return c.ADB("wait-for-device")
}

// Push copies a local file to the device.
func (c *Client) Push(local, remote string) bool {
	return c.ADB("push", local, remote)
}

// Pull copies a file from the device to the local filesystem.
func (c *Client) Pull(remote, local string) bool {
	return c.ADB("pull", remote, local)
}

// Background starts `adb args...` without waiting for it to exit.
func (c *Client) Background(args ...string) (*Process, error) {
	argv := c.Command(args...)
	c.logger().Debug(strings.Join(argv, " "))
	h, err := c.Runner.Start(argv)
	if err != nil {
		return nil, fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return newProcess(h), nil
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
