package adb

import (
	"fmt"

	"github.com/FluidXR/droidprep/internal/parse"
)

// KillProc signals every device process whose `ps` line mentions name.
// A process that is already gone is not an error.
func (c *Client) KillProc(name, signal string) {
	out, ok := c.Shell("ps", "|", "grep", name)
	if !ok && out == "" {
		return
	}
	for _, pid := range parse.PIDs(out, "") {
		c.Shell("kill", signal, pid)
	}
}

// KillProcSu is KillProc for processes only visible to root.
func (c *Client) KillProcSu(name, signal string) {
	out, ok := c.Su("ps")
	if !ok && out == "" {
		return
	}
	for _, pid := range parse.PIDs(out, name) {
		c.Su(fmt.Sprintf("kill %s %s", signal, pid))
	}
}
