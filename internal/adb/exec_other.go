//go:build !unix

package adb

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
