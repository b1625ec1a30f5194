// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package backend

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// prepareCommand puts the child in its own process group so the whole tree
// can be signalled.
func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate asks the process group to exit.
func terminate(p *os.Process) error {
	return unix.Kill(-p.Pid, unix.SIGTERM)
}

// forceKill kills the process group.
func forceKill(p *os.Process) error {
	return unix.Kill(-p.Pid, unix.SIGKILL)
}
