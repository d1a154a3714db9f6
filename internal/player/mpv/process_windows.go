//go:build windows

package mpv

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes puts mpv in its own process group so Ctrl+C in the
// console stops watchline without tearing down the player first
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
