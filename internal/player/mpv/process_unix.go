//go:build !windows

package mpv

import "os/exec"

// setupProcessAttributes leaves the child in the terminal's process group so
// mpv keeps keyboard control
func setupProcessAttributes(cmd *exec.Cmd) {}
