package mpv

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Platform represents the operating system platform
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformWSL
	PlatformMac
)

func (p Platform) String() string {
	switch p {
	case PlatformWindows:
		return "windows"
	case PlatformWSL:
		return "wsl"
	case PlatformMac:
		return "mac"
	default:
		return "linux"
	}
}

// DetectPlatform detects the current platform
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMac
	case "linux":
		if isWSL() {
			return PlatformWSL
		}
		return PlatformLinux
	default:
		return PlatformLinux
	}
}

// isWSL checks /proc/version for a Microsoft kernel
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// GetMPVExecutable returns the default mpv executable name for the platform.
// WSL uses the Linux build.
func GetMPVExecutable(platform Platform) string {
	if platform == PlatformWindows {
		return "mpv.exe"
	}
	return "mpv"
}

// FindMPVExecutable resolves executable (or the platform default when empty) on PATH
func FindMPVExecutable(platform Platform, executable string) (string, error) {
	if executable == "" {
		executable = GetMPVExecutable(platform)
	}

	path, err := exec.LookPath(executable)
	if err == nil {
		return path, nil
	}

	if platform == PlatformWSL {
		return "", fmt.Errorf("%s not found in PATH. Please install mpv inside WSL", executable)
	}
	return "", fmt.Errorf("%s not found in PATH. Please install mpv", executable)
}
