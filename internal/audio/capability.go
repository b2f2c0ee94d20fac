package audio

import (
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// CapabilitySet is the result of the one-time platform probe the selector
// consumes. Probing is explicit and re-invokable; nothing here runs at
// import time.
type CapabilitySet struct {
	// OS is the runtime.GOOS value the probe ran on.
	OS string
	// WSL is true inside Windows Subsystem for Linux, where audio devices
	// are usually absent or unreliable.
	WSL bool
	// NativeAPI reports the Windows multimedia API.
	NativeAPI bool
	// SoundClip reports the in-process clip output device.
	SoundClip bool
	// Pipeline reports the streaming speaker pipeline.
	Pipeline bool
	// PCMStream reports the pull-callback PCM device. False in builds
	// without cgo.
	PCMStream bool
	// Players lists external player binaries found on PATH, in priority
	// order for the probed OS.
	Players []string
}

// Probe inspects the current host and returns its capability set.
func Probe() CapabilitySet {
	return probeWithDependencies(runtime.GOOS, IsWSL(), CommandExists)
}

// probeWithDependencies allows dependency injection for testing
func probeWithDependencies(goos string, isWSL bool, commandExists func(string) bool) CapabilitySet {
	caps := CapabilitySet{
		OS:  goos,
		WSL: isWSL,
	}

	caps.NativeAPI = goos == "windows"

	// The clip and pipeline devices are in-process libraries; they are
	// reachable wherever a real audio device is. WSL is the known
	// environment where that assumption fails.
	caps.SoundClip = !isWSL
	caps.Pipeline = goos != "windows" && !isWSL
	caps.PCMStream = pcmStreamSupported && !isWSL

	for _, candidate := range PlayerCandidates(goos) {
		if commandExists(candidate) {
			caps.Players = append(caps.Players, candidate)
		}
	}

	slog.Debug("platform capabilities probed",
		"os", caps.OS,
		"wsl", caps.WSL,
		"native_api", caps.NativeAPI,
		"sound_clip", caps.SoundClip,
		"pipeline", caps.Pipeline,
		"pcm_stream", caps.PCMStream,
		"players", caps.Players)

	return caps
}

// PlayerCandidates returns the external player binaries to look for on the
// given OS, in priority order.
func PlayerCandidates(goos string) []string {
	switch goos {
	case "windows":
		return []string{"powershell"}
	case "darwin":
		return []string{"afplay"}
	default:
		return []string{"paplay", "aplay"}
	}
}

// IsWSL checks if the current environment is Windows Subsystem for Linux
func IsWSL() bool {
	return detectWSLFromData(readProcVersion(), os.Getenv("WSL_DISTRO_NAME"))
}

// detectWSLFromData checks for WSL indicators in the provided data (for testing)
func detectWSLFromData(procVersion, wslEnv string) bool {
	if wslEnv != "" {
		slog.Debug("WSL detected via environment variable", "distro", wslEnv)
		return true
	}

	procLower := strings.ToLower(procVersion)
	if strings.Contains(procLower, "microsoft") || strings.Contains(procLower, "wsl") {
		slog.Debug("WSL detected via /proc/version")
		return true
	}

	return false
}

// readProcVersion reads /proc/version file content
func readProcVersion() string {
	content, err := os.ReadFile("/proc/version")
	if err != nil {
		slog.Debug("failed to read /proc/version", "error", err)
		return ""
	}
	return string(content)
}

// CommandExists checks if a command is available on PATH using exec.LookPath
func CommandExists(command string) bool {
	if command == "" {
		return false
	}

	_, err := exec.LookPath(command)
	exists := err == nil
	slog.Debug("command existence check", "command", command, "exists", exists)
	return exists
}
