package audio

import (
	"runtime"
	"testing"
)

func TestDetectWSLFromData(t *testing.T) {
	tests := []struct {
		name        string
		procVersion string
		wslEnv      string
		expected    bool
	}{
		{
			name:        "clean linux",
			procVersion: "Linux version 6.1.0-13-amd64 (debian-kernel@lists.debian.org)",
			wslEnv:      "",
			expected:    false,
		},
		{
			name:        "wsl2 via proc version",
			procVersion: "Linux version 5.15.90.1-microsoft-standard-WSL2",
			wslEnv:      "",
			expected:    true,
		},
		{
			name:        "wsl via environment variable",
			procVersion: "Linux version 6.1.0",
			wslEnv:      "Ubuntu",
			expected:    true,
		},
		{
			name:        "case insensitive proc match",
			procVersion: "LINUX VERSION 4.4.0-MICROSOFT",
			wslEnv:      "",
			expected:    true,
		},
		{
			name:        "empty inputs",
			procVersion: "",
			wslEnv:      "",
			expected:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detectWSLFromData(tt.procVersion, tt.wslEnv)
			if result != tt.expected {
				t.Errorf("detectWSLFromData(%q, %q) = %v, expected %v",
					tt.procVersion, tt.wslEnv, result, tt.expected)
			}
		})
	}
}

func TestProbeWithDependencies(t *testing.T) {
	hasAll := func(string) bool { return true }
	hasNone := func(string) bool { return false }

	t.Run("windows", func(t *testing.T) {
		caps := probeWithDependencies("windows", false, hasAll)

		if !caps.NativeAPI {
			t.Error("expected native API on windows")
		}
		if caps.Pipeline {
			t.Error("pipeline is not offered on windows")
		}
		if !caps.SoundClip {
			t.Error("expected sound clip device on windows")
		}
		if len(caps.Players) != 1 || caps.Players[0] != "powershell" {
			t.Errorf("expected [powershell], got %v", caps.Players)
		}
	})

	t.Run("darwin", func(t *testing.T) {
		caps := probeWithDependencies("darwin", false, hasAll)

		if caps.NativeAPI {
			t.Error("native API is windows-only")
		}
		if !caps.SoundClip {
			t.Error("expected sound clip device on darwin")
		}
		if !caps.Pipeline {
			t.Error("expected pipeline on darwin")
		}
		if len(caps.Players) != 1 || caps.Players[0] != "afplay" {
			t.Errorf("expected [afplay], got %v", caps.Players)
		}
	})

	t.Run("linux", func(t *testing.T) {
		caps := probeWithDependencies("linux", false, hasAll)

		if caps.NativeAPI {
			t.Error("native API is windows-only")
		}
		if !caps.SoundClip {
			t.Error("expected sound clip device on linux")
		}
		if !caps.Pipeline {
			t.Error("expected pipeline on linux")
		}
		if caps.PCMStream != pcmStreamSupported {
			t.Errorf("expected PCMStream=%v, got %v", pcmStreamSupported, caps.PCMStream)
		}
		if len(caps.Players) != 2 || caps.Players[0] != "paplay" || caps.Players[1] != "aplay" {
			t.Errorf("expected [paplay aplay], got %v", caps.Players)
		}
	})

	t.Run("wsl disables device-backed facilities", func(t *testing.T) {
		caps := probeWithDependencies("linux", true, hasAll)

		if !caps.WSL {
			t.Error("expected WSL flag")
		}
		if caps.SoundClip {
			t.Error("sound clip device is unreliable under WSL")
		}
		if caps.Pipeline {
			t.Error("pipeline is unreliable under WSL")
		}
		if caps.PCMStream {
			t.Error("PCM stream is unreliable under WSL")
		}
		if len(caps.Players) == 0 {
			t.Error("external players should still be probed under WSL")
		}
	})

	t.Run("no players found", func(t *testing.T) {
		caps := probeWithDependencies("linux", false, hasNone)

		if len(caps.Players) != 0 {
			t.Errorf("expected no players, got %v", caps.Players)
		}
	})

	t.Run("partial player availability", func(t *testing.T) {
		onlyAplay := func(cmd string) bool { return cmd == "aplay" }
		caps := probeWithDependencies("linux", false, onlyAplay)

		if len(caps.Players) != 1 || caps.Players[0] != "aplay" {
			t.Errorf("expected [aplay], got %v", caps.Players)
		}
	})
}

func TestPlayerCandidates(t *testing.T) {
	tests := []struct {
		goos     string
		expected []string
	}{
		{"windows", []string{"powershell"}},
		{"darwin", []string{"afplay"}},
		{"linux", []string{"paplay", "aplay"}},
		{"freebsd", []string{"paplay", "aplay"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			candidates := PlayerCandidates(tt.goos)
			if len(candidates) != len(tt.expected) {
				t.Fatalf("expected %d candidates, got %d", len(tt.expected), len(candidates))
			}
			for i, want := range tt.expected {
				if candidates[i] != want {
					t.Errorf("candidate %d: expected %q, got %q", i, want, candidates[i])
				}
			}
		})
	}
}

func TestCommandExists(t *testing.T) {
	if CommandExists("") {
		t.Error("empty command should not exist")
	}

	if CommandExists("definitely-not-a-real-command-12345") {
		t.Error("nonexistent command reported as existing")
	}

	if runtime.GOOS != "windows" {
		if !CommandExists("sh") {
			t.Error("sh should exist on unix-like systems")
		}
	}
}

func TestProbe(t *testing.T) {
	caps := Probe()

	if caps.OS != runtime.GOOS {
		t.Errorf("expected OS %q, got %q", runtime.GOOS, caps.OS)
	}

	// The probe must be consistent with the selector's view of the host.
	caps2 := Probe()
	if caps.OS != caps2.OS || caps.WSL != caps2.WSL || caps.Pipeline != caps2.Pipeline {
		t.Error("probe is not stable across calls")
	}
}
