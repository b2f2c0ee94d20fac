package cli

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/afero"

	"boombox.click/internal/audio"
)

// Example sounds shipped with each operating system.
const (
	windowsDefaultSound = "c:/Windows/Media/Alarm08.wav"
	darwinDefaultSound  = "/System/Library/Sounds/Ping.aiff"
	linuxDefaultSound   = "/usr/share/sounds/sound-icons/guitar-12.wav"
)

// platformDefaultSound returns the preferred example sound for an OS.
func platformDefaultSound(goos string) string {
	switch goos {
	case "windows":
		return windowsDefaultSound
	case "darwin":
		return darwinDefaultSound
	default:
		return linuxDefaultSound
	}
}

// defaultSoundCandidates returns the scan order for an OS: the preferred
// example sound first, then other sounds commonly installed there.
func defaultSoundCandidates(goos string) []string {
	switch goos {
	case "windows":
		return []string{
			windowsDefaultSound,
			"c:/Windows/Media/tada.wav",
			"c:/Windows/Media/notify.wav",
			"c:/Windows/Media/chimes.wav",
		}
	case "darwin":
		return []string{
			darwinDefaultSound,
			"/System/Library/Sounds/Glass.aiff",
			"/System/Library/Sounds/Funk.aiff",
			"/System/Library/Sounds/Submarine.aiff",
		}
	default:
		return []string{
			linuxDefaultSound,
			"/usr/share/sounds/alsa/Front_Center.wav",
			"/usr/share/sounds/freedesktop/stereo/bell.oga",
			"/usr/share/sounds/freedesktop/stereo/complete.oga",
		}
	}
}

// DefaultSoundPath finds an example sound installed on this system.
func DefaultSoundPath(fsys afero.Fs) (string, error) {
	return defaultSoundPathFor(fsys, runtime.GOOS)
}

func defaultSoundPathFor(fsys afero.Fs, goos string) (string, error) {
	candidates := defaultSoundCandidates(goos)

	resolver := audio.NewFileResolver(fsys, nil)
	path, err := resolver.FirstExisting(candidates)
	if err != nil {
		slog.Error("no default sound found", "goos", goos, "candidates", len(candidates))
		return "", fmt.Errorf("no example sound found on this system, pass a sound file: %w", err)
	}

	slog.Debug("default sound resolved", "goos", goos, "path", path)
	return path, nil
}
