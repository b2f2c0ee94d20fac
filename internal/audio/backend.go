package audio

import (
	"context"
	"errors"

	"boombox.click/internal/tone"
)

// Common errors for Backend implementations and construction
var (
	ErrBackendNotAvailable = errors.New("audio backend not available")
	ErrBackendClosed       = errors.New("audio backend is closed")
	ErrNoBackendAvailable  = errors.New("no usable audio backend on this platform")
	ErrBackendRejected     = errors.New("audio backend rejected the playback request")
	ErrToneUnavailable     = errors.New("tone playback not supported by this backend")
)

// Backend is one driver mediating between the player and an OS or library
// audio facility. A backend is bound to a single SoundSource for its
// lifetime; Play may be called again after Stop and restarts from the
// beginning.
type Backend interface {
	// Play begins playback. When the backend was configured to wait it
	// blocks until playback completes; otherwise it starts playback on a
	// backend-appropriate asynchronous mechanism and returns immediately.
	Play(ctx context.Context) error

	// Stop halts playback. Safe to call whether or not playback is
	// active, non-blocking, idempotent.
	Stop() error

	// Close releases any OS resources the backend holds. Idempotent.
	Close() error

	// Playing reports whether playback is currently active.
	Playing() bool
}

// ToneBackend is the optional tone capability. Backends whose facility
// offers native tone generation implement it directly; others go through
// the shared synthesizer sink, or report ErrToneUnavailable.
type ToneBackend interface {
	PlayTone(ctx context.Context, req tone.Request) error
}

// Waiter is implemented by backends that record the outcome of a waited
// playback. A non-zero child exit status is recorded here rather than
// returned as an error.
type Waiter interface {
	Failed() bool
}

// BackendKind identifies one backend variant. The selector maps a
// CapabilitySet to exactly one kind per process.
type BackendKind int

const (
	// KindAuto lets the selector decide.
	KindAuto BackendKind = iota
	// KindWinmm is the native Windows multimedia driver.
	KindWinmm
	// KindOto decodes a clip fully and plays it through oto.
	KindOto
	// KindBeep streams through the beep speaker pipeline.
	KindBeep
	// KindMalgo streams WAV frames through a malgo device pull callback.
	KindMalgo
	// KindSystemCommand shells out to an external player binary.
	KindSystemCommand
)

var kindNames = map[BackendKind]string{
	KindAuto:          "auto",
	KindWinmm:         "winmm",
	KindOto:           "oto",
	KindBeep:          "beep",
	KindMalgo:         "malgo",
	KindSystemCommand: "system_command",
}

func (k BackendKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseBackendKind maps a configuration string to a BackendKind.
func ParseBackendKind(name string) (BackendKind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return KindAuto, errors.New("unknown backend kind: " + name)
}

// BackendKinds lists every selectable kind, in priority-neutral order.
func BackendKinds() []BackendKind {
	return []BackendKind{KindWinmm, KindOto, KindBeep, KindMalgo, KindSystemCommand}
}
