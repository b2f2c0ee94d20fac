package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Factory errors
var (
	ErrInvalidBackendKind    = errors.New("invalid backend kind")
	ErrBackendCreationFailed = errors.New("backend creation failed")
)

// PlaybackOptions carries the playback behavior a backend is constructed
// with. A backend plays one source for its lifetime; these options do not
// change between plays.
type PlaybackOptions struct {
	// Wait makes Play block until playback completes.
	Wait bool
	// DurationHint bounds the wait for backends that cannot natively
	// observe end-of-stream. Zero means unhinted.
	DurationHint time.Duration
	// Binary overrides external player discovery for the child-process
	// backend.
	Binary string
}

// Select maps a capability set to exactly one backend kind, in platform
// priority order. It is pure: the same capabilities always select the same
// kind.
func Select(caps CapabilitySet) (BackendKind, error) {
	switch caps.OS {
	case "windows":
		// The native multimedia API ships with the OS.
		return KindWinmm, nil

	case "darwin":
		if caps.SoundClip {
			return KindOto, nil
		}
		if len(caps.Players) > 0 {
			return KindSystemCommand, nil
		}

	default:
		if caps.Pipeline {
			return KindBeep, nil
		}
		if caps.PCMStream {
			return KindMalgo, nil
		}
		if len(caps.Players) > 0 {
			return KindSystemCommand, nil
		}
	}

	slog.Error("no usable audio backend", "os", caps.OS, "wsl", caps.WSL)
	return KindAuto, fmt.Errorf("%w (os=%s)", ErrNoBackendAvailable, caps.OS)
}

// Factory builds backend drivers for a probed capability set.
type Factory struct {
	caps     CapabilitySet
	registry *DecoderRegistry
}

// NewFactory creates a factory over the real host capabilities.
func NewFactory() *Factory {
	return NewFactoryWithCapabilities(Probe())
}

// NewFactoryWithCapabilities creates a factory with an injected capability
// set for testing.
func NewFactoryWithCapabilities(caps CapabilitySet) *Factory {
	return &Factory{
		caps:     caps,
		registry: NewDefaultRegistry(),
	}
}

// Capabilities returns the capability set this factory selects against.
func (f *Factory) Capabilities() CapabilitySet {
	return f.caps
}

// Select returns the backend kind for this factory's capabilities.
func (f *Factory) Select() (BackendKind, error) {
	return Select(f.caps)
}

// CreateBackend constructs the driver for the given kind, bound to source
// and opts. KindAuto runs selection first. An explicitly requested kind is
// honored even when the probe did not advertise it; its constructor fails
// with ErrBackendNotAvailable if the facility genuinely is not there.
func (f *Factory) CreateBackend(kind BackendKind, source *SoundSource, opts PlaybackOptions) (Backend, error) {
	if kind == KindAuto {
		selected, err := Select(f.caps)
		if err != nil {
			return nil, err
		}
		kind = selected
	}

	slog.Debug("creating audio backend",
		"kind", kind.String(),
		"source", source.Describe(),
		"wait", opts.Wait)

	switch kind {
	case KindWinmm:
		return NewWinmmBackend(source, opts)
	case KindOto:
		return NewOtoBackend(source, opts, f.registry)
	case KindBeep:
		return NewBeepBackend(source, opts)
	case KindMalgo:
		return NewMalgoBackend(source, opts)
	case KindSystemCommand:
		command := opts.Binary
		if command == "" {
			if len(f.caps.Players) == 0 {
				slog.Error("no external player binaries found")
				return nil, fmt.Errorf("%w: no player binary on PATH", ErrBackendNotAvailable)
			}
			command = f.caps.Players[0]
		}
		return NewSystemCommandBackend(source, opts, command)
	}

	slog.Error("invalid backend kind requested", "kind", int(kind))
	return nil, fmt.Errorf("%w: %d", ErrInvalidBackendKind, kind)
}
