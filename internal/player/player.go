// Package player is the facade callers use to play a sound or a tone. A
// Player wraps exactly one backend driver, selected once per process from
// the host's probed capabilities.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"boombox.click/internal/audio"
	"boombox.click/internal/tone"
)

// Options configures how a Player plays its sound.
type Options struct {
	// Wait makes Play block until playback completes.
	Wait bool
	// DurationHint bounds the wait for drivers that cannot natively observe
	// end-of-stream. Zero means unhinted.
	DurationHint time.Duration
	// Binary overrides external player discovery for the child-process
	// driver.
	Binary string
	// Backend forces a specific driver. KindAuto uses the process-wide
	// selection.
	Backend audio.BackendKind
}

var (
	factoryOnce sync.Once
	procFactory *audio.Factory

	selectOnce   sync.Once
	selectedKind audio.BackendKind
	selectErr    error
)

// sharedFactory probes the host once and reuses the result for every Player
// in the process.
func sharedFactory() *audio.Factory {
	factoryOnce.Do(func() {
		procFactory = audio.NewFactory()
	})
	return procFactory
}

// SelectedKind returns the backend kind chosen for this process, probing the
// host on first use. The probe and selector stay plain functions in
// internal/audio so tests drive them with simulated capability sets.
func SelectedKind() (audio.BackendKind, error) {
	selectOnce.Do(func() {
		selectedKind, selectErr = sharedFactory().Select()
		if selectErr == nil {
			slog.Info("audio backend selected", "backend", selectedKind.String())
		}
	})
	return selectedKind, selectErr
}

// Player owns one backend instance for its lifetime and releases its
// resources on Close. One sound at a time: Play while a previous playback is
// still active restarts from the beginning.
type Player struct {
	mutex   sync.Mutex
	source  *audio.SoundSource
	backend audio.Backend
	kind    audio.BackendKind
	sink    *audio.OtoBackend
	closed  bool
}

// New creates a Player for a filesystem path or an http(s) URL. File paths
// are verified before any backend resource is opened.
func New(pathOrURL string, opts Options) (*Player, error) {
	if audio.IsURL(pathOrURL) {
		source, err := audio.NewURLSource(pathOrURL)
		if err != nil {
			return nil, err
		}
		return NewFromSource(source, opts)
	}

	source, err := audio.NewFileSource(afero.NewOsFs(), pathOrURL)
	if err != nil {
		return nil, err
	}
	return NewFromSource(source, opts)
}

// NewMemory creates a Player over an in-memory sound buffer. The format hint
// names the container ("wav", "mp3", ...).
func NewMemory(data []byte, format string, opts Options) (*Player, error) {
	source, err := audio.NewMemorySource(data, format)
	if err != nil {
		return nil, err
	}
	return NewFromSource(source, opts)
}

// NewAlias creates a Player for an OS-defined system sound name.
func NewAlias(name string, opts Options) (*Player, error) {
	source, err := audio.NewAliasSource(name)
	if err != nil {
		return nil, err
	}
	return NewFromSource(source, opts)
}

// NewFromSource creates a Player playing source through the process-selected
// backend, or through opts.Backend when overridden.
func NewFromSource(source *audio.SoundSource, opts Options) (*Player, error) {
	kind := opts.Backend
	if kind == audio.KindAuto {
		selected, err := SelectedKind()
		if err != nil {
			return nil, err
		}
		kind = selected
	}

	backend, err := sharedFactory().CreateBackend(kind, source, audio.PlaybackOptions{
		Wait:         opts.Wait,
		DurationHint: opts.DurationHint,
		Binary:       opts.Binary,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", kind, err)
	}

	slog.Debug("player created",
		"backend", kind.String(),
		"source", source.Describe(),
		"wait", opts.Wait)

	return &Player{
		source:  source,
		backend: backend,
		kind:    kind,
	}, nil
}

// newWithBackend wires a Player over an already-constructed backend.
func newWithBackend(source *audio.SoundSource, backend audio.Backend, kind audio.BackendKind) *Player {
	return &Player{
		source:  source,
		backend: backend,
		kind:    kind,
	}
}

// Play plays the sound. When the Player was created with Wait it blocks
// until playback completes; otherwise it returns once playback has started.
func (p *Player) Play(ctx context.Context) error {
	backend, err := p.activeBackend()
	if err != nil {
		return err
	}
	return backend.Play(ctx)
}

// Stop halts playback. Stopping a Player that never played is a no-op.
func (p *Player) Stop() error {
	backend, err := p.activeBackend()
	if err != nil {
		return err
	}
	return backend.Stop()
}

// Playing reports whether playback is currently active.
func (p *Player) Playing() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return false
	}
	return p.backend.Playing()
}

// Failed reports whether a waited child-process playback exited non-zero.
// Always false for in-process drivers.
func (p *Player) Failed() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if waiter, ok := p.backend.(audio.Waiter); ok {
		return waiter.Failed()
	}
	return false
}

// PlayTone synthesizes and plays a sine tone, blocking for its duration.
// Drivers with a native tone path use it; the rest go through the shared
// synthesizer sink.
func (p *Player) PlayTone(ctx context.Context, req tone.Request) error {
	backend, err := p.activeBackend()
	if err != nil {
		return err
	}

	if tb, ok := backend.(audio.ToneBackend); ok {
		return tb.PlayTone(ctx, req)
	}

	sink, err := p.toneSink()
	if err != nil {
		slog.Warn("no tone path for this backend",
			"backend", p.kind.String(),
			"error", err)
		return fmt.Errorf("%w: %v", audio.ErrToneUnavailable, err)
	}
	return sink.PlayTone(ctx, req)
}

// Backend returns the kind of driver this Player runs on.
func (p *Player) Backend() audio.BackendKind {
	return p.kind
}

// Close releases the backend and any tone sink. Idempotent.
func (p *Player) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.backend.Close()
	if p.sink != nil {
		if sinkErr := p.sink.Close(); err == nil {
			err = sinkErr
		}
		p.sink = nil
	}

	slog.Debug("player closed", "backend", p.kind.String())
	return err
}

// activeBackend returns the backend unless the Player is closed.
func (p *Player) activeBackend() (audio.Backend, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return nil, audio.ErrBackendClosed
	}
	return p.backend, nil
}

// toneSink lazily builds the shared synthesizer sink. Only reachable for the
// child-process driver, whose sources are files or buffers, so the sink
// constructor's alias and URL rejections cannot fire here.
func (p *Player) toneSink() (*audio.OtoBackend, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil, audio.ErrBackendClosed
	}
	if p.sink != nil {
		return p.sink, nil
	}

	sink, err := audio.NewOtoBackend(p.source, audio.PlaybackOptions{Wait: true}, nil)
	if err != nil {
		return nil, err
	}
	p.sink = sink
	return sink, nil
}
