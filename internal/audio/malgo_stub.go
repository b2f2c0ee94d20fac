//go:build !cgo

package audio

import (
	"context"
	"fmt"
)

// pcmStreamSupported reports whether this build can drive a raw PCM device.
// malgo needs cgo, so this build cannot; the capability probe routes
// playback to another driver.
const pcmStreamSupported = false

// MalgoBackend is unavailable without cgo. Every sound-file decoder and the
// remaining drivers work in pure-Go builds; only raw PCM streaming is lost.
type MalgoBackend struct{}

func NewMalgoBackend(source *SoundSource, opts PlaybackOptions) (*MalgoBackend, error) {
	return nil, fmt.Errorf("%w: PCM streaming requires a cgo-enabled build", ErrBackendNotAvailable)
}

func (mb *MalgoBackend) Play(ctx context.Context) error { return ErrBackendNotAvailable }
func (mb *MalgoBackend) Stop() error                    { return ErrBackendNotAvailable }
func (mb *MalgoBackend) Close() error                   { return nil }
func (mb *MalgoBackend) Playing() bool                  { return false }
