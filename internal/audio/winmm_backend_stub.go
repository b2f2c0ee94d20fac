//go:build !windows

package audio

import (
	"context"
	"fmt"
)

// WinmmBackend exists only on Windows; elsewhere the selector never picks
// it and construction refuses.
type WinmmBackend struct{}

func NewWinmmBackend(source *SoundSource, opts PlaybackOptions) (*WinmmBackend, error) {
	return nil, fmt.Errorf("%w: winmm is Windows-only", ErrBackendNotAvailable)
}

func (wb *WinmmBackend) Play(ctx context.Context) error { return ErrBackendNotAvailable }
func (wb *WinmmBackend) Stop() error                    { return ErrBackendNotAvailable }
func (wb *WinmmBackend) Close() error                   { return nil }
func (wb *WinmmBackend) Playing() bool                  { return false }
