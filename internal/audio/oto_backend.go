package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"boombox.click/internal/tone"
)

// oto allows one output context per process, so every clip is converted to
// this canonical format before playback.
const (
	clipSampleRate = 44100
	clipChannels   = 2
)

var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
)

// clipContext returns the shared output context, initializing it on first
// use. The context lives for the life of the process.
func clipContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   clipSampleRate,
			ChannelCount: clipChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-readyChan
			slog.Debug("audio output context initialized",
				"sample_rate", clipSampleRate,
				"channels", clipChannels)
		}
	})
	if otoInitErr != nil {
		return nil, fmt.Errorf("failed to initialize audio output: %w", otoInitErr)
	}
	return otoCtx, nil
}

// OtoBackend decodes the whole sound into memory, converts it to the
// canonical clip format, and plays it through the shared oto context.
type OtoBackend struct {
	source   *SoundSource
	opts     PlaybackOptions
	registry *DecoderRegistry

	mutex    sync.Mutex
	player   *oto.Player
	pcm      []byte
	duration time.Duration
	closed   bool
}

// NewOtoBackend creates a clip driver for the given source. Decoding is
// deferred to the first Play so construction stays cheap. Alias sources
// carry no decodable bytes.
func NewOtoBackend(source *SoundSource, opts PlaybackOptions, registry *DecoderRegistry) (*OtoBackend, error) {
	switch source.Kind() {
	case SourceAlias:
		return nil, fmt.Errorf("%w: clip playback cannot play system aliases", ErrBackendCreationFailed)
	case SourceURL:
		return nil, fmt.Errorf("%w: clip playback cannot stream URLs", ErrBackendCreationFailed)
	}
	if registry == nil {
		registry = NewDefaultRegistry()
	}

	slog.Debug("creating oto backend", "source", source.Describe(), "wait", opts.Wait)
	return &OtoBackend{
		source:   source,
		opts:     opts,
		registry: registry,
	}, nil
}

// Play starts clip playback from the beginning. When configured to wait it
// sleeps for the computed clip duration; the sleep is an estimate derived
// from the sample count, not a completion signal from the device.
func (ob *OtoBackend) Play(ctx context.Context) error {
	ob.mutex.Lock()
	if ob.closed {
		ob.mutex.Unlock()
		return ErrBackendClosed
	}

	if err := ob.decodeClipLocked(); err != nil {
		ob.mutex.Unlock()
		return err
	}

	octx, err := clipContext()
	if err != nil {
		ob.mutex.Unlock()
		return err
	}

	if ob.player == nil {
		ob.player = octx.NewPlayer(bytes.NewReader(ob.pcm))
	} else {
		ob.player.Pause()
		if _, err := ob.player.Seek(0, io.SeekStart); err != nil {
			slog.Debug("player rewind failed, recreating", "error", err)
			ob.player.Close()
			ob.player = octx.NewPlayer(bytes.NewReader(ob.pcm))
		}
	}
	ob.player.Play()
	duration := ob.duration
	ob.mutex.Unlock()

	slog.Debug("clip playback started", "duration", duration, "wait", ob.opts.Wait)

	if !ob.opts.Wait {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		slog.Debug("clip playback cancelled", "error", ctx.Err())
		ob.Stop()
		return ctx.Err()
	case <-timer.C:
	}

	slog.Debug("clip playback completed", "duration", duration)
	return nil
}

// PlayTone synthesizes the tone, converts it to the canonical clip format,
// and blocks for its duration.
func (ob *OtoBackend) PlayTone(ctx context.Context, req tone.Request) error {
	ob.mutex.Lock()
	if ob.closed {
		ob.mutex.Unlock()
		return ErrBackendClosed
	}
	ob.mutex.Unlock()

	req = req.WithDefaults()
	samples, err := tone.Synthesize(req)
	if err != nil {
		return err
	}

	data := &AudioData{
		Samples:    samples,
		Channels:   1,
		SampleRate: req.SampleRate,
		Format:     FormatU8,
	}
	data = ToS16(data)
	data = ConvertChannels(data, clipChannels)
	data = ResampleLinear(data, clipSampleRate)

	octx, err := clipContext()
	if err != nil {
		return err
	}

	player := octx.NewPlayer(bytes.NewReader(data.Samples))
	player.Play()
	defer player.Close()

	slog.Debug("tone playback started",
		"frequency_hz", req.Frequency,
		"duration", data.Duration())

	timer := time.NewTimer(data.Duration())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		slog.Debug("tone playback cancelled", "error", ctx.Err())
		return ctx.Err()
	case <-timer.C:
	}
	return nil
}

// Stop pauses playback and rewinds to the start so the next Play replays
// from the beginning.
func (ob *OtoBackend) Stop() error {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if ob.closed {
		return ErrBackendClosed
	}
	if ob.player == nil {
		return nil
	}

	ob.player.Pause()
	if _, err := ob.player.Seek(0, io.SeekStart); err != nil {
		slog.Debug("rewind after stop failed", "error", err)
	}

	slog.Debug("clip playback stopped")
	return nil
}

// Close releases the player. The process-wide output context stays alive
// for other backends. Idempotent.
func (ob *OtoBackend) Close() error {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if ob.closed {
		return nil
	}
	ob.closed = true

	if ob.player != nil {
		ob.player.Close()
		ob.player = nil
	}
	ob.pcm = nil

	slog.Debug("oto backend closed")
	return nil
}

// Playing reports whether the device is consuming clip samples.
func (ob *OtoBackend) Playing() bool {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	return ob.player != nil && ob.player.IsPlaying() && !ob.closed
}

// decodeClipLocked decodes and converts the source once, caching the
// canonical-format PCM for replays. Callers hold the mutex.
func (ob *OtoBackend) decodeClipLocked() error {
	if ob.pcm != nil {
		return nil
	}

	reader, err := ob.source.AsReader()
	if err != nil {
		return fmt.Errorf("getting audio data from source: %w", err)
	}
	defer reader.Close()

	name := "clip." + ob.source.Format()
	if path, err := ob.source.AsFilePath(); err == nil {
		name = path
	}

	data, err := ob.registry.DecodeFile(name, reader)
	if err != nil {
		return err
	}

	data = ToS16(data)
	data = ConvertChannels(data, clipChannels)
	data = ResampleLinear(data, clipSampleRate)

	ob.pcm = data.Samples
	ob.duration = data.Duration()

	slog.Debug("clip decoded",
		"source", ob.source.Describe(),
		"bytes", len(ob.pcm),
		"duration", ob.duration)
	return nil
}
