//go:build cgo

package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/youpy/go-wav"

	"boombox.click/internal/tone"
)

// pcmStreamSupported reports whether this build can drive a raw PCM device.
// malgo needs cgo; the non-cgo build carries a stub.
const pcmStreamSupported = true

// playPollInterval paces the sleep-poll loop that waits for the pull
// callback to drain the stream.
const playPollInterval = 200 * time.Millisecond

// MalgoBackend streams WAV frames through a malgo playback device. The
// device pulls frames from the open file in its data callback; end of
// stream backfills silence and flips the active flag the waiter polls.
type MalgoBackend struct {
	source *SoundSource
	opts   PlaybackOptions

	mutex    sync.Mutex
	actx     *audioContext
	device   *malgo.Device
	file     *os.File
	tempPath string
	closed   bool

	active atomic.Bool
}

// NewMalgoBackend creates a PCM streaming driver for the given source.
// Alias sources have no file to stream.
func NewMalgoBackend(source *SoundSource, opts PlaybackOptions) (*MalgoBackend, error) {
	switch source.Kind() {
	case SourceAlias:
		return nil, fmt.Errorf("%w: PCM streaming cannot play system aliases", ErrBackendCreationFailed)
	case SourceURL:
		return nil, fmt.Errorf("%w: PCM streaming cannot fetch URLs", ErrBackendCreationFailed)
	}

	slog.Debug("creating malgo backend", "source", source.Describe(), "wait", opts.Wait)
	return &MalgoBackend{
		source: source,
		opts:   opts,
	}, nil
}

// Play opens the WAV stream and starts a playback device parameterized from
// its header. When configured to wait it blocks until the callback drains
// the stream; otherwise the device keeps pulling in the background.
func (mb *MalgoBackend) Play(ctx context.Context) error {
	mb.mutex.Lock()
	if mb.closed {
		mb.mutex.Unlock()
		return ErrBackendClosed
	}

	// Replay restarts from the beginning.
	mb.teardownDeviceLocked()

	reader, format, err := mb.openStreamLocked()
	if err != nil {
		mb.mutex.Unlock()
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format.sampleFormat
	deviceConfig.Playback.Channels = format.channels
	deviceConfig.SampleRate = format.sampleRate
	deviceConfig.Alsa.NoMMap = 1

	slog.Debug("streaming device configuration",
		"format", format.sampleFormat,
		"channels", format.channels,
		"sample_rate", format.sampleRate)

	silence := silenceFor(format.sampleFormat)
	mb.active.Store(true)

	onSamples := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if !mb.active.Load() {
			fillSilence(pOutputSample, silence)
			return
		}

		n, err := io.ReadFull(reader, pOutputSample)
		if err != nil {
			fillSilence(pOutputSample[n:], silence)

			if err == io.EOF || err == io.ErrUnexpectedEOF {
				mb.active.Store(false)
			} else {
				slog.Debug("error reading audio frames", "error", err)
				mb.active.Store(false)
			}
		}
	}

	device, err := mb.startDeviceLocked(deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		mb.active.Store(false)
		mb.mutex.Unlock()
		return err
	}
	mb.device = device
	mb.mutex.Unlock()

	slog.Debug("PCM stream playback started", "wait", mb.opts.Wait)

	if !mb.opts.Wait {
		return nil
	}
	return mb.waitForDrain(ctx)
}

// waitForDrain polls the active flag until the callback reports end of
// stream, then tears the device down.
func (mb *MalgoBackend) waitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(playPollInterval)
	defer ticker.Stop()

	for mb.active.Load() {
		select {
		case <-ctx.Done():
			slog.Debug("playback wait cancelled", "error", ctx.Err())
			mb.Stop()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	mb.mutex.Lock()
	mb.teardownDeviceLocked()
	mb.mutex.Unlock()

	slog.Debug("PCM stream playback completed")
	return nil
}

// PlayTone plays synthesized samples through an unsigned-8-bit mono device.
// Blocks for the duration of the padded buffer.
func (mb *MalgoBackend) PlayTone(ctx context.Context, req tone.Request) error {
	mb.mutex.Lock()
	if mb.closed {
		mb.mutex.Unlock()
		return ErrBackendClosed
	}
	mb.mutex.Unlock()

	req = req.WithDefaults()
	samples, err := tone.Synthesize(req)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatU8
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(req.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	slog.Debug("tone device configuration",
		"frequency_hz", req.Frequency,
		"sample_rate", req.SampleRate,
		"samples", len(samples))

	var offset int
	onSamples := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		n := copy(pOutputSample, samples[min(offset, len(samples)):])
		fillSilence(pOutputSample[n:], 0x80)
		offset += len(pOutputSample)
	}

	mb.mutex.Lock()
	device, err := mb.startDeviceLocked(deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	mb.mutex.Unlock()
	if err != nil {
		return err
	}
	defer func() {
		device.Stop()
		device.Uninit()
	}()

	// The buffer length is an exact whole number of seconds.
	duration := time.Duration(len(samples)) * time.Second / time.Duration(req.SampleRate)
	timer := time.NewTimer(duration + playPollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		slog.Debug("tone playback cancelled", "error", ctx.Err())
		return ctx.Err()
	case <-timer.C:
	}

	slog.Debug("tone playback completed", "duration", duration)
	return nil
}

// Stop halts playback and releases the device. The open file and context
// survive for replay.
func (mb *MalgoBackend) Stop() error {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()

	if mb.closed {
		return ErrBackendClosed
	}

	mb.teardownDeviceLocked()
	slog.Debug("PCM stream stopped")
	return nil
}

// Close releases the device, file, audio context, and any materialized temp
// file. Idempotent.
func (mb *MalgoBackend) Close() error {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()

	if mb.closed {
		return nil
	}
	mb.closed = true

	mb.teardownDeviceLocked()

	if mb.file != nil {
		mb.file.Close()
		mb.file = nil
	}
	if mb.tempPath != "" {
		os.Remove(mb.tempPath)
		slog.Debug("temporary sound file removed", "path", mb.tempPath)
		mb.tempPath = ""
	}
	if mb.actx != nil {
		if err := mb.actx.Close(); err != nil {
			return fmt.Errorf("closing audio context: %w", err)
		}
		mb.actx = nil
	}

	slog.Debug("malgo backend closed")
	return nil
}

// Playing reports whether the pull callback still has frames to deliver.
func (mb *MalgoBackend) Playing() bool {
	return mb.active.Load()
}

// wavStreamFormat carries the device parameters read from a WAV header.
type wavStreamFormat struct {
	sampleFormat malgo.FormatType
	channels     uint32
	sampleRate   uint32
}

// openStreamLocked positions the source file at frame zero and wraps it in
// a fresh WAV reader. The first call opens the file (materializing
// in-memory sources into a temp file); replays seek back to the start.
func (mb *MalgoBackend) openStreamLocked() (io.Reader, wavStreamFormat, error) {
	if mb.file == nil {
		path, err := mb.streamPathLocked()
		if err != nil {
			return nil, wavStreamFormat{}, err
		}
		f, err := os.Open(path)
		if err != nil {
			slog.Error("failed to open sound file for streaming", "path", path, "error", err)
			return nil, wavStreamFormat{}, fmt.Errorf("opening sound file: %w", err)
		}
		mb.file = f
	} else {
		if _, err := mb.file.Seek(0, io.SeekStart); err != nil {
			return nil, wavStreamFormat{}, fmt.Errorf("rewinding sound file: %w", err)
		}
	}

	reader := wav.NewReader(mb.file)
	format, err := reader.Format()
	if err != nil {
		slog.Error("failed to read WAV header", "error", err)
		return nil, wavStreamFormat{}, fmt.Errorf("%w: PCM streaming requires WAV input: %v", ErrUnsupportedFormat, err)
	}

	var sampleFormat malgo.FormatType
	switch format.BitsPerSample {
	case 8:
		sampleFormat = malgo.FormatU8
	case 16:
		sampleFormat = malgo.FormatS16
	case 24:
		sampleFormat = malgo.FormatS24
	case 32:
		sampleFormat = malgo.FormatS32
	default:
		return nil, wavStreamFormat{}, fmt.Errorf("%w: unsupported bit depth %d", ErrUnsupportedFormat, format.BitsPerSample)
	}

	slog.Debug("WAV stream opened",
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"bits_per_sample", format.BitsPerSample)

	return reader, wavStreamFormat{
		sampleFormat: sampleFormat,
		channels:     uint32(format.NumChannels),
		sampleRate:   format.SampleRate,
	}, nil
}

// streamPathLocked returns the on-disk path to stream, writing in-memory
// sources to a temp file once.
func (mb *MalgoBackend) streamPathLocked() (string, error) {
	if path, err := mb.source.AsFilePath(); err == nil {
		return path, nil
	}
	if mb.tempPath != "" {
		return mb.tempPath, nil
	}

	reader, err := mb.source.AsReader()
	if err != nil {
		return "", fmt.Errorf("getting audio data from source: %w", err)
	}
	defer reader.Close()

	ext := mb.source.Format()
	if ext == "" {
		ext = "wav"
	}
	tempFile, err := os.CreateTemp("", "boombox-malgo-*."+ext)
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := io.Copy(tempFile, reader); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("writing temporary sound file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("closing temporary sound file: %w", err)
	}

	slog.Debug("in-memory sound materialized", "path", tempPath)
	mb.tempPath = tempPath
	return tempPath, nil
}

// startDeviceLocked initializes and starts a device, rebuilding the audio
// context once when the first attempt fails. A second failure propagates.
func (mb *MalgoBackend) startDeviceLocked(config malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) (*malgo.Device, error) {
	if mb.actx == nil {
		actx, err := newAudioContext()
		if err != nil {
			return nil, fmt.Errorf("initializing audio context: %w", err)
		}
		mb.actx = actx
	}

	device, err := initAndStart(mb.actx, config, callbacks)
	if err == nil {
		return device, nil
	}

	slog.Warn("audio device failed, rebuilding context", "error", err)
	mb.actx.Close()
	mb.actx = nil

	actx, ctxErr := newAudioContext()
	if ctxErr != nil {
		return nil, fmt.Errorf("rebuilding audio context: %w", ctxErr)
	}
	mb.actx = actx

	device, err = initAndStart(mb.actx, config, callbacks)
	if err != nil {
		slog.Error("audio device failed after context rebuild", "error", err)
		return nil, fmt.Errorf("starting playback device: %w", err)
	}
	return device, nil
}

func initAndStart(actx *audioContext, config malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) (*malgo.Device, error) {
	device, err := malgo.InitDevice(actx.raw(), config, callbacks)
	if err != nil {
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, err
	}
	return device, nil
}

// teardownDeviceLocked stops and releases the current device, if any.
// Callers hold the mutex.
func (mb *MalgoBackend) teardownDeviceLocked() {
	mb.active.Store(false)
	if mb.device == nil {
		return
	}
	mb.device.Stop()
	mb.device.Uninit()
	mb.device = nil
}

// silenceFor returns the byte value representing silence for a sample
// format. Unsigned 8-bit centers at 0x80; signed formats center at zero.
func silenceFor(format malgo.FormatType) byte {
	if format == malgo.FormatU8 {
		return 0x80
	}
	return 0
}

func fillSilence(buf []byte, silence byte) {
	for i := range buf {
		buf[i] = silence
	}
}
