//go:build windows

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"unsafe"

	"boombox.click/internal/tone"
)

// PlaySound flags, from mmsystem.h.
const (
	sndSync      = 0x0000
	sndAsync     = 0x0001
	sndNoDefault = 0x0002
	sndMemory    = 0x0004
	sndAlias     = 0x00010000
	sndFilename  = 0x00020000
)

// kernel32 Beep accepts frequencies in [37, 32767] Hz.
const (
	beepFreqMin = 37
	beepFreqMax = 32767
)

var (
	winmmDLL      = syscall.NewLazyDLL("winmm.dll")
	kernel32DLL   = syscall.NewLazyDLL("kernel32.dll")
	procPlaySound = winmmDLL.NewProc("PlaySoundW")
	procBeep      = kernel32DLL.NewProc("Beep")
)

// WinmmBackend drives the native Windows multimedia API. Byte-buffer
// sources play with SND_MEMORY, aliases with SND_ALIAS, files with
// SND_FILENAME. Stop plays nothing, the winmm idiom for halting.
type WinmmBackend struct {
	source *SoundSource
	opts   PlaybackOptions

	mutex sync.Mutex
	// memory pins the buffer while winmm may still read it asynchronously.
	memory  []byte
	playing bool
	closed  bool
}

// NewWinmmBackend creates the native Windows driver for the given source.
func NewWinmmBackend(source *SoundSource, opts PlaybackOptions) (*WinmmBackend, error) {
	if source.Kind() == SourceURL {
		return nil, fmt.Errorf("%w: winmm cannot stream URLs", ErrBackendCreationFailed)
	}

	slog.Debug("creating winmm backend", "source", source.Describe(), "wait", opts.Wait)
	return &WinmmBackend{
		source: source,
		opts:   opts,
	}, nil
}

// Play hands the sound to PlaySound. When configured to wait it uses the
// synchronous flag and blocks inside the call; otherwise SND_ASYNC returns
// immediately and winmm plays in the background. A FALSE return from the
// API surfaces as ErrBackendRejected.
func (wb *WinmmBackend) Play(ctx context.Context) error {
	wb.mutex.Lock()
	if wb.closed {
		wb.mutex.Unlock()
		return ErrBackendClosed
	}

	select {
	case <-ctx.Done():
		wb.mutex.Unlock()
		return ctx.Err()
	default:
	}

	flags := uintptr(sndNoDefault)
	if wb.opts.Wait {
		flags |= sndSync
	} else {
		flags |= sndAsync
	}

	var arg uintptr
	switch wb.source.Kind() {
	case SourceFile:
		path, _ := wb.source.AsFilePath()
		ptr, err := syscall.UTF16PtrFromString(path)
		if err != nil {
			wb.mutex.Unlock()
			return fmt.Errorf("encoding path %q: %w", path, err)
		}
		arg = uintptr(unsafe.Pointer(ptr))
		flags |= sndFilename

	case SourceMemory:
		data, _ := wb.source.Bytes()
		wb.memory = data
		arg = uintptr(unsafe.Pointer(&wb.memory[0]))
		flags |= sndMemory

	case SourceAlias:
		alias, _ := wb.source.AliasName()
		ptr, err := syscall.UTF16PtrFromString(alias)
		if err != nil {
			wb.mutex.Unlock()
			return fmt.Errorf("encoding alias %q: %w", alias, err)
		}
		arg = uintptr(unsafe.Pointer(ptr))
		flags |= sndAlias
	}

	wb.playing = true
	wait := wb.opts.Wait
	wb.mutex.Unlock()

	slog.Debug("PlaySound invoked",
		"source", wb.source.Describe(),
		"wait", wait)

	// The synchronous call blocks here until playback completes or another
	// PlaySound call replaces it.
	ret, _, _ := procPlaySound.Call(arg, 0, flags)

	if wait {
		wb.mutex.Lock()
		wb.playing = false
		wb.mutex.Unlock()
	}

	if ret == 0 {
		wb.mutex.Lock()
		wb.playing = false
		wb.mutex.Unlock()
		slog.Error("PlaySound rejected the request", "source", wb.source.Describe())
		return fmt.Errorf("%w: PlaySound returned FALSE", ErrBackendRejected)
	}

	slog.Debug("PlaySound returned", "wait", wait)
	return nil
}

// PlayTone calls kernel32 Beep, which blocks for the tone duration. The
// frequency is clamped to the API's supported range; Beep has no volume
// control, so the requested volume only shapes the warning log.
func (wb *WinmmBackend) PlayTone(ctx context.Context, req tone.Request) error {
	wb.mutex.Lock()
	if wb.closed {
		wb.mutex.Unlock()
		return ErrBackendClosed
	}
	wb.mutex.Unlock()

	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	freq := int(req.Frequency)
	if freq < beepFreqMin {
		slog.Warn("tone frequency below Beep minimum, clamping",
			"requested_hz", req.Frequency, "clamped_hz", beepFreqMin)
		freq = beepFreqMin
	}
	if freq > beepFreqMax {
		slog.Warn("tone frequency above Beep maximum, clamping",
			"requested_hz", req.Frequency, "clamped_hz", beepFreqMax)
		freq = beepFreqMax
	}

	durationMs := req.Duration.Milliseconds()

	slog.Debug("Beep invoked",
		"frequency_hz", freq,
		"duration_ms", durationMs)

	ret, _, _ := procBeep.Call(uintptr(freq), uintptr(durationMs))
	if ret == 0 {
		slog.Error("Beep rejected the request", "frequency_hz", freq)
		return fmt.Errorf("%w: Beep returned FALSE", ErrBackendRejected)
	}
	return nil
}

// Stop halts playback by playing nothing. Safe to call when nothing is
// playing.
func (wb *WinmmBackend) Stop() error {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()

	if wb.closed {
		return ErrBackendClosed
	}

	procPlaySound.Call(0, 0, 0)
	wb.playing = false
	wb.memory = nil

	slog.Debug("winmm playback stopped")
	return nil
}

// Close stops playback and releases the pinned buffer. Idempotent.
func (wb *WinmmBackend) Close() error {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()

	if wb.closed {
		return nil
	}
	wb.closed = true

	procPlaySound.Call(0, 0, 0)
	wb.playing = false
	wb.memory = nil

	slog.Debug("winmm backend closed")
	return nil
}

// Playing reports the last commanded state. winmm gives no completion
// signal for asynchronous playback, so after an async Play this stays true
// until Stop or Close.
func (wb *WinmmBackend) Playing() bool {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	return wb.playing && !wb.closed
}
