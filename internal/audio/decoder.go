package audio

import (
	"errors"
	"io"
	"time"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// SampleFormat identifies the PCM encoding of decoded samples. Signed
// formats are little-endian.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatS24
	FormatS32
)

// BytesPerSample returns the width of one sample in one channel.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32:
		return 4
	}
	return 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16le"
	case FormatS24:
		return "s24le"
	case FormatS32:
		return "s32le"
	}
	return "unknown"
}

// AudioData is decoded audio ready for playback: interleaved PCM plus the
// parameters needed to open an output device for it.
type AudioData struct {
	Samples    []byte
	Channels   int
	SampleRate int
	Format     SampleFormat
}

// BytesPerFrame returns the size of one interleaved frame.
func (d *AudioData) BytesPerFrame() int {
	return d.Channels * d.Format.BytesPerSample()
}

// FrameCount returns the number of interleaved frames in the buffer.
func (d *AudioData) FrameCount() int {
	bpf := d.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return len(d.Samples) / bpf
}

// Duration computes the playback length from the frame count. Backends that
// cannot observe end-of-stream use this as their wait bound.
func (d *AudioData) Duration() time.Duration {
	if d.SampleRate <= 0 {
		return 0
	}
	return time.Duration(d.FrameCount()) * time.Second / time.Duration(d.SampleRate)
}

// Decoder turns one container format into AudioData.
type Decoder interface {
	// Decode reads audio data from reader and returns decoded PCM data
	Decode(reader io.Reader) (*AudioData, error)

	// CanDecode checks if this decoder can handle the given filename
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles
	FormatName() string
}
