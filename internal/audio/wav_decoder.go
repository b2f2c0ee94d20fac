package audio

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/youpy/go-wav"
)

// WavDecoder handles WAV audio format decoding
type WavDecoder struct{}

// NewWavDecoder creates a new WAV decoder instance
func NewWavDecoder() *WavDecoder {
	slog.Debug("creating new WAV decoder instance")
	return &WavDecoder{}
}

// Decode reads WAV audio data from reader and returns decoded PCM data
func (d *WavDecoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting WAV decode operation")

	// youpy/go-wav needs a ReadSeeker, so buffer the container first
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read WAV data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		slog.Error("empty WAV data")
		return nil, ErrInvalidData
	}

	wavReader := wav.NewReader(bytes.NewReader(data))
	format, err := wavReader.Format()
	if err != nil {
		slog.Error("failed to read WAV format", "error", err)
		return nil, ErrInvalidData
	}

	slog.Debug("WAV format detected",
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"bits_per_sample", format.BitsPerSample)

	if format.NumChannels == 0 || format.SampleRate == 0 {
		slog.Error("invalid WAV format parameters",
			"channels", format.NumChannels,
			"sample_rate", format.SampleRate)
		return nil, ErrInvalidData
	}

	var sampleFormat SampleFormat
	switch format.BitsPerSample {
	case 8:
		sampleFormat = FormatU8
	case 16:
		sampleFormat = FormatS16
	case 24:
		sampleFormat = FormatS24
	case 32:
		sampleFormat = FormatS32
	default:
		slog.Error("unsupported WAV bit depth", "bits", format.BitsPerSample)
		return nil, ErrUnsupportedFormat
	}

	channels := int(format.NumChannels)
	width := sampleFormat.BytesPerSample()
	raw := make([]byte, 0, len(data))
	frames := 0

	for {
		samples, err := wavReader.ReadSamples()
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("failed to read WAV samples", "error", err)
			return nil, ErrReadFailure
		}
		if len(samples) == 0 {
			break
		}

		for _, sample := range samples {
			for ch := 0; ch < channels; ch++ {
				var val int
				if ch < len(sample.Values) {
					val = sample.Values[ch]
				}
				switch width {
				case 1:
					raw = append(raw, byte(val))
				case 2:
					raw = append(raw, byte(val), byte(val>>8))
				case 3:
					raw = append(raw, byte(val), byte(val>>8), byte(val>>16))
				case 4:
					raw = append(raw, byte(val), byte(val>>8), byte(val>>16), byte(val>>24))
				}
			}
		}
		frames += len(samples)
	}

	if frames == 0 {
		slog.Error("no audio data found in WAV file")
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    raw,
		Channels:   channels,
		SampleRate: int(format.SampleRate),
		Format:     sampleFormat,
	}

	slog.Info("WAV decode completed",
		"total_bytes", len(raw),
		"frames", frames,
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"format", sampleFormat.String(),
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *WavDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".wav") || strings.HasSuffix(lower, ".wave")
}

// FormatName returns the name of the format this decoder handles
func (d *WavDecoder) FormatName() string {
	return "WAV"
}
