package audio

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// AiffDecoder handles AIFF audio format decoding
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance
func NewAiffDecoder() *AiffDecoder {
	slog.Debug("creating new AIFF decoder instance")
	return &AiffDecoder{}
}

// FormatName returns the name of the format this decoder handles
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}

// CanDecode checks if this decoder can handle the given filename
func (d *AiffDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".aiff") || strings.HasSuffix(lower, ".aif")
}

// Decode reads AIFF audio data from reader and returns decoded PCM data
func (d *AiffDecoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting AIFF decode operation")

	// go-audio/aiff needs a ReadSeeker
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read AIFF data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		slog.Error("empty AIFF data")
		return nil, ErrInvalidData
	}

	decoder := aiff.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		slog.Error("invalid AIFF file")
		return nil, ErrInvalidData
	}

	sampleRate := int(decoder.SampleRate)
	channels := int(decoder.NumChans)
	bitDepth := int(decoder.SampleBitDepth())

	slog.Debug("AIFF format detected",
		"sample_rate", sampleRate,
		"channels", channels,
		"bits_per_sample", bitDepth)

	if channels == 0 || sampleRate == 0 {
		slog.Error("invalid AIFF format parameters",
			"channels", channels,
			"sample_rate", sampleRate)
		return nil, ErrInvalidData
	}

	var sampleFormat SampleFormat
	switch bitDepth {
	case 8:
		// AIFF 8-bit is signed; it is shifted to unsigned below.
		sampleFormat = FormatU8
	case 16:
		sampleFormat = FormatS16
	case 24:
		sampleFormat = FormatS24
	case 32:
		sampleFormat = FormatS32
	default:
		slog.Error("unsupported AIFF bit depth", "bits", bitDepth)
		return nil, ErrUnsupportedFormat
	}

	pcmBuffer, err := decoder.FullPCMBuffer()
	if err != nil {
		slog.Error("failed to read AIFF samples", "error", err)
		return nil, ErrReadFailure
	}
	if pcmBuffer == nil || len(pcmBuffer.Data) == 0 {
		slog.Error("no audio data found in AIFF file")
		return nil, ErrInvalidData
	}

	raw := packIntSamples(pcmBuffer, sampleFormat)

	audioData := &AudioData{
		Samples:    raw,
		Channels:   channels,
		SampleRate: sampleRate,
		Format:     sampleFormat,
	}

	slog.Info("AIFF decode completed",
		"total_bytes", len(raw),
		"samples", len(pcmBuffer.Data),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"format", sampleFormat.String(),
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}

// packIntSamples serializes an IntBuffer to interleaved little-endian PCM in
// the given sample format.
func packIntSamples(pcmBuffer *audio.IntBuffer, format SampleFormat) []byte {
	width := format.BytesPerSample()
	raw := make([]byte, 0, len(pcmBuffer.Data)*width)

	for _, sample := range pcmBuffer.Data {
		switch format {
		case FormatU8:
			raw = append(raw, byte(sample+128))
		case FormatS16:
			raw = append(raw, byte(sample), byte(sample>>8))
		case FormatS24:
			raw = append(raw, byte(sample), byte(sample>>8), byte(sample>>16))
		case FormatS32:
			raw = append(raw, byte(sample), byte(sample>>8), byte(sample>>16), byte(sample>>24))
		}
	}
	return raw
}
