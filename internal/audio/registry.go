package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes feed magic-number detection.
const sniffLen = 512

// DecoderRegistry manages audio format decoders and provides format
// detection by magic bytes with an extension fallback.
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry creates a new empty decoder registry
func NewDecoderRegistry() *DecoderRegistry {
	slog.Debug("creating new decoder registry")
	return &DecoderRegistry{}
}

// NewDefaultRegistry creates a registry with the WAV, MP3, and AIFF decoders
func NewDefaultRegistry() *DecoderRegistry {
	registry := NewDecoderRegistry()
	registry.Register(NewWavDecoder())
	registry.Register(NewMp3Decoder())
	registry.Register(NewAiffDecoder())

	slog.Debug("default decoder registry initialized",
		"supported_formats", registry.GetSupportedFormats())
	return registry
}

// Register adds a decoder to the registry
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}
	slog.Debug("registering decoder", "format", decoder.FormatName())
	r.decoders = append(r.decoders, decoder)
}

// GetDecoders returns all registered decoders
func (r *DecoderRegistry) GetDecoders() []Decoder {
	return r.decoders
}

// GetSupportedFormats returns the names of every registered format
func (r *DecoderRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}

// DetectFormat picks a decoder based on filename extension only
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	if filename == "" {
		return nil
	}
	for _, decoder := range r.decoders {
		if decoder.CanDecode(filename) {
			slog.Debug("format detected by extension",
				"filename", filename,
				"format", decoder.FormatName())
			return decoder
		}
	}
	slog.Debug("no decoder matches filename", "filename", filename)
	return nil
}

// DetectFormatWithContent picks a decoder using magic bytes first, falling
// back to extension detection when the content is unrecognized.
func (r *DecoderRegistry) DetectFormatWithContent(filename string, reader io.Reader) Decoder {
	header := make([]byte, sniffLen)
	n, err := reader.Read(header)
	if err != nil && err != io.EOF {
		slog.Error("failed to read header for magic detection", "error", err)
		return r.DetectFormat(filename)
	}
	if n == 0 {
		return r.DetectFormat(filename)
	}

	mime := strings.ToLower(mimetype.Detect(header[:n]).String())
	slog.Debug("magic byte detection",
		"filename", filename,
		"mime", mime,
		"bytes_analyzed", n)

	if decoder := r.decoderForMime(mime); decoder != nil {
		slog.Debug("format detected by magic bytes",
			"filename", filename,
			"format", decoder.FormatName(),
			"mime", mime)
		return decoder
	}

	return r.DetectFormat(filename)
}

// decoderForMime maps a detected MIME type onto a registered decoder.
func (r *DecoderRegistry) decoderForMime(mime string) Decoder {
	switch {
	case strings.Contains(mime, "wav") || mime == "audio/vnd.wave":
		return r.findDecoderByFormat("WAV")
	case strings.Contains(mime, "mpeg") || strings.Contains(mime, "mp3"):
		return r.findDecoderByFormat("MP3")
	case strings.Contains(mime, "aiff"):
		return r.findDecoderByFormat("AIFF")
	}
	return nil
}

func (r *DecoderRegistry) findDecoderByFormat(formatName string) Decoder {
	for _, decoder := range r.decoders {
		if strings.EqualFold(decoder.FormatName(), formatName) {
			return decoder
		}
	}
	return nil
}

// DecodeFile decodes a named stream with whichever decoder matches it.
// The content is buffered once so detection does not consume the reader.
func (r *DecoderRegistry) DecodeFile(filename string, reader io.Reader) (*AudioData, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read content for decode", "filename", filename, "error", err)
		return nil, fmt.Errorf("failed to read audio content: %w", err)
	}

	decoder := r.DetectFormatWithContent(filename, bytes.NewReader(content))
	if decoder == nil {
		slog.Error("no suitable decoder found", "filename", filename)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	audioData, err := decoder.Decode(bytes.NewReader(content))
	if err != nil {
		slog.Error("decode failed",
			"filename", filename,
			"format", decoder.FormatName(),
			"error", err)
		return nil, err
	}

	slog.Debug("file decoded",
		"filename", filename,
		"format", decoder.FormatName(),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"bytes", len(audioData.Samples))
	return audioData, nil
}
