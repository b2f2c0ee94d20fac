package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wav "github.com/youpy/go-wav"
)

// buildWav renders frames through the go-wav writer so decode tests read real
// container output instead of hand-assembled bytes.
func buildWav(t *testing.T, channels, sampleRate, bits int, frames []wav.Sample) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := wav.NewWriter(&buf, uint32(len(frames)), uint16(channels), uint32(sampleRate), uint16(bits))
	require.NoError(t, writer.WriteSamples(frames))
	return buf.Bytes()
}

// rawWavHeader hand-assembles a headers-only file for format combinations the
// writer refuses to produce.
func rawWavHeader(channels, sampleRate, bits int) []byte {
	out := []byte("RIFF")
	out = binary.LittleEndian.AppendUint32(out, 36)
	out = append(out, "WAVEfmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate*channels*bits/8))
	out = binary.LittleEndian.AppendUint16(out, uint16(channels*bits/8))
	out = binary.LittleEndian.AppendUint16(out, uint16(bits))
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, 0)
	return out
}

func TestWavDecoderFormatName(t *testing.T) {
	decoder := NewWavDecoder()

	require.NotNil(t, decoder)
	var _ Decoder = decoder
	assert.Equal(t, "WAV", decoder.FormatName())
}

func TestWavDecoderCanDecode(t *testing.T) {
	decoder := NewWavDecoder()

	tests := []struct {
		filename string
		want     bool
	}{
		{"audio.wav", true},
		{"sound.WAV", true},
		{"music.wave", true},
		{"test.WAVE", true},
		{"audio.mp3", false},
		{"sound.flac", false},
		{"", false},
		{"wav", false},
		{"audio.wav.backup", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, decoder.CanDecode(tt.filename), "CanDecode(%q)", tt.filename)
	}
}

func TestWavDecoderRejectsBadStreams(t *testing.T) {
	decoder := NewWavDecoder()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty stream", nil},
		{"text garbage", []byte("not a wav file")},
		{"header without samples", rawWavHeader(1, 22050, 16)},
		{"zero channels", rawWavHeader(0, 22050, 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := decoder.Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidData)
			assert.Nil(t, data)
		})
	}
}

func TestWavDecoderRejectsOddBitDepth(t *testing.T) {
	decoder := NewWavDecoder()

	data, err := decoder.Decode(bytes.NewReader(rawWavHeader(1, 22050, 12)))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Nil(t, data)
}

func TestWavDecoderDecodesStereo16(t *testing.T) {
	decoder := NewWavDecoder()

	frames := []wav.Sample{
		{Values: [2]int{0x0100, 0x0200}},
		{Values: [2]int{0x0300, 0x0400}},
	}

	data, err := decoder.Decode(bytes.NewReader(buildWav(t, 2, 44100, 16, frames)))
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, 2, data.Channels)
	assert.Equal(t, 44100, data.SampleRate)
	assert.Equal(t, FormatS16, data.Format)
	assert.Len(t, data.Samples, 2*2*2)
	assert.Equal(t, 2, data.FrameCount())
}

func TestWavDecoderDecodes8BitMono(t *testing.T) {
	decoder := NewWavDecoder()

	// 8-bit WAV is unsigned; the decoder passes the bytes through untouched.
	frames := []wav.Sample{
		{Values: [2]int{0x80}},
		{Values: [2]int{0x90}},
		{Values: [2]int{0x80}},
		{Values: [2]int{0x70}},
	}

	data, err := decoder.Decode(bytes.NewReader(buildWav(t, 1, 22050, 8, frames)))
	require.NoError(t, err)

	assert.Equal(t, 1, data.Channels)
	assert.Equal(t, 22050, data.SampleRate)
	assert.Equal(t, FormatU8, data.Format)
	assert.Equal(t, []byte{0x80, 0x90, 0x80, 0x70}, data.Samples)
}
