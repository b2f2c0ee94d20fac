package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeExtendedFloat renders a sample rate as the 80-bit IEEE 754 extended
// float the COMM chunk stores it in.
func encodeExtendedFloat(rate int) []byte {
	b := make([]byte, 10)
	if rate <= 0 {
		return b
	}

	exponent := uint16(16383 + 63)
	mantissa := uint64(rate)
	for mantissa&(1<<63) == 0 {
		mantissa <<= 1
		exponent--
	}
	binary.BigEndian.PutUint16(b[0:2], exponent)
	binary.BigEndian.PutUint64(b[2:10], mantissa)
	return b
}

// buildAiff assembles a minimal FORM/COMM/SSND container holding silence.
func buildAiff(sampleRate, channels, bitDepth, frames int) []byte {
	dataSize := frames * channels * (bitDepth / 8)

	comm := make([]byte, 18)
	binary.BigEndian.PutUint16(comm[0:2], uint16(channels))
	binary.BigEndian.PutUint32(comm[2:6], uint32(frames))
	binary.BigEndian.PutUint16(comm[6:8], uint16(bitDepth))
	copy(comm[8:18], encodeExtendedFloat(sampleRate))

	// 4-byte offset and 4-byte block size, both zero, then the sample data.
	ssnd := make([]byte, 8+dataSize)

	out := []byte("FORM")
	out = binary.BigEndian.AppendUint32(out, uint32(4+8+len(comm)+8+len(ssnd)))
	out = append(out, "AIFF"...)
	out = append(out, "COMM"...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(comm)))
	out = append(out, comm...)
	out = append(out, "SSND"...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(ssnd)))
	out = append(out, ssnd...)
	return out
}

func TestEncodeExtendedFloat(t *testing.T) {
	// Canonical encoding of 44100 Hz as seen in real AIFF files.
	want := []byte{0x40, 0x0E, 0xAC, 0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	assert.Equal(t, want, encodeExtendedFloat(44100))
}

func TestAiffDecoderFormatName(t *testing.T) {
	decoder := NewAiffDecoder()

	require.NotNil(t, decoder)
	var _ Decoder = decoder
	assert.Equal(t, "AIFF", decoder.FormatName())
}

func TestAiffDecoderCanDecode(t *testing.T) {
	decoder := NewAiffDecoder()

	tests := []struct {
		filename string
		want     bool
	}{
		{"audio.aiff", true},
		{"sound.AIFF", true},
		{"music.aif", true},
		{"test.AIF", true},
		{"audio.mp3", false},
		{"sound.wav", false},
		{"", false},
		{"aiff", false},
		{"audio.aiff.backup", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, decoder.CanDecode(tt.filename), "CanDecode(%q)", tt.filename)
	}
}

func TestAiffDecoderRejectsBadStreams(t *testing.T) {
	decoder := NewAiffDecoder()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty stream", nil},
		{"text garbage", []byte("not an aiff file")},
		{"truncated form header", []byte("FORM")},
		{"riff container", append([]byte("RIFF"), make([]byte, 100)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := decoder.Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidData)
			assert.Nil(t, data)
		})
	}
}

func TestAiffDecoderDecodesPCM(t *testing.T) {
	decoder := NewAiffDecoder()

	data, err := decoder.Decode(bytes.NewReader(buildAiff(44100, 2, 16, 1000)))
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, 44100, data.SampleRate)
	assert.Equal(t, 2, data.Channels)
	assert.Equal(t, FormatS16, data.Format)
	assert.Len(t, data.Samples, 1000*2*2)
	assert.Equal(t, 1000, data.FrameCount())
}

func TestAiffDecoderBitDepths(t *testing.T) {
	decoder := NewAiffDecoder()

	tests := []struct {
		bitDepth   int
		wantFormat SampleFormat
	}{
		{8, FormatU8},
		{16, FormatS16},
		{24, FormatS24},
		{32, FormatS32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-bit", tt.bitDepth), func(t *testing.T) {
			data, err := decoder.Decode(bytes.NewReader(buildAiff(44100, 1, tt.bitDepth, 100)))
			require.NoError(t, err)

			assert.Equal(t, tt.wantFormat, data.Format)
			assert.Len(t, data.Samples, 100*tt.bitDepth/8)
		})
	}
}

func TestAiffDecoder8BitShiftedToUnsigned(t *testing.T) {
	decoder := NewAiffDecoder()

	// AIFF stores 8-bit samples signed; decoded silence must sit at the
	// unsigned midpoint.
	data, err := decoder.Decode(bytes.NewReader(buildAiff(22050, 1, 8, 50)))
	require.NoError(t, err)
	require.Equal(t, FormatU8, data.Format)

	for i, b := range data.Samples {
		require.Equalf(t, byte(0x80), b, "sample %d not at midpoint", i)
	}
}

func TestAiffDecoderChannelLayouts(t *testing.T) {
	decoder := NewAiffDecoder()

	tests := []struct {
		name     string
		channels int
	}{
		{"mono", 1},
		{"stereo", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := decoder.Decode(bytes.NewReader(buildAiff(44100, tt.channels, 16, 100)))
			require.NoError(t, err)

			assert.Equal(t, tt.channels, data.Channels)
			assert.Len(t, data.Samples, 100*tt.channels*2)
			assert.Equal(t, 100, data.FrameCount())
		})
	}
}
