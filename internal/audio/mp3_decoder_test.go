package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMp3DecoderFormatName(t *testing.T) {
	decoder := NewMp3Decoder()

	require.NotNil(t, decoder)
	var _ Decoder = decoder
	assert.Equal(t, "MP3", decoder.FormatName())
}

func TestMp3DecoderCanDecode(t *testing.T) {
	decoder := NewMp3Decoder()

	tests := []struct {
		filename string
		want     bool
	}{
		{"audio.mp3", true},
		{"sound.MP3", true},
		{"music.mpeg", true},
		{"test.MPEG", true},
		{"audio.wav", false},
		{"sound.flac", false},
		{"", false},
		{"mp3", false},
		{"audio.mp3.backup", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, decoder.CanDecode(tt.filename), "CanDecode(%q)", tt.filename)
	}
}

func TestMp3DecoderRejectsBadStreams(t *testing.T) {
	decoder := NewMp3Decoder()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty stream", nil},
		{"text garbage", []byte("not an mp3 file")},
		{"frame sync without a frame body", []byte{0xFF, 0xFB, 0x90, 0x00}},
		{"riff container", []byte("RIFF\x24\x00\x00\x00WAVEfmt ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := decoder.Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidData)
			assert.Nil(t, data)
		})
	}
}
