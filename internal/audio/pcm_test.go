package audio

import (
	"testing"
)

func s16Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func s16Values(t *testing.T, samples []byte) []int16 {
	t.Helper()
	if len(samples)%2 != 0 {
		t.Fatalf("odd byte count %d", len(samples))
	}
	out := make([]int16, len(samples)/2)
	for i := range out {
		out[i] = int16(uint16(samples[i*2]) | uint16(samples[i*2+1])<<8)
	}
	return out
}

func TestToS16(t *testing.T) {
	t.Run("s16 input passes through", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{100, -100}),
			Channels:   1,
			SampleRate: 8000,
			Format:     FormatS16,
		}

		out := ToS16(in)
		if out != in {
			t.Error("expected s16 input to be returned unchanged")
		}
	})

	t.Run("u8 conversion", func(t *testing.T) {
		in := &AudioData{
			Samples:    []byte{128, 255, 0},
			Channels:   1,
			SampleRate: 8000,
			Format:     FormatU8,
		}

		out := ToS16(in)
		if out.Format != FormatS16 {
			t.Fatalf("expected FormatS16, got %v", out.Format)
		}

		values := s16Values(t, out.Samples)
		expected := []int16{0, 32512, -32768}
		if len(values) != len(expected) {
			t.Fatalf("expected %d samples, got %d", len(expected), len(values))
		}
		for i, want := range expected {
			if values[i] != want {
				t.Errorf("sample %d: expected %d, got %d", i, want, values[i])
			}
		}
	})

	t.Run("s24 conversion", func(t *testing.T) {
		// 0x400000 is +4194304, 0xC00000 sign-extends to -4194304.
		in := &AudioData{
			Samples:    []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xC0},
			Channels:   1,
			SampleRate: 8000,
			Format:     FormatS24,
		}

		out := ToS16(in)
		values := s16Values(t, out.Samples)
		expected := []int16{16384, -16384}
		for i, want := range expected {
			if values[i] != want {
				t.Errorf("sample %d: expected %d, got %d", i, want, values[i])
			}
		}
	})

	t.Run("s32 conversion", func(t *testing.T) {
		in := &AudioData{
			Samples:    []byte{0x00, 0x00, 0x00, 0x40},
			Channels:   1,
			SampleRate: 8000,
			Format:     FormatS32,
		}

		out := ToS16(in)
		values := s16Values(t, out.Samples)
		if len(values) != 1 || values[0] != 16384 {
			t.Errorf("expected [16384], got %v", values)
		}
	})

	t.Run("preserves channel count and rate", func(t *testing.T) {
		in := &AudioData{
			Samples:    []byte{128, 128, 128, 128},
			Channels:   2,
			SampleRate: 22050,
			Format:     FormatU8,
		}

		out := ToS16(in)
		if out.Channels != 2 {
			t.Errorf("expected 2 channels, got %d", out.Channels)
		}
		if out.SampleRate != 22050 {
			t.Errorf("expected 22050 rate, got %d", out.SampleRate)
		}
	})
}

func TestConvertChannels(t *testing.T) {
	t.Run("matching count passes through", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{1, 2}),
			Channels:   2,
			SampleRate: 8000,
			Format:     FormatS16,
		}

		if out := ConvertChannels(in, 2); out != in {
			t.Error("expected matching channel count to be returned unchanged")
		}
	})

	t.Run("mono to stereo duplicates", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{1000, -1000}),
			Channels:   1,
			SampleRate: 8000,
			Format:     FormatS16,
		}

		out := ConvertChannels(in, 2)
		if out.Channels != 2 {
			t.Fatalf("expected 2 channels, got %d", out.Channels)
		}

		values := s16Values(t, out.Samples)
		expected := []int16{1000, 1000, -1000, -1000}
		if len(values) != len(expected) {
			t.Fatalf("expected %d samples, got %d", len(expected), len(values))
		}
		for i, want := range expected {
			if values[i] != want {
				t.Errorf("sample %d: expected %d, got %d", i, want, values[i])
			}
		}
	})

	t.Run("stereo to mono averages", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{1000, 3000}),
			Channels:   2,
			SampleRate: 8000,
			Format:     FormatS16,
		}

		out := ConvertChannels(in, 1)
		values := s16Values(t, out.Samples)
		if len(values) != 1 || values[0] != 2000 {
			t.Errorf("expected [2000], got %v", values)
		}
	})
}

func TestResampleLinear(t *testing.T) {
	t.Run("matching rate passes through", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{1, 2}),
			Channels:   1,
			SampleRate: 8000,
			Format:     FormatS16,
		}

		if out := ResampleLinear(in, 8000); out != in {
			t.Error("expected matching rate to be returned unchanged")
		}
	})

	t.Run("upsample interpolates", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{0, 1000}),
			Channels:   1,
			SampleRate: 4000,
			Format:     FormatS16,
		}

		out := ResampleLinear(in, 8000)
		if out.SampleRate != 8000 {
			t.Fatalf("expected rate 8000, got %d", out.SampleRate)
		}

		values := s16Values(t, out.Samples)
		expected := []int16{0, 500, 1000, 1000}
		if len(values) != len(expected) {
			t.Fatalf("expected %d samples, got %d", len(expected), len(values))
		}
		for i, want := range expected {
			if values[i] != want {
				t.Errorf("sample %d: expected %d, got %d", i, want, values[i])
			}
		}
	})

	t.Run("downsample decimates", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{0, 1000, 2000, 3000}),
			Channels:   1,
			SampleRate: 8000,
			Format:     FormatS16,
		}

		out := ResampleLinear(in, 4000)
		values := s16Values(t, out.Samples)
		expected := []int16{0, 2000}
		if len(values) != len(expected) {
			t.Fatalf("expected %d samples, got %d", len(expected), len(values))
		}
		for i, want := range expected {
			if values[i] != want {
				t.Errorf("sample %d: expected %d, got %d", i, want, values[i])
			}
		}
	})

	t.Run("stereo frames stay paired", func(t *testing.T) {
		in := &AudioData{
			Samples:    s16Bytes([]int16{100, -100, 300, -300}),
			Channels:   2,
			SampleRate: 4000,
			Format:     FormatS16,
		}

		out := ResampleLinear(in, 8000)
		values := s16Values(t, out.Samples)

		if len(values)%2 != 0 {
			t.Fatalf("stereo output has odd sample count %d", len(values))
		}
		if values[0] != 100 || values[1] != -100 {
			t.Errorf("first frame changed: got (%d, %d)", values[0], values[1])
		}
		// Left and right stay mirrored through interpolation.
		for f := 0; f < len(values)/2; f++ {
			if values[f*2] != -values[f*2+1] {
				t.Errorf("frame %d lost channel pairing: (%d, %d)", f, values[f*2], values[f*2+1])
			}
		}
	})
}

func TestAudioDataHelpers(t *testing.T) {
	data := &AudioData{
		Samples:    make([]byte, 8000*2*2), // one second of stereo s16 at 8kHz
		Channels:   2,
		SampleRate: 8000,
		Format:     FormatS16,
	}

	if data.BytesPerFrame() != 4 {
		t.Errorf("expected 4 bytes per frame, got %d", data.BytesPerFrame())
	}
	if data.FrameCount() != 8000 {
		t.Errorf("expected 8000 frames, got %d", data.FrameCount())
	}
	if data.Duration().Seconds() != 1.0 {
		t.Errorf("expected 1s duration, got %v", data.Duration())
	}
}
