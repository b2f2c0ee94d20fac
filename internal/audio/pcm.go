package audio

import (
	"log/slog"
)

// sampleAt reads one signed sample value starting at byte offset off,
// sign-extending little-endian S24 the same way the device layer does.
func sampleAt(samples []byte, off int, format SampleFormat) int32 {
	switch format {
	case FormatU8:
		return (int32(samples[off]) - 128) << 8
	case FormatS16:
		return int32(int16(uint16(samples[off]) | uint16(samples[off+1])<<8))
	case FormatS24:
		v := int32(samples[off]) | int32(samples[off+1])<<8 | int32(samples[off+2])<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return v >> 8
	case FormatS32:
		v := int32(uint32(samples[off]) | uint32(samples[off+1])<<8 |
			uint32(samples[off+2])<<16 | uint32(samples[off+3])<<24)
		return v >> 16
	}
	return 0
}

// ToS16 converts decoded audio to 16-bit signed little-endian samples, the
// common denominator every output device here accepts. S16 input is
// returned unchanged.
func ToS16(d *AudioData) *AudioData {
	if d.Format == FormatS16 {
		return d
	}

	width := d.Format.BytesPerSample()
	if width == 0 {
		slog.Warn("cannot convert unknown sample format, passing through")
		return d
	}

	count := len(d.Samples) / width
	out := make([]byte, count*2)
	for i := 0; i < count; i++ {
		v := sampleAt(d.Samples, i*width, d.Format)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}

	slog.Debug("converted samples to s16le",
		"from", d.Format.String(),
		"samples", count)

	return &AudioData{
		Samples:    out,
		Channels:   d.Channels,
		SampleRate: d.SampleRate,
		Format:     FormatS16,
	}
}

// ConvertChannels remaps S16 audio to the requested channel count: mono is
// duplicated up, multi-channel is averaged down.
func ConvertChannels(d *AudioData, channels int) *AudioData {
	if d.Channels == channels || channels <= 0 {
		return d
	}

	frames := d.FrameCount()
	out := make([]byte, frames*channels*2)

	for f := 0; f < frames; f++ {
		// Average the source frame to one value, then spread it. For the
		// common mono-to-stereo case this is plain duplication.
		var sum int32
		for ch := 0; ch < d.Channels; ch++ {
			sum += sampleAt(d.Samples, (f*d.Channels+ch)*2, FormatS16)
		}
		v := sum / int32(d.Channels)
		for ch := 0; ch < channels; ch++ {
			off := (f*channels + ch) * 2
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
		}
	}

	slog.Debug("remapped channels",
		"from", d.Channels,
		"to", channels,
		"frames", frames)

	return &AudioData{
		Samples:    out,
		Channels:   channels,
		SampleRate: d.SampleRate,
		Format:     FormatS16,
	}
}

// ResampleLinear converts S16 audio to the requested sample rate by linear
// interpolation. Good enough for short notification sounds and tones; not a
// mastering-grade resampler.
func ResampleLinear(d *AudioData, rate int) *AudioData {
	if d.SampleRate == rate || rate <= 0 || d.SampleRate <= 0 {
		return d
	}

	srcFrames := d.FrameCount()
	if srcFrames == 0 {
		return d
	}
	dstFrames := int(int64(srcFrames) * int64(rate) / int64(d.SampleRate))
	out := make([]byte, dstFrames*d.Channels*2)

	ratio := float64(d.SampleRate) / float64(rate)
	for f := 0; f < dstFrames; f++ {
		pos := float64(f) * ratio
		i0 := int(pos)
		if i0 >= srcFrames {
			i0 = srcFrames - 1
		}
		i1 := i0 + 1
		if i1 >= srcFrames {
			i1 = srcFrames - 1
		}
		frac := pos - float64(i0)

		for ch := 0; ch < d.Channels; ch++ {
			v0 := float64(sampleAt(d.Samples, (i0*d.Channels+ch)*2, FormatS16))
			v1 := float64(sampleAt(d.Samples, (i1*d.Channels+ch)*2, FormatS16))
			v := int32(v0 + (v1-v0)*frac)

			off := (f*d.Channels + ch) * 2
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
		}
	}

	slog.Debug("resampled audio",
		"from_rate", d.SampleRate,
		"to_rate", rate,
		"src_frames", srcFrames,
		"dst_frames", dstFrames)

	return &AudioData{
		Samples:    out,
		Channels:   d.Channels,
		SampleRate: rate,
		Format:     FormatS16,
	}
}
