package tone

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

// DefaultSampleRate is used when a Request leaves SampleRate zero.
const DefaultSampleRate = 22050

// silenceByte is the unsigned 8-bit PCM midpoint.
const silenceByte = 0x80

var (
	ErrInvalidFrequency  = errors.New("tone frequency must be positive")
	ErrInvalidDuration   = errors.New("tone duration must be positive")
	ErrInvalidVolume     = errors.New("tone volume must be between 0.0 and 1.0")
	ErrInvalidSampleRate = errors.New("tone sample rate must be positive")
)

// Request describes one tone to synthesize: a mono sine wave rendered as
// unsigned 8-bit PCM.
type Request struct {
	Frequency  float64
	Duration   time.Duration
	Volume     float64
	SampleRate int
}

// WithDefaults returns a copy of the request with the default sample rate
// filled in when it was left zero.
func (r Request) WithDefaults() Request {
	if r.SampleRate == 0 {
		r.SampleRate = DefaultSampleRate
	}
	return r
}

// Validate checks the request fields. The Nyquist condition is deliberately
// not validated here; synthesis services undersampled requests with a
// warning and audible aliasing instead of failing.
func (r Request) Validate() error {
	if r.Frequency <= 0 {
		return fmt.Errorf("%w: got %g Hz", ErrInvalidFrequency, r.Frequency)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidDuration, r.Duration)
	}
	if r.Volume < 0.0 || r.Volume > 1.0 {
		return fmt.Errorf("%w: got %g", ErrInvalidVolume, r.Volume)
	}
	if r.SampleRate <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleRate, r.SampleRate)
	}
	return nil
}

// NumSamples returns the number of sine samples for the requested duration.
func (r Request) NumSamples() int {
	return int(int64(r.SampleRate) * r.Duration.Milliseconds() / 1000)
}

// BufferLen returns the total synthesized length in bytes: every sine sample
// plus the (samples mod rate) trailing bytes of silence.
func (r Request) BufferLen() int {
	n := r.NumSamples()
	return n + n%r.SampleRate
}

// Synthesize renders the request into a single buffer of unsigned 8-bit mono
// PCM. The buffer holds sample[i] = round(volume*sin(2*pi*f*i/rate)*127+128)
// for every sample of the requested duration, then (samples mod rate) bytes
// of trailing silence. Identical requests produce identical buffers.
func Synthesize(req Request) ([]byte, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		slog.Error("tone request rejected", "error", err)
		return nil, err
	}
	warnUndersampled(req)

	n := req.NumSamples()
	rest := n % req.SampleRate

	slog.Debug("synthesizing tone",
		"frequency_hz", req.Frequency,
		"duration_ms", req.Duration.Milliseconds(),
		"volume", req.Volume,
		"sample_rate", req.SampleRate,
		"samples", n,
		"padding", rest)

	buf := make([]byte, n+rest)
	step := 2 * math.Pi * req.Frequency / float64(req.SampleRate)
	for i := 0; i < n; i++ {
		buf[i] = byte(math.Round(req.Volume*math.Sin(step*float64(i))*127 + 128))
	}
	for i := n; i < len(buf); i++ {
		buf[i] = silenceByte
	}
	return buf, nil
}

// WriteTo synthesizes the request and writes it to w in batches sized to one
// second of audio rather than sample by sample. It returns the number of
// bytes written.
func WriteTo(w io.Writer, req Request) (int64, error) {
	req = req.WithDefaults()
	buf, err := Synthesize(req)
	if err != nil {
		return 0, err
	}

	var written int64
	for off := 0; off < len(buf); off += req.SampleRate {
		end := off + req.SampleRate
		if end > len(buf) {
			end = len(buf)
		}
		n, err := w.Write(buf[off:end])
		written += int64(n)
		if err != nil {
			slog.Error("tone write failed", "written", written, "error", err)
			return written, fmt.Errorf("writing tone samples: %w", err)
		}
	}

	slog.Debug("tone written", "bytes", written)
	return written, nil
}

func warnUndersampled(req Request) {
	if float64(req.SampleRate) < 2*req.Frequency {
		slog.Warn("sample rate below Nyquist limit, tone will alias",
			"frequency_hz", req.Frequency,
			"sample_rate", req.SampleRate,
			"minimum_rate", 2*req.Frequency)
	}
}
