package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"boombox.click/internal/tone"
)

const (
	// resampleQuality trades fidelity for CPU in beep.Resample.
	resampleQuality = 4

	// pipelineEOSGrace pads the stream-length wait bound so the callback
	// has time to fire after the last sample plays.
	pipelineEOSGrace = 2 * time.Second

	// pipelineWaitCap bounds the wait when the streamer cannot report its
	// length. A stream that never reaches end-of-stream otherwise hangs
	// the caller forever.
	pipelineWaitCap = 10 * time.Minute
)

// The speaker is process-wide in beep. It is initialized at the sample rate
// of the first track played; later tracks at other rates are resampled onto
// it.
var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

func initSpeaker(rate beep.SampleRate) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(time.Second/10))
		if speakerErr == nil {
			speakerRate = rate
			slog.Debug("speaker initialized", "sample_rate", rate)
		}
	})
	if speakerErr != nil {
		slog.Error("speaker initialization failed", "error", speakerErr)
		return fmt.Errorf("%w: speaker init: %v", ErrBackendRejected, speakerErr)
	}
	return nil
}

// pipelineTrack bundles a decoded stream with its format and the reader it
// was decoded from.
type pipelineTrack struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	closer   io.Closer
}

func (t *pipelineTrack) close() {
	if t.streamer != nil {
		t.streamer.Close()
	}
	if t.closer != nil {
		t.closer.Close()
	}
}

// readSeekNopCloser adapts an in-memory reader to every interface the
// stream decoders probe for.
type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// BeepBackend plays through the beep speaker pipeline. It decodes local
// files and in-memory buffers, and fetches http(s) URLs before decoding.
type BeepBackend struct {
	source *SoundSource
	opts   PlaybackOptions

	mutex   sync.Mutex
	track   *pipelineTrack
	playing bool
	closed  bool
}

// NewBeepBackend creates a pipeline driver for the given source.
func NewBeepBackend(source *SoundSource, opts PlaybackOptions) (*BeepBackend, error) {
	if source.Kind() == SourceAlias {
		return nil, fmt.Errorf("%w: the pipeline cannot play system aliases", ErrBackendCreationFailed)
	}

	slog.Debug("creating beep backend", "source", source.Describe(), "wait", opts.Wait)
	return &BeepBackend{
		source: source,
		opts:   opts,
	}, nil
}

// Play rewinds the pipeline and starts it. A failed speaker init or a
// stream error surfaces as ErrBackendRejected and is not retried. When
// configured to wait it blocks for the end-of-stream callback, bounded by
// the duration hint, the stream length, or the default cap.
func (bb *BeepBackend) Play(ctx context.Context) error {
	bb.mutex.Lock()
	if bb.closed {
		bb.mutex.Unlock()
		return ErrBackendClosed
	}

	// Force a stopped, rewound pipeline before requesting playback.
	speaker.Clear()
	if bb.track != nil {
		if err := bb.track.streamer.Seek(0); err != nil {
			slog.Debug("streamer rewind failed, reopening track", "error", err)
			bb.track.close()
			bb.track = nil
		}
	}
	if bb.track == nil {
		track, err := bb.openTrack()
		if err != nil {
			bb.mutex.Unlock()
			return err
		}
		bb.track = track
	}

	if err := initSpeaker(bb.track.format.SampleRate); err != nil {
		bb.mutex.Unlock()
		return err
	}

	var streamer beep.Streamer = bb.track.streamer
	if bb.track.format.SampleRate != speakerRate {
		streamer = beep.Resample(resampleQuality, bb.track.format.SampleRate, speakerRate, bb.track.streamer)
	}

	bound := bb.waitBoundLocked()
	src := bb.track.streamer
	done := make(chan struct{})
	bb.playing = true

	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	bb.mutex.Unlock()

	slog.Debug("pipeline playback started",
		"source", bb.source.Describe(),
		"wait", bb.opts.Wait)

	if bb.opts.Wait {
		return bb.waitForEOS(ctx, done, src, bound)
	}

	// End of stream forces the pipeline back to a stopped state; stream
	// errors are logged, then stopped.
	go func() {
		<-done
		bb.mutex.Lock()
		bb.playing = false
		bb.mutex.Unlock()
		if err := src.Err(); err != nil {
			slog.Error("pipeline stream error", "error", err)
		}
		slog.Debug("pipeline reached end of stream")
	}()
	return nil
}

// waitForEOS blocks until the end-of-stream callback fires, the context is
// cancelled, or the wait bound expires.
func (bb *BeepBackend) waitForEOS(ctx context.Context, done chan struct{}, src beep.StreamSeekCloser, bound time.Duration) error {
	slog.Debug("waiting for end of stream", "timeout", bound)

	timer := time.NewTimer(bound)
	defer timer.Stop()

	var err error
	select {
	case <-done:
		if streamErr := src.Err(); streamErr != nil {
			slog.Error("pipeline stream error", "error", streamErr)
			err = fmt.Errorf("%w: %v", ErrBackendRejected, streamErr)
		} else {
			slog.Debug("pipeline playback completed")
		}
	case <-ctx.Done():
		slog.Debug("pipeline wait cancelled", "error", ctx.Err())
		err = ctx.Err()
		bb.Stop()
	case <-timer.C:
		slog.Warn("pipeline never reached end of stream, stopping", "waited", bound)
		bb.Stop()
	}

	bb.mutex.Lock()
	bb.playing = false
	bb.mutex.Unlock()
	return err
}

// waitBoundLocked picks the wait timeout: the caller's hint, the stream
// length plus grace, or the default cap. Callers hold the mutex.
func (bb *BeepBackend) waitBoundLocked() time.Duration {
	if bb.opts.DurationHint > 0 {
		return bb.opts.DurationHint
	}
	if bb.track != nil {
		if n := bb.track.streamer.Len(); n > 0 {
			return bb.track.format.SampleRate.D(n) + pipelineEOSGrace
		}
	}
	return pipelineWaitCap
}

// PlayTone streams synthesized samples through the speaker. Blocks for the
// duration of the padded buffer.
func (bb *BeepBackend) PlayTone(ctx context.Context, req tone.Request) error {
	bb.mutex.Lock()
	if bb.closed {
		bb.mutex.Unlock()
		return ErrBackendClosed
	}
	bb.mutex.Unlock()

	req = req.WithDefaults()
	samples, err := tone.Synthesize(req)
	if err != nil {
		return err
	}

	if err := initSpeaker(beep.SampleRate(req.SampleRate)); err != nil {
		return err
	}

	var streamer beep.Streamer = &toneStreamer{samples: samples}
	if beep.SampleRate(req.SampleRate) != speakerRate {
		streamer = beep.Resample(resampleQuality, beep.SampleRate(req.SampleRate), speakerRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	slog.Debug("tone playback started",
		"frequency_hz", req.Frequency,
		"samples", len(samples))

	duration := time.Duration(len(samples)) * time.Second / time.Duration(req.SampleRate)
	timer := time.NewTimer(duration + pipelineEOSGrace)
	defer timer.Stop()

	select {
	case <-done:
		slog.Debug("tone playback completed", "duration", duration)
		return nil
	case <-ctx.Done():
		speaker.Clear()
		slog.Debug("tone playback cancelled", "error", ctx.Err())
		return ctx.Err()
	case <-timer.C:
		speaker.Clear()
		slog.Warn("tone never reached end of stream, stopping", "waited", duration+pipelineEOSGrace)
		return nil
	}
}

// Stop forces the pipeline to a stopped, rewound state. Safe to call when
// nothing is playing.
func (bb *BeepBackend) Stop() error {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()

	if bb.closed {
		return ErrBackendClosed
	}

	speaker.Clear()
	if bb.track != nil {
		if err := bb.track.streamer.Seek(0); err != nil {
			slog.Debug("rewind after stop failed, dropping track", "error", err)
			bb.track.close()
			bb.track = nil
		}
	}
	bb.playing = false

	slog.Debug("pipeline stopped")
	return nil
}

// Close stops the pipeline and releases the decoded track. The speaker
// itself is process-wide and stays alive. Idempotent.
func (bb *BeepBackend) Close() error {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()

	if bb.closed {
		return nil
	}
	bb.closed = true

	speaker.Clear()
	if bb.track != nil {
		bb.track.close()
		bb.track = nil
	}
	bb.playing = false

	slog.Debug("beep backend closed")
	return nil
}

// Playing reports whether the pipeline is between Play and end-of-stream.
func (bb *BeepBackend) Playing() bool {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()
	return bb.playing && !bb.closed
}

// openTrack decodes the source into a seekable stream. URLs are fetched
// fully first so the track can rewind for replays.
func (bb *BeepBackend) openTrack() (*pipelineTrack, error) {
	var (
		reader io.Reader
		closer io.Closer
	)

	switch bb.source.Kind() {
	case SourceURL:
		rawURL, _ := bb.source.URL()
		resp, err := http.Get(rawURL)
		if err != nil {
			slog.Error("failed to fetch remote sound", "url", rawURL, "error", err)
			return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			slog.Error("remote sound fetch rejected", "url", rawURL, "status", resp.Status)
			return nil, fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rawURL, err)
		}
		slog.Debug("remote sound fetched", "url", rawURL, "bytes", len(data))
		reader = readSeekNopCloser{bytes.NewReader(data)}

	case SourceMemory:
		data, _ := bb.source.Bytes()
		reader = readSeekNopCloser{bytes.NewReader(data)}

	default:
		rc, err := bb.source.AsReader()
		if err != nil {
			return nil, fmt.Errorf("getting audio data from source: %w", err)
		}
		reader = rc
		closer = rc
	}

	streamer, format, err := decodeStream(bb.source.Format(), reader)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	slog.Debug("pipeline track opened",
		"source", bb.source.Describe(),
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels)

	return &pipelineTrack{streamer: streamer, format: format, closer: closer}, nil
}

// decodeStream picks the stream decoder by container extension.
func decodeStream(ext string, r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(ext) {
	case "wav", "wave":
		return wav.Decode(r)
	case "mp3":
		return mp3.Decode(io.NopCloser(r))
	case "flac":
		return flac.Decode(r)
	case "ogg", "oga":
		return vorbis.Decode(io.NopCloser(r))
	}
	return nil, beep.Format{}, fmt.Errorf("%w: %q is not a pipeline container", ErrUnsupportedFormat, ext)
}

// toneStreamer streams the synthesizer's unsigned 8-bit mono buffer as
// stereo float samples.
type toneStreamer struct {
	samples []byte
	pos     int
}

func (t *toneStreamer) Stream(out [][2]float64) (int, bool) {
	if t.pos >= len(t.samples) {
		return 0, false
	}

	n := 0
	for i := range out {
		if t.pos >= len(t.samples) {
			break
		}
		v := (float64(t.samples[t.pos]) - 128) / 128
		out[i][0] = v
		out[i][1] = v
		t.pos++
		n++
	}
	return n, true
}

func (t *toneStreamer) Err() error {
	return nil
}
