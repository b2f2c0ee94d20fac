package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"boombox.click/internal/audio"
	"boombox.click/internal/tone"
)

// fakeBackend records every call so tests can assert call sequences.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	playing bool
	playErr error
	stopErr error
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) callSequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Play(ctx context.Context) error {
	f.record("play")
	if f.playErr != nil {
		return f.playErr
	}
	f.mu.Lock()
	f.playing = true
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Stop() error {
	f.record("stop")
	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
	return f.stopErr
}

func (f *fakeBackend) Close() error {
	f.record("close")
	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// fakeToneBackend adds a native tone path to the fake.
type fakeToneBackend struct {
	fakeBackend
	toneReqs []tone.Request
}

func (f *fakeToneBackend) PlayTone(ctx context.Context, req tone.Request) error {
	f.record("tone")
	f.mu.Lock()
	f.toneReqs = append(f.toneReqs, req)
	f.mu.Unlock()
	return nil
}

// fakeWaiterBackend adds a recorded exit status to the fake.
type fakeWaiterBackend struct {
	fakeBackend
	failed bool
}

func (f *fakeWaiterBackend) Failed() bool {
	return f.failed
}

func TestPlayer_PlayForwardsToBackend(t *testing.T) {
	fake := &fakeBackend{}
	p := newWithBackend(nil, fake, audio.KindSystemCommand)

	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	seq := fake.callSequence()
	if len(seq) != 1 || seq[0] != "play" {
		t.Errorf("expected [play], got %v", seq)
	}
	if !p.Playing() {
		t.Error("expected Playing() true after Play")
	}
}

func TestPlayer_PlayError(t *testing.T) {
	wantErr := errors.New("device gone")
	fake := &fakeBackend{playErr: wantErr}
	p := newWithBackend(nil, fake, audio.KindBeep)

	if err := p.Play(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("expected backend error to surface, got %v", err)
	}
}

func TestPlayer_StopBeforePlay(t *testing.T) {
	fake := &fakeBackend{}
	p := newWithBackend(nil, fake, audio.KindBeep)

	if err := p.Stop(); err != nil {
		t.Errorf("Stop before Play should be a no-op, got: %v", err)
	}
}

func TestPlayer_ReplaySequence(t *testing.T) {
	fake := &fakeBackend{}
	p := newWithBackend(nil, fake, audio.KindBeep)
	ctx := context.Background()

	if err := p.Play(ctx); err != nil {
		t.Fatalf("first Play failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := p.Play(ctx); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	seq := fake.callSequence()
	expected := []string{"play", "stop", "play"}
	if len(seq) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, seq)
	}
	for i, want := range expected {
		if seq[i] != want {
			t.Errorf("call %d: expected %q, got %q", i, want, seq[i])
		}
	}
}

func TestPlayer_CloseIsIdempotent(t *testing.T) {
	fake := &fakeBackend{}
	p := newWithBackend(nil, fake, audio.KindBeep)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	// The backend is closed exactly once.
	closes := 0
	for _, call := range fake.callSequence() {
		if call == "close" {
			closes++
		}
	}
	if closes != 1 {
		t.Errorf("expected 1 backend close, got %d", closes)
	}
}

func TestPlayer_UseAfterClose(t *testing.T) {
	fake := &fakeBackend{}
	p := newWithBackend(nil, fake, audio.KindBeep)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	before := len(fake.callSequence())

	if err := p.Play(context.Background()); !errors.Is(err, audio.ErrBackendClosed) {
		t.Errorf("expected ErrBackendClosed from Play, got %v", err)
	}
	if err := p.Stop(); !errors.Is(err, audio.ErrBackendClosed) {
		t.Errorf("expected ErrBackendClosed from Stop, got %v", err)
	}
	if p.Playing() {
		t.Error("Playing() should be false after Close")
	}

	if after := len(fake.callSequence()); after != before {
		t.Errorf("closed player still reached the backend: %d calls became %d", before, after)
	}
}

func TestPlayer_PlayToneNative(t *testing.T) {
	fake := &fakeToneBackend{}
	p := newWithBackend(nil, fake, audio.KindBeep)

	req := tone.Request{Frequency: 500, Duration: 2 * time.Second, Volume: 0.1}
	if err := p.PlayTone(context.Background(), req); err != nil {
		t.Fatalf("PlayTone failed: %v", err)
	}

	if len(fake.toneReqs) != 1 {
		t.Fatalf("expected 1 tone request, got %d", len(fake.toneReqs))
	}
	if fake.toneReqs[0].Frequency != 500 {
		t.Errorf("expected 500 Hz, got %v", fake.toneReqs[0].Frequency)
	}
}

func TestPlayer_PlayToneAfterClose(t *testing.T) {
	fake := &fakeToneBackend{}
	p := newWithBackend(nil, fake, audio.KindBeep)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	req := tone.Request{Frequency: 500, Duration: 100 * time.Millisecond, Volume: 0.1}
	if err := p.PlayTone(context.Background(), req); !errors.Is(err, audio.ErrBackendClosed) {
		t.Errorf("expected ErrBackendClosed, got %v", err)
	}
}

func TestPlayer_Failed(t *testing.T) {
	t.Run("waiter backend reports recorded status", func(t *testing.T) {
		fake := &fakeWaiterBackend{failed: true}
		p := newWithBackend(nil, fake, audio.KindSystemCommand)

		if !p.Failed() {
			t.Error("expected Failed() true")
		}
	})

	t.Run("in-process backend never fails this way", func(t *testing.T) {
		fake := &fakeBackend{}
		p := newWithBackend(nil, fake, audio.KindBeep)

		if p.Failed() {
			t.Error("expected Failed() false for a backend without exit codes")
		}
	})
}

func TestPlayer_BackendKind(t *testing.T) {
	p := newWithBackend(nil, &fakeBackend{}, audio.KindMalgo)

	if p.Backend() != audio.KindMalgo {
		t.Errorf("expected KindMalgo, got %v", p.Backend())
	}
}

func TestSelectedKindIsStable(t *testing.T) {
	first, firstErr := SelectedKind()
	second, secondErr := SelectedKind()

	if first != second {
		t.Errorf("selection changed between calls: %v then %v", first, second)
	}
	if (firstErr == nil) != (secondErr == nil) {
		t.Errorf("selection error changed between calls: %v then %v", firstErr, secondErr)
	}
}
