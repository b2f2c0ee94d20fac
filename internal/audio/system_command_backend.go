package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
)

// SystemCommandBackend plays a sound by shelling out to an external player
// binary: PowerShell's Media.SoundPlayer on Windows, afplay on macOS, or a
// discovered paplay/aplay elsewhere. It is the last-resort driver on every
// platform.
type SystemCommandBackend struct {
	source  *SoundSource
	opts    PlaybackOptions
	command string

	mutex    sync.Mutex
	cmd      *exec.Cmd
	tempPath string
	playing  bool
	failed   bool
	closed   bool
}

// NewSystemCommandBackend creates a child-process driver using the given
// player command. Alias sources have no meaning to an external player.
func NewSystemCommandBackend(source *SoundSource, opts PlaybackOptions, command string) (*SystemCommandBackend, error) {
	if command == "" {
		return nil, fmt.Errorf("%w: empty player command", ErrBackendCreationFailed)
	}
	switch source.Kind() {
	case SourceAlias:
		return nil, fmt.Errorf("%w: external players cannot play system aliases", ErrBackendCreationFailed)
	case SourceURL:
		return nil, fmt.Errorf("%w: external players cannot stream URLs", ErrBackendCreationFailed)
	}

	slog.Debug("creating system command backend",
		"command", command,
		"source", source.Describe())

	return &SystemCommandBackend{
		source:  source,
		opts:    opts,
		command: command,
	}, nil
}

// Play spawns the player process. When configured to wait it blocks for
// process exit and records whether the exit code was non-zero; the recorded
// flag is read through Failed. When not waiting it starts the process and
// reaps it in the background.
func (scb *SystemCommandBackend) Play(ctx context.Context) error {
	scb.mutex.Lock()
	if scb.closed {
		scb.mutex.Unlock()
		return ErrBackendClosed
	}
	// Restarting while a previous child is still running replaces it.
	scb.terminateLocked()
	scb.mutex.Unlock()

	path, err := scb.soundPath()
	if err != nil {
		return err
	}
	args := playerArgs(scb.command, path)

	slog.Debug("spawning external player",
		"command", scb.command,
		"args", args,
		"wait", scb.opts.Wait)

	if scb.opts.Wait {
		return scb.runAndWait(ctx, args)
	}
	return scb.startBackground(args)
}

// runAndWait blocks for process exit. A non-zero exit code is recorded, not
// returned as an error; failing to spawn at all is an error.
func (scb *SystemCommandBackend) runAndWait(ctx context.Context, args []string) error {
	runCtx := ctx
	if scb.opts.DurationHint > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, scb.opts.DurationHint)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, scb.command, args...)

	scb.mutex.Lock()
	scb.cmd = cmd
	scb.playing = true
	scb.failed = false
	scb.mutex.Unlock()

	err := cmd.Run()

	scb.mutex.Lock()
	scb.cmd = nil
	scb.playing = false
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		scb.failed = exitErr.ExitCode() != 0
		slog.Debug("external player exited",
			"command", scb.command,
			"exit_code", exitErr.ExitCode())
		err = nil
	} else if err == nil {
		scb.failed = false
		slog.Debug("external player completed", "command", scb.command)
	}
	scb.mutex.Unlock()

	if err != nil {
		slog.Error("external player failed to run", "command", scb.command, "error", err)
		return fmt.Errorf("running %s: %w", scb.command, err)
	}
	return nil
}

// startBackground spawns the player and returns immediately; a goroutine
// reaps the child when it exits.
func (scb *SystemCommandBackend) startBackground(args []string) error {
	cmd := exec.Command(scb.command, args...)
	if err := cmd.Start(); err != nil {
		slog.Error("external player failed to start", "command", scb.command, "error", err)
		return fmt.Errorf("starting %s: %w", scb.command, err)
	}

	scb.mutex.Lock()
	scb.cmd = cmd
	scb.playing = true
	scb.failed = false
	scb.mutex.Unlock()

	go func() {
		err := cmd.Wait()

		scb.mutex.Lock()
		if scb.cmd == cmd {
			scb.cmd = nil
			scb.playing = false
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			scb.failed = exitErr.ExitCode() != 0
		}
		scb.mutex.Unlock()

		slog.Debug("background player reaped", "command", scb.command, "error", err)
	}()

	return nil
}

// Stop sends a terminate signal to the running child, if any. Safe to call
// when nothing is playing.
func (scb *SystemCommandBackend) Stop() error {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()

	if scb.closed {
		return ErrBackendClosed
	}

	scb.terminateLocked()
	scb.playing = false
	slog.Debug("system command backend stopped")
	return nil
}

// Close terminates any running child and removes the materialized temp
// file. Idempotent.
func (scb *SystemCommandBackend) Close() error {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()

	if scb.closed {
		return nil
	}

	scb.terminateLocked()
	scb.playing = false
	scb.closed = true

	if scb.tempPath != "" {
		os.Remove(scb.tempPath)
		slog.Debug("temporary sound file removed", "path", scb.tempPath)
		scb.tempPath = ""
	}

	slog.Debug("system command backend closed")
	return nil
}

// Playing reports whether a child player process is running.
func (scb *SystemCommandBackend) Playing() bool {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()
	return scb.playing && !scb.closed
}

// Failed reports whether the most recent waited playback exited non-zero.
func (scb *SystemCommandBackend) Failed() bool {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()
	return scb.failed
}

// terminateLocked signals the current child. Callers hold the mutex.
func (scb *SystemCommandBackend) terminateLocked() {
	if scb.cmd == nil || scb.cmd.Process == nil {
		return
	}

	slog.Debug("terminating external player", "pid", scb.cmd.Process.Pid)
	if runtime.GOOS == "windows" {
		scb.cmd.Process.Kill()
		return
	}
	if err := scb.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		slog.Debug("SIGTERM failed, killing player", "error", err)
		scb.cmd.Process.Kill()
	}
}

// soundPath returns the path handed to the player, materializing in-memory
// sources into a temp file once and reusing it across replays.
func (scb *SystemCommandBackend) soundPath() (string, error) {
	if path, err := scb.source.AsFilePath(); err == nil {
		return path, nil
	}

	scb.mutex.Lock()
	cached := scb.tempPath
	scb.mutex.Unlock()
	if cached != "" {
		return cached, nil
	}

	reader, err := scb.source.AsReader()
	if err != nil {
		slog.Error("source has no playable bytes", "error", err)
		return "", fmt.Errorf("getting audio data from source: %w", err)
	}
	defer reader.Close()

	ext := scb.source.Format()
	if ext == "" {
		ext = "wav"
	}
	tempFile, err := os.CreateTemp("", "boombox-*."+ext)
	if err != nil {
		slog.Error("failed to create temporary file", "error", err)
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := io.Copy(tempFile, reader); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		slog.Error("failed to write temporary sound file", "path", tempPath, "error", err)
		return "", fmt.Errorf("writing temporary sound file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("closing temporary sound file: %w", err)
	}

	slog.Debug("in-memory sound materialized", "path", tempPath)

	scb.mutex.Lock()
	scb.tempPath = tempPath
	scb.mutex.Unlock()
	return tempPath, nil
}

// playerArgs builds the argv tail for the player command. PowerShell wraps
// the synchronous Media.SoundPlayer API; every other player takes the file
// as its last argument.
func playerArgs(command, path string) []string {
	base := strings.ToLower(filepath.Base(command))
	base = strings.TrimSuffix(base, ".exe")

	if base == "powershell" || base == "pwsh" {
		escaped := strings.ReplaceAll(path, "'", "''")
		script := fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", escaped)
		return []string{"-c", script}
	}
	return []string{path}
}
