package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Precondition errors raised by source verification. These are construction
// failures and are never retried.
var (
	ErrNotFound         = errors.New("sound file not found")
	ErrPermissionDenied = errors.New("sound file not readable")
	ErrEmptyFile        = errors.New("sound file is empty")
)

// Errors for source access
var (
	ErrNotSupported = errors.New("operation not supported by this source")
	ErrSourceClosed = errors.New("audio source is closed")
)

// SourceType discriminates the four kinds of sound source.
type SourceType int

const (
	// SourceFile is a sound backed by a verified filesystem path.
	SourceFile SourceType = iota
	// SourceMemory is a sound held in an in-memory byte buffer.
	SourceMemory
	// SourceAlias names an OS-defined system sound rather than a path.
	SourceAlias
	// SourceURL is an http(s) location passed through to a backend that can
	// stream it.
	SourceURL
)

func (t SourceType) String() string {
	switch t {
	case SourceFile:
		return "file"
	case SourceMemory:
		return "memory"
	case SourceAlias:
		return "alias"
	case SourceURL:
		return "url"
	}
	return "unknown"
}

// SoundSource is the one thing a Player plays: a verified file path, an
// in-memory buffer, a system alias, or an http(s) URL. File sources are
// verified exactly once at construction; the check-then-use gap between
// verification and playback is a known, accepted race. Aliases and URLs are
// not filesystem paths and skip verification.
type SoundSource struct {
	kind   SourceType
	fsys   afero.Fs
	path   string
	data   []byte
	format string
	alias  string
	url    string
}

// VerifySource resolves path to an absolute path and checks that it names an
// existing, readable, non-empty regular file. It returns the absolute path,
// or ErrNotFound, ErrPermissionDenied or ErrEmptyFile. One-shot precondition
// check; no retries.
func VerifySource(fsys afero.Fs, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		slog.Error("cannot resolve sound path", "path", path, "error", err)
		return "", fmt.Errorf("resolving %q: %w", path, err)
	}

	slog.Debug("verifying sound source", "path", abs)

	info, err := fsys.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Error("sound file does not exist", "path", abs)
			return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		slog.Error("cannot stat sound file", "path", abs, "error", err)
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		slog.Error("sound path is a directory", "path", abs)
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, abs)
	}

	f, err := fsys.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			slog.Error("sound file is not readable", "path", abs)
			return "", fmt.Errorf("%w: %s", ErrPermissionDenied, abs)
		}
		slog.Error("cannot open sound file", "path", abs, "error", err)
		return "", fmt.Errorf("open %s: %w", abs, err)
	}
	f.Close()

	if info.Size() == 0 {
		slog.Error("sound file is empty", "path", abs)
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, abs)
	}

	slog.Debug("sound source verified", "path", abs, "size", info.Size())
	return abs, nil
}

// NewFileSource verifies path and returns a file-backed source holding the
// absolute path.
func NewFileSource(fsys afero.Fs, path string) (*SoundSource, error) {
	abs, err := VerifySource(fsys, path)
	if err != nil {
		return nil, err
	}
	slog.Debug("creating file source", "path", abs)
	return &SoundSource{kind: SourceFile, fsys: fsys, path: abs}, nil
}

// NewMemorySource returns a source over an in-memory buffer. The format hint
// names the container ("wav", "mp3", ...) for backends that need to pick a
// decoder or a temp-file extension. Empty buffers are rejected the same way
// empty files are.
func NewMemorySource(data []byte, format string) (*SoundSource, error) {
	if len(data) == 0 {
		slog.Error("in-memory sound buffer is empty")
		return nil, fmt.Errorf("%w: in-memory buffer", ErrEmptyFile)
	}
	slog.Debug("creating memory source", "bytes", len(data), "format", format)
	return &SoundSource{kind: SourceMemory, data: data, format: format}, nil
}

// NewAliasSource returns a source naming an OS system sound. Aliases are not
// filesystem paths, so no verification applies.
func NewAliasSource(name string) (*SoundSource, error) {
	if name == "" {
		return nil, errors.New("alias name is empty")
	}
	slog.Debug("creating alias source", "alias", name)
	return &SoundSource{kind: SourceAlias, alias: name}, nil
}

// NewURLSource returns a source for an http(s) location. The URL is handed
// to the backend unchanged; only the streaming pipeline can play one.
func NewURLSource(rawURL string) (*SoundSource, error) {
	if !IsURL(rawURL) {
		return nil, fmt.Errorf("not an http(s) URL: %s", rawURL)
	}
	slog.Debug("creating URL source", "url", rawURL)
	return &SoundSource{kind: SourceURL, url: rawURL}, nil
}

// IsURL reports whether s names an http(s) location rather than a file.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Kind returns the source discriminator.
func (s *SoundSource) Kind() SourceType {
	return s.kind
}

// AsFilePath returns the verified absolute path for file sources and
// ErrNotSupported otherwise.
func (s *SoundSource) AsFilePath() (string, error) {
	if s.kind != SourceFile {
		return "", ErrNotSupported
	}
	return s.path, nil
}

// AsReader returns a reader over the sound bytes. The caller closes it.
// Alias sources have no byte representation.
func (s *SoundSource) AsReader() (io.ReadCloser, error) {
	switch s.kind {
	case SourceFile:
		f, err := s.fsys.Open(s.path)
		if err != nil {
			slog.Error("failed to open sound file", "path", s.path, "error", err)
			return nil, fmt.Errorf("open %s: %w", s.path, err)
		}
		return f, nil
	case SourceMemory:
		return io.NopCloser(bytes.NewReader(s.data)), nil
	}
	return nil, ErrNotSupported
}

// Bytes returns the raw buffer of a memory source and ErrNotSupported for
// the other kinds.
func (s *SoundSource) Bytes() ([]byte, error) {
	if s.kind != SourceMemory {
		return nil, ErrNotSupported
	}
	return s.data, nil
}

// AliasName returns the system sound name of an alias source.
func (s *SoundSource) AliasName() (string, error) {
	if s.kind != SourceAlias {
		return "", ErrNotSupported
	}
	return s.alias, nil
}

// URL returns the http(s) location of a URL source.
func (s *SoundSource) URL() (string, error) {
	if s.kind != SourceURL {
		return "", ErrNotSupported
	}
	return s.url, nil
}

// Format returns the container hint: the lowercased file extension without
// the dot for file and URL sources, the explicit hint for memory sources,
// empty for aliases.
func (s *SoundSource) Format() string {
	switch s.kind {
	case SourceFile:
		return extFormat(s.path)
	case SourceMemory:
		return s.format
	case SourceURL:
		return extFormat(s.url)
	}
	return ""
}

func extFormat(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// Describe returns a short label for logs.
func (s *SoundSource) Describe() string {
	switch s.kind {
	case SourceFile:
		return s.path
	case SourceMemory:
		return fmt.Sprintf("memory(%d bytes)", len(s.data))
	case SourceAlias:
		return "alias:" + s.alias
	case SourceURL:
		return s.url
	}
	return "unknown"
}
