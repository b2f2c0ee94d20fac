package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"boombox.click/internal/audio"
	"boombox.click/internal/config"
	"boombox.click/internal/player"
	"boombox.click/internal/tone"
)

const Version = "1.0.0"

// Extensions tried when a sound argument names no existing file and
// carries no extension of its own.
var soundExtensions = []string{"wav", "mp3", "aiff", "ogg", "flac"}

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	configManager    *config.ConfigManager
	terminalDetector TerminalDetector
	fs               afero.Fs
}

// NewCLI creates a new CLI instance
func NewCLI() *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:     "boombox [sound-file]",
		Short:   "Cross-platform sound playback and tone synthesis",
		Long:    "Boombox plays a sound file through the best available audio backend, demonstrates stop and replay, and finishes with a synthesized tone.",
		Args:    cobra.MaximumNArgs(1),
		Version: Version,
		RunE:    runDemoE,
	}

	rootCmd.Flags().Bool("debug", false, "Enable debug logging")

	return &CLI{
		rootCmd:          rootCmd,
		configManager:    nil, // Lazy initialization - only create when needed
		terminalDetector: nil, // Lazy initialization - only create when needed
		fs:               nil, // Lazy initialization - only create when needed
	}
}

// contextWithCLI stores CLI instance in context for command handlers
func contextWithCLI(cli *CLI) context.Context {
	return context.WithValue(context.Background(), cliContextKey{}, cli)
}

// cliFromContext extracts CLI instance from context
func cliFromContext(ctx context.Context) *CLI {
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

type cliContextKey struct{}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.Debug("CLI run started", "args", args)

	c.initializeSystems()

	// Configure cobra to use the provided I/O streams
	c.rootCmd.SetArgs(args[1:]) // Skip program name
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	// Store CLI instance for access in command handlers
	c.rootCmd.SetContext(contextWithCLI(c))

	// Execute cobra command
	if err := c.rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}

	return 0
}

// initializeSystems lazily initializes CLI components when actually needed
func (c *CLI) initializeSystems() {
	if c.configManager == nil {
		c.configManager = config.NewConfigManager()
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
}

// runDemoE runs the playback demonstration: play, stop, replay, tone
func runDemoE(cmd *cobra.Command, args []string) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		slog.Error("CLI instance not found in context")
		return fmt.Errorf("CLI instance not found in context")
	}

	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}

	setupLogging(cfg, debug, cmd.ErrOrStderr())

	soundPath, err := cli.resolveSoundPath(args, cfg)
	if err != nil {
		cmd.PrintErrf("Error: %v\n", err)
		return err
	}

	return cli.runDemo(cmd, cfg, soundPath)
}

// loadAndValidateConfig loads configuration, applies environment overrides, and validates
func loadAndValidateConfig(cmd *cobra.Command, cli *CLI) (*config.Config, error) {
	cfg, err := cli.configManager.LoadConfig()
	if err != nil {
		cmd.PrintErrf("Error loading config: %v\n", err)
		slog.Error("config load failed", "error", err)
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	// Apply environment overrides
	cfg = cli.configManager.ApplyEnvironmentOverrides(cfg)

	// Validate final configuration
	err = cli.configManager.ValidateConfig(cfg)
	if err != nil {
		cmd.PrintErrf("Error: invalid configuration: %v\n", err)
		slog.Error("config validation failed", "error", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolveSoundPath decides what to play: the positional argument, the
// configured default sound, or the platform example sound.
func (c *CLI) resolveSoundPath(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return resolveSoundArgument(c.fs, args[0]), nil
	}

	if cfg.DefaultSound != "" {
		slog.Debug("using configured default sound", "path", cfg.DefaultSound)
		return cfg.DefaultSound, nil
	}

	path, err := DefaultSoundPath(c.fs)
	if err != nil {
		return "", err
	}

	slog.Debug("using platform default sound", "path", path)
	return path, nil
}

// resolveSoundArgument tries extension resolution for bare names like
// "chime" before handing the path to the source guard as-is.
func resolveSoundArgument(fsys afero.Fs, arg string) string {
	if audio.IsURL(arg) {
		return arg
	}

	if info, err := fsys.Stat(arg); err == nil && !info.IsDir() {
		return arg
	}

	if filepath.Ext(arg) == "" {
		resolver := audio.NewFileResolver(fsys, soundExtensions)
		if resolved, err := resolver.ResolveWithExtensions(arg); err == nil {
			slog.Debug("sound argument resolved by extension", "argument", arg, "resolved", resolved)
			return resolved
		}
	}

	// Let source construction report the precise failure.
	return arg
}

// runDemo runs the scripted playback sequence against a single player
func (c *CLI) runDemo(cmd *cobra.Command, cfg *config.Config, soundPath string) error {
	ctx := cmd.Context()

	kind := audio.KindAuto
	if cfg.Backend != "" {
		parsed, err := audio.ParseBackendKind(cfg.Backend)
		if err != nil {
			return fmt.Errorf("invalid backend %q: %w", cfg.Backend, err)
		}
		kind = parsed
	}

	p, err := player.New(soundPath, player.Options{Wait: true, Backend: kind})
	if err != nil {
		cmd.PrintErrf("Error: cannot play %s: %v\n", soundPath, err)
		return fmt.Errorf("cannot play %s: %w", soundPath, err)
	}
	defer p.Close()

	interactive := c.isInteractiveTerminal(int(os.Stdout.Fd()))
	progress := func(format string, args ...interface{}) {
		if interactive {
			cmd.Printf(format+"\n", args...)
		}
	}

	slog.Info("demo starting", "sound", soundPath, "backend", p.Backend().String())

	progress("playing %s (%s backend)", soundPath, p.Backend())
	if err := c.playOnce(ctx, p, soundPath); err != nil {
		cmd.PrintErrf("Error playing sound: %v\n", err)
		return err
	}

	time.Sleep(500 * time.Millisecond)

	progress("stopping")
	if err := p.Stop(); err != nil {
		cmd.PrintErrf("Error stopping sound: %v\n", err)
		return fmt.Errorf("stopping playback: %w", err)
	}

	time.Sleep(1 * time.Second)

	progress("replaying %s", soundPath)
	if err := c.playOnce(ctx, p, soundPath); err != nil {
		cmd.PrintErrf("Error replaying sound: %v\n", err)
		return err
	}

	time.Sleep(2 * time.Second)

	progress("playing a 500 Hz tone for 2s")
	req := tone.Request{Frequency: 500, Duration: 2 * time.Second, Volume: cfg.Volume}
	if err := p.PlayTone(ctx, req); err != nil {
		if errors.Is(err, audio.ErrToneUnavailable) {
			slog.Warn("tone synthesis unavailable", "backend", p.Backend().String(), "error", err)
			progress("tone synthesis unavailable on this backend")
		} else {
			cmd.PrintErrf("Error playing tone: %v\n", err)
			return fmt.Errorf("playing tone: %w", err)
		}
	}

	if runtime.GOOS == "windows" {
		progress("playing the SystemHand alias")
		if err := c.playAlias(ctx, "SystemHand", kind); err != nil {
			slog.Warn("system alias playback failed", "alias", "SystemHand", "error", err)
		}
	}

	slog.Info("demo finished", "sound", soundPath)
	return nil
}

// playOnce plays the whole sound and checks the recorded outcome for
// backends that report exit status instead of returning errors.
func (c *CLI) playOnce(ctx context.Context, p *player.Player, soundPath string) error {
	if err := p.Play(ctx); err != nil {
		return fmt.Errorf("playing %s: %w", soundPath, err)
	}
	if p.Failed() {
		return fmt.Errorf("external player reported failure for %s", soundPath)
	}
	return nil
}

// playAlias plays a named system sound through a dedicated player
func (c *CLI) playAlias(ctx context.Context, name string, kind audio.BackendKind) error {
	alias, err := player.NewAlias(name, player.Options{Wait: true, Backend: kind})
	if err != nil {
		return err
	}
	defer alias.Close()

	return alias.Play(ctx)
}
