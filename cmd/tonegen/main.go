package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	wav "github.com/youpy/go-wav"

	"boombox.click/internal/tone"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newToneGenCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newToneGenCommand() *cobra.Command {
	var (
		freq    float64
		ms      int
		volume  float64
		rate    int
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "tonegen",
		Short: "Render a sine tone to a WAV file",
		Long:  "Tonegen synthesizes a sine tone as unsigned 8-bit mono PCM and writes it to a WAV file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := tone.Request{
				Frequency:  freq,
				Duration:   time.Duration(ms) * time.Millisecond,
				Volume:     volume,
				SampleRate: rate,
			}

			if err := writeToneFile(req, outPath); err != nil {
				cmd.PrintErrf("Error: %v\n", err)
				return err
			}

			cmd.Printf("wrote %g Hz tone (%dms) to %s\n", freq, ms, outPath)
			return nil
		},
	}

	cmd.Flags().Float64Var(&freq, "freq", 440, "Tone frequency in Hz")
	cmd.Flags().IntVar(&ms, "ms", 500, "Tone duration in milliseconds")
	cmd.Flags().Float64Var(&volume, "volume", 0.5, "Tone amplitude (0.0 to 1.0)")
	cmd.Flags().IntVar(&rate, "rate", tone.DefaultSampleRate, "Sample rate in Hz")
	cmd.Flags().StringVarP(&outPath, "out", "o", "tone.wav", "Output WAV file")

	return cmd
}

// writeToneFile synthesizes the request and writes it as an 8-bit mono WAV
func writeToneFile(req tone.Request, outPath string) error {
	buf, err := tone.Synthesize(req)
	if err != nil {
		return fmt.Errorf("synthesizing tone: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}

	req = req.WithDefaults()
	writer := wav.NewWriter(f, uint32(len(buf)), 1, uint32(req.SampleRate), 8)
	if _, err := writer.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}

	slog.Debug("tone file written",
		"path", outPath,
		"frequency_hz", req.Frequency,
		"duration", req.Duration,
		"sample_rate", req.SampleRate,
		"bytes", len(buf))

	return nil
}
