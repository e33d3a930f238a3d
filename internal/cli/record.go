package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sravani167/speech-service/internal/record"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultRecordingPath = "recorded_audio.wav"

var errDurationNotPositive = errors.New("duration must be greater than 0 seconds")

type recordOptions struct {
	duration     time.Duration
	output       string
	backend      string
	input        string
	format       string
	noTranscribe bool
}

func newRecordCmd(app *appState) *cobra.Command {
	opts := &recordOptions{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone into a WAV file and transcribe it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.duration <= 0 {
				return errDurationNotPositive
			}
			if opts.backend == "" {
				opts.backend = app.cfg.Recording.Backend
			}
			if opts.input == "" {
				opts.input = app.cfg.Recording.Input
			}
			if opts.format == "" {
				opts.format = app.cfg.Recording.Format
			}

			recordFn := app.recordFn
			if recordFn == nil {
				recordFn = app.recordAudio
			}
			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			status := cmd.ErrOrStderr()
			secs := formatSeconds(opts.duration)
			fmt.Fprintf(status, "Recording will be saved to: %s\n", opts.output)
			fmt.Fprintf(status, "Recording duration set to: %s seconds\n", secs)
			fmt.Fprintf(status, "Recording for %s seconds...\n", secs)

			path, err := recordFn(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(status, "Recording complete.")
			fmt.Fprintf(status, "Audio saved to %s\n", path)

			if opts.noTranscribe {
				return nil
			}

			transcript, err := transcribeFn(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transcription: %s\n", transcript)
			if isBlankTranscript(transcript) {
				app.log().Warn(noSpeechHint())
			}
			return nil
		},
	}

	opts.duration = 5 * time.Second
	cmd.Flags().Var((*secondsValue)(&opts.duration), "duration", "Recording duration in seconds (5, 2.5) or with a unit (5s, 1m30s)")
	cmd.Flags().StringVar(&opts.output, "output", defaultRecordingPath, "Output WAV file path")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Recording backend: auto|pw-record|arecord|ffmpeg")
	cmd.Flags().StringVar(&opts.input, "input", "", "Input device (run \"speech-service devices\" to list); e.g. node-ID (pw-record), hw:1,0 (arecord), :1 (ffmpeg)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Input format for the ffmpeg backend (pulse|alsa)")
	cmd.Flags().BoolVar(&opts.noTranscribe, "no-transcribe", false, "Only record; skip transcription")
	bindProgressFlag(cmd, app)

	return cmd
}

func (a *appState) recordAudio(ctx context.Context, opts recordOptions) (string, error) {
	if opts.duration <= 0 {
		return "", errDurationNotPositive
	}

	outPath := opts.output
	if outPath == "" {
		outPath = defaultRecordingPath
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	stopProgress := startDurationProgress(a.progressEnabled(), "Recording", opts.duration)
	defer stopProgress()

	backend, err := record.RecordWithFallback(ctx, opts.backend, record.Config{
		OutputPath: outPath,
		Duration:   opts.duration,
		SampleRate: 16000,
		Channels:   1,
		Input:      opts.input,
		Format:     opts.format,
		Logger:     a.log(),
	})
	if err != nil {
		return "", err
	}

	a.log().Info("recording finished", zap.String("backend", backend), zap.String("path", outPath))
	return outPath, nil
}

// secondsValue is a duration flag that reads a bare number as seconds.
type secondsValue time.Duration

func (v *secondsValue) Set(s string) error {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > math.MaxInt64/float64(time.Second) {
			return fmt.Errorf("invalid duration %q", s)
		}
		*v = secondsValue(time.Duration(secs * float64(time.Second)))
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: use seconds (5) or a unit (5s)", s)
	}
	*v = secondsValue(d)
	return nil
}

func (v *secondsValue) String() string { return time.Duration(*v).String() }

func (v *secondsValue) Type() string { return "duration" }

// formatSeconds renders d the way a person would type it: 5, 2.5, 0.25.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
