// Package transcribe streams validated WAV audio through a recognizer
// session and assembles the transcript.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sravani167/speech-service/internal/audio"
	"github.com/sravani167/speech-service/internal/metrics"
	"github.com/sravani167/speech-service/internal/recognizer"
	"go.uber.org/zap"
)

// ChunkFrames is the number of frames fed to the recognizer per call.
const ChunkFrames = 4000

// Engine is safe for concurrent use; each call gets its own stream and session.
type Engine struct {
	recognizer  recognizer.Capability
	constraints audio.FormatConstraints
	chunkFrames int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithConstraints(c audio.FormatConstraints) Option {
	return func(e *Engine) { e.constraints = c }
}

func WithChunkFrames(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkFrames = n
		}
	}
}

func New(capability recognizer.Capability, opts ...Option) *Engine {
	e := &Engine{
		recognizer:  capability,
		constraints: audio.DefaultConstraints(),
		chunkFrames: ChunkFrames,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcribe validates the WAV file at path and transcribes it.
func (e *Engine) Transcribe(ctx context.Context, path string) (string, error) {
	stream, err := audio.OpenWith(path, e.constraints)
	if err != nil {
		if verr, ok := audio.AsValidation(err); ok {
			e.metrics.Observe(e.recognizer.Name(), metrics.OutcomeRejected, 0)
			e.logger.Debug("audio rejected", zap.String("path", path), zap.Stringer("kind", verr.Kind))
		} else {
			e.metrics.Observe(e.recognizer.Name(), metrics.OutcomeFailed, 0)
		}
		return "", err
	}
	return e.TranscribeStream(ctx, stream)
}

// TranscribeStream consumes stream and closes it. The transcript is the
// space-joined text of every utterance boundary followed by the final result.
func (e *Engine) TranscribeStream(ctx context.Context, stream *audio.Stream) (string, error) {
	defer stream.Close()

	done := e.metrics.TrackInFlight()
	defer done()

	start := time.Now()
	engine := e.recognizer.Name()
	format := stream.Format

	text, boundaries, err := e.run(ctx, stream)
	if err != nil {
		e.metrics.Observe(engine, metrics.OutcomeFailed, 0)
		e.logger.Warn("transcription failed", zap.String("engine", engine), zap.Error(err))
		return "", err
	}

	seconds := float64(format.Frames) / float64(format.SampleRate)
	e.metrics.Observe(engine, metrics.OutcomeOK, seconds)
	e.logger.Info("transcription complete",
		zap.String("engine", engine),
		zap.Int("sample_rate", format.SampleRate),
		zap.Float64("audio_seconds", seconds),
		zap.Int("utterances", boundaries+1),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

func (e *Engine) run(ctx context.Context, stream *audio.Stream) (string, int, error) {
	session, err := e.recognizer.NewSession(ctx, stream.Format.SampleRate)
	if err != nil {
		return "", 0, &EngineError{Op: "create session", Err: err}
	}
	defer session.Close()

	var segments []string
	for {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		chunk, err := stream.ReadFrames(e.chunkFrames)
		if len(chunk) == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				break
			}
			return "", 0, fmt.Errorf("read audio: %w", err)
		}
		if err != nil {
			return "", 0, fmt.Errorf("read audio: %w", err)
		}

		boundary, err := session.AcceptWaveform(chunk)
		if err != nil {
			return "", 0, &EngineError{Op: "accept waveform", Err: err}
		}
		if !boundary {
			continue
		}

		res, err := session.Result()
		if err != nil {
			return "", 0, &EngineError{Op: "result", Err: err}
		}
		segments = append(segments, res.Text)
	}

	final, err := session.FinalResult()
	if err != nil {
		return "", 0, &EngineError{Op: "final result", Err: err}
	}
	boundaries := len(segments)
	segments = append(segments, final.Text)

	return strings.Join(segments, " "), boundaries, nil
}
