// Package recognizer adapts speech recognition engines to a per-call session
// protocol: feed PCM chunks, collect a result at every utterance boundary and
// flush a final result at the end of the stream.
package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sravani167/speech-service/internal/config"
	"go.uber.org/zap"
)

var (
	ErrVoskUnavailable = errors.New("vosk support is not compiled into this binary; rebuild with -tags vosk or choose another engine")
	errSessionClosed   = errors.New("recognizer session is closed")
)

// Result is one recognized utterance.
type Result struct {
	Text string `json:"text"`
}

// ParseResult decodes an engine's JSON result. A missing text field yields an
// empty Text.
func ParseResult(raw string) (Result, error) {
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Result{}, fmt.Errorf("decode recognizer result: %w", err)
	}
	return res, nil
}

// Session is a stateful decoder bound to one sample rate. Sessions are owned by
// a single transcription call and are not safe for concurrent use.
type Session interface {
	// AcceptWaveform feeds raw little-endian PCM. It reports true when an
	// utterance boundary was reached and Result holds the finished utterance.
	AcceptWaveform(chunk []byte) (bool, error)
	Result() (Result, error)
	// FinalResult flushes buffered audio and returns the last utterance.
	FinalResult() (Result, error)
	Close() error
}

// Capability constructs sessions. Implementations share read-only model state
// across sessions and are safe for concurrent NewSession calls.
type Capability interface {
	Name() string
	NewSession(ctx context.Context, sampleRate int) (Session, error)
	Close() error
}

// New builds the engine selected by cfg.Engine.
func New(cfg config.RecognizerConfig, logger *zap.Logger) (Capability, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	endpointing := Endpointing{
		SilenceDBFS:    cfg.Endpointing.SilenceDBFS,
		HangoverChunks: cfg.Endpointing.HangoverChunks,
	}

	switch cfg.Engine {
	case config.EngineVosk:
		return NewVosk(cfg.ModelPath, logger)
	case config.EngineWhisper:
		return NewWhisper(WhisperOptions{
			Executable:  cfg.Whisper.Executable,
			ModelPath:   cfg.Whisper.ModelPath,
			Language:    cfg.Language,
			ExtraArgs:   cfg.Whisper.Args,
			Endpointing: endpointing,
		}, logger)
	case config.EngineOpenAI:
		return NewOpenAI(OpenAIOptions{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			Language:    cfg.Language,
			Endpointing: endpointing,
		}, logger)
	case config.EngineMock:
		return NewMock(cfg.Mock.UtteranceChunks), nil
	default:
		return nil, fmt.Errorf("unknown recognizer engine %q", cfg.Engine)
	}
}
