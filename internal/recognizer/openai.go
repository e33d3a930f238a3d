package recognizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sravani167/speech-service/internal/audio"
	"go.uber.org/zap"
)

type OpenAIOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	Language    string
	HTTPClient  *http.Client
	Endpointing Endpointing
}

// OpenAIEngine sends each utterance to an OpenAI-compatible transcription
// endpoint.
type OpenAIEngine struct {
	client   *openai.Client
	model    string
	language string
	endpoint Endpointing
	logger   *zap.Logger
}

func NewOpenAI(opts OpenAIOptions, logger *zap.Logger) (*OpenAIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// self-hosted whisper.cpp servers accept unauthenticated requests
	if strings.TrimSpace(opts.APIKey) == "" && (opts.BaseURL == "" || strings.Contains(opts.BaseURL, "api.openai.com")) {
		return nil, errors.New("missing OpenAI API key; set OPENAI_API_KEY or SPEECH_OPENAI_API_KEY")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}

	model := opts.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAIEngine{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: strings.TrimSpace(opts.Language),
		endpoint: opts.Endpointing,
		logger:   logger,
	}, nil
}

func (o *OpenAIEngine) Name() string { return "openai" }

func (o *OpenAIEngine) NewSession(ctx context.Context, sampleRate int) (Session, error) {
	return newUtteranceSession(ctx, sampleRate, o.endpoint, o.transcribeUtterance), nil
}

func (o *OpenAIEngine) Close() error { return nil }

func (o *OpenAIEngine) transcribeUtterance(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	wavPath, err := audio.WriteTempPCM16("", "speech-utterance-*.wav", pcm, sampleRate)
	if err != nil {
		return "", err
	}
	defer os.Remove(wavPath)

	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatJSON,
	}
	if o.language != "" && o.language != "auto" {
		req.Language = o.language
	}

	start := time.Now()
	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	o.logger.Debug("openai utterance transcribed",
		zap.String("model", o.model),
		zap.Int("bytes", len(pcm)),
		zap.Duration("latency", time.Since(start)),
	)

	return resp.Text, nil
}
