package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SPEECH_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, EngineVosk, cfg.Recognizer.Engine)
	require.Equal(t, DefaultModelPath, cfg.Recognizer.ModelPath)
	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "0.0.0.0:8000", cfg.Addr())
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  max_concurrent: 2
recognizer:
  engine: whisper
  whisper:
    model_path: /models/ggml-base.en.bin
    args: "--threads 4"
  endpointing:
    silence_dbfs: -40
logging:
  json: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 2, cfg.Server.MaxConcurrent)
	require.Equal(t, 50, cfg.Server.MaxUploadMB)
	require.Equal(t, EngineWhisper, cfg.Recognizer.Engine)
	require.Equal(t, "/models/ggml-base.en.bin", cfg.Recognizer.Whisper.ModelPath)
	require.Equal(t, "--threads 4", cfg.Recognizer.Whisper.Args)
	require.InDelta(t, -40.0, cfg.Recognizer.Endpointing.SilenceDBFS, 0.001)
	require.Equal(t, 2, cfg.Recognizer.Endpointing.HangoverChunks)
	require.True(t, cfg.Logging.JSON)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPEECH_CONFIG", "")
	t.Setenv("SPEECH_ENGINE", "mock")
	t.Setenv("SPEECH_PORT", "9001")
	t.Setenv("SPEECH_MODEL_PATH", "/srv/models/en")
	t.Setenv("OPENAI_API_KEY", "generic")
	t.Setenv("SPEECH_OPENAI_API_KEY", "specific")
	t.Setenv("SPEECH_SILENCE_DBFS", "-38.5")
	t.Setenv("SPEECH_LOG_JSON", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, EngineMock, cfg.Recognizer.Engine)
	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, "/srv/models/en", cfg.Recognizer.ModelPath)
	require.Equal(t, "specific", cfg.Recognizer.OpenAI.APIKey)
	require.InDelta(t, -38.5, cfg.Recognizer.Endpointing.SilenceDBFS, 0.001)
	require.True(t, cfg.Logging.JSON)
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	t.Setenv("SPEECH_CONFIG", "")
	t.Setenv("SPEECH_PORT", "eighty")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid SPEECH_PORT")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Server.Port = 0
	cfg.Server.MaxConcurrent = 0
	cfg.Recognizer.Engine = "kaldi"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.port")
	require.Contains(t, err.Error(), "server.max_concurrent")
	require.Contains(t, err.Error(), `unknown recognizer engine "kaldi"`)
}

func TestValidateEngineRequirements(t *testing.T) {
	t.Parallel()

	whisper := Default()
	whisper.Recognizer.Engine = EngineWhisper
	require.ErrorContains(t, whisper.Validate(), "recognizer.whisper.model_path")

	whisper.Recognizer.Whisper.ModelPath = "ggml-tiny.bin"
	require.NoError(t, whisper.Validate())

	whisper.Recognizer.Endpointing.HangoverChunks = 0
	require.ErrorContains(t, whisper.Validate(), "hangover_chunks")

	mock := Default()
	mock.Recognizer.Engine = EngineMock
	mock.Recognizer.Mock.UtteranceChunks = 0
	require.ErrorContains(t, mock.Validate(), "utterance_chunks")
}
