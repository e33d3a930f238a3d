package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EngineVosk    = "vosk"
	EngineWhisper = "whisper"
	EngineOpenAI  = "openai"
	EngineMock    = "mock"

	// DefaultModelPath is where the Vosk model is looked up relative to the
	// working directory.
	DefaultModelPath = "models/en-us"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Recording  RecordingConfig  `yaml:"recording"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Bind               string `yaml:"bind"`
	Port               int    `yaml:"port"`
	MaxUploadMB        int    `yaml:"max_upload_mb"`
	MaxConcurrent      int    `yaml:"max_concurrent"`
	UploadDir          string `yaml:"upload_dir"`
	ReadTimeoutSec     int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int    `yaml:"write_timeout_sec"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

type RecognizerConfig struct {
	Engine      string            `yaml:"engine"`
	ModelPath   string            `yaml:"model_path"`
	Language    string            `yaml:"language"`
	Whisper     WhisperConfig     `yaml:"whisper"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Endpointing EndpointingConfig `yaml:"endpointing"`
	Mock        MockConfig        `yaml:"mock"`
}

type WhisperConfig struct {
	Executable string `yaml:"executable"`
	ModelPath  string `yaml:"model_path"`
	Args       string `yaml:"args"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// EndpointingConfig controls how the whisper and openai engines split audio
// into utterances.
type EndpointingConfig struct {
	SilenceDBFS    float64 `yaml:"silence_dbfs"`
	HangoverChunks int     `yaml:"hangover_chunks"`
}

type MockConfig struct {
	UtteranceChunks int `yaml:"utterance_chunks"`
}

type RecordingConfig struct {
	Backend string `yaml:"backend"`
	Input   string `yaml:"input"`
	Format  string `yaml:"format"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:               "0.0.0.0",
			Port:               8000,
			MaxUploadMB:        50,
			MaxConcurrent:      8,
			ReadTimeoutSec:     60,
			WriteTimeoutSec:    300,
			ShutdownTimeoutSec: 30,
		},
		Recognizer: RecognizerConfig{
			Engine:    EngineVosk,
			ModelPath: DefaultModelPath,
			Language:  "en",
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "whisper-1",
			},
			Endpointing: EndpointingConfig{
				SilenceDBFS:    -45,
				HangoverChunks: 2,
			},
			Mock: MockConfig{
				UtteranceChunks: 4,
			},
		},
		Recording: RecordingConfig{
			Backend: "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and SPEECH_* environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("SPEECH_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	setString(&cfg.Server.Bind, "SPEECH_BIND")
	setString(&cfg.Server.UploadDir, "SPEECH_UPLOAD_DIR")
	errs = append(errs,
		setInt(&cfg.Server.Port, "SPEECH_PORT"),
		setInt(&cfg.Server.MaxUploadMB, "SPEECH_MAX_UPLOAD_MB"),
		setInt(&cfg.Server.MaxConcurrent, "SPEECH_MAX_CONCURRENT"),
	)

	setString(&cfg.Recognizer.Engine, "SPEECH_ENGINE")
	setString(&cfg.Recognizer.ModelPath, "SPEECH_MODEL_PATH")
	setString(&cfg.Recognizer.Language, "SPEECH_LANGUAGE")
	setString(&cfg.Recognizer.Whisper.Executable, "SPEECH_WHISPER_PATH")
	setString(&cfg.Recognizer.Whisper.ModelPath, "SPEECH_WHISPER_MODEL")
	setString(&cfg.Recognizer.Whisper.Args, "SPEECH_WHISPER_ARGS")
	setString(&cfg.Recognizer.OpenAI.BaseURL, "SPEECH_OPENAI_BASE_URL")
	setString(&cfg.Recognizer.OpenAI.Model, "SPEECH_OPENAI_MODEL")
	setString(&cfg.Recognizer.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Recognizer.OpenAI.APIKey, "SPEECH_OPENAI_API_KEY")
	errs = append(errs, setFloat(&cfg.Recognizer.Endpointing.SilenceDBFS, "SPEECH_SILENCE_DBFS"))

	setString(&cfg.Recording.Backend, "SPEECH_RECORD_BACKEND")
	setString(&cfg.Recording.Input, "SPEECH_RECORD_INPUT")

	setString(&cfg.Logging.Level, "SPEECH_LOG_LEVEL")
	errs = append(errs, setBool(&cfg.Logging.JSON, "SPEECH_LOG_JSON"))

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Server.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("server.max_concurrent must be positive, got %d", c.Server.MaxConcurrent))
	}

	switch c.Recognizer.Engine {
	case EngineVosk:
		if strings.TrimSpace(c.Recognizer.ModelPath) == "" {
			errs = append(errs, errors.New("recognizer.model_path is required for the vosk engine"))
		}
	case EngineWhisper:
		if strings.TrimSpace(c.Recognizer.Whisper.ModelPath) == "" {
			errs = append(errs, errors.New("recognizer.whisper.model_path is required for the whisper engine"))
		}
	case EngineOpenAI:
		if strings.TrimSpace(c.Recognizer.OpenAI.BaseURL) == "" {
			errs = append(errs, errors.New("recognizer.openai.base_url is required for the openai engine"))
		}
	case EngineMock:
		if c.Recognizer.Mock.UtteranceChunks <= 0 {
			errs = append(errs, fmt.Errorf("recognizer.mock.utterance_chunks must be positive, got %d", c.Recognizer.Mock.UtteranceChunks))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown recognizer engine %q (known engines: %s)", c.Recognizer.Engine, strings.Join(Engines(), ", ")))
	}

	if c.Recognizer.Engine == EngineWhisper || c.Recognizer.Engine == EngineOpenAI {
		if c.Recognizer.Endpointing.HangoverChunks <= 0 {
			errs = append(errs, fmt.Errorf("recognizer.endpointing.hangover_chunks must be positive, got %d", c.Recognizer.Endpointing.HangoverChunks))
		}
	}

	return errors.Join(errs...)
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

func Engines() []string {
	return []string{EngineMock, EngineOpenAI, EngineVosk, EngineWhisper}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
