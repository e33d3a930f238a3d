package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/sravani167/speech-service/internal/audio"
	"go.uber.org/zap"
)

type WhisperOptions struct {
	// Executable overrides whisper-cli discovery.
	Executable  string
	ModelPath   string
	Language    string
	ExtraArgs   string
	Endpointing Endpointing
}

// WhisperEngine shells out to whisper.cpp once per utterance.
type WhisperEngine struct {
	Executable string
	ModelPath  string
	Language   string
	Args       []string
	Endpoint   Endpointing
	Logger     *zap.Logger
}

func NewWhisper(opts WhisperOptions, logger *zap.Logger) (*WhisperEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	modelPath := strings.TrimSpace(opts.ModelPath)
	if modelPath == "" {
		return nil, errors.New("whisper model path is required")
	}
	if info, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", modelPath, err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("whisper model path %s is a directory", modelPath)
	}

	args, err := shellwords.Parse(opts.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parse whisper args: %w", err)
	}

	exe, err := resolveWhisperExecutable(opts.Executable)
	if err != nil {
		return nil, err
	}

	return &WhisperEngine{
		Executable: exe,
		ModelPath:  modelPath,
		Language:   strings.TrimSpace(opts.Language),
		Args:       args,
		Endpoint:   opts.Endpointing,
		Logger:     logger,
	}, nil
}

func (w *WhisperEngine) Name() string { return "whisper" }

func (w *WhisperEngine) NewSession(ctx context.Context, sampleRate int) (Session, error) {
	return newUtteranceSession(ctx, sampleRate, w.Endpoint, w.transcribeUtterance), nil
}

func (w *WhisperEngine) Close() error { return nil }

func (w *WhisperEngine) transcribeUtterance(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	wavPath, err := audio.WriteTempPCM16("", "speech-utterance-*.wav", pcm, sampleRate)
	if err != nil {
		return "", err
	}
	defer os.Remove(wavPath)

	outBase := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	txtOut := outBase + ".txt"
	defer os.Remove(txtOut)

	args := []string{"-m", w.ModelPath, "-f", wavPath, "-nt", "-otxt", "-of", outBase}
	if w.Language != "" && w.Language != "auto" {
		args = append(args, "-l", w.Language)
	}
	args = append(args, w.Args...)

	cmd := exec.CommandContext(ctx, w.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	w.Logger.Debug("running whisper", zap.String("engine", w.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return "", fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", w.Executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return "", errors.New("whisper engine crashed with an illegal CPU instruction; " +
				"your CPU may lack required instruction set extensions; " +
				"set SPEECH_WHISPER_PATH to a whisper-cli binary built for your CPU")
		}
		return "", fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	}

	content, err := os.ReadFile(txtOut)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}

func resolveWhisperExecutable(override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		if err := ensureExecutable(override); err != nil {
			return "", fmt.Errorf("whisper executable is not usable: %w", err)
		}
		return override, nil
	}

	if self, err := os.Executable(); err == nil {
		for _, candidate := range EnginePathCandidates(self) {
			if ensureExecutable(candidate) == nil {
				return candidate, nil
			}
		}
	}

	for _, name := range []string{engineBinaryName(), "whisper-cpp"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found next to this binary or on PATH; set SPEECH_WHISPER_PATH", engineBinaryName())
}

// EnginePathCandidates lists install locations relative to the service binary.
func EnginePathCandidates(serviceExecutable string) []string {
	binDir := filepath.Dir(serviceExecutable)
	name := engineBinaryName()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", name),
		filepath.Join(binDir, "libexec", "whisper", name),
		filepath.Join(binDir, name),
	}
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
