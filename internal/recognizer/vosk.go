//go:build vosk

package recognizer

import (
	"context"
	"fmt"
	"os"

	vosk "github.com/alphacep/vosk-api/go"
	"go.uber.org/zap"
)

// VoskEngine holds a loaded Kaldi model. Recognizers created from it are
// independent.
type VoskEngine struct {
	model  *vosk.VoskModel
	logger *zap.Logger
}

func NewVosk(modelPath string, logger *zap.Logger) (Capability, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if info, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("vosk model not found at %s (run `speech-service setup`): %w", modelPath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("vosk model path %s is not a directory", modelPath)
	}

	vosk.SetLogLevel(-1)
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model %s: %w", modelPath, err)
	}
	logger.Info("vosk model loaded", zap.String("path", modelPath))

	return &VoskEngine{model: model, logger: logger}, nil
}

func (v *VoskEngine) Name() string { return "vosk" }

func (v *VoskEngine) NewSession(_ context.Context, sampleRate int) (Session, error) {
	rec, err := vosk.NewRecognizer(v.model, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("create vosk recognizer at %d Hz: %w", sampleRate, err)
	}
	return &voskSession{rec: rec}, nil
}

func (v *VoskEngine) Close() error {
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

type voskSession struct {
	rec *vosk.VoskRecognizer
}

func (s *voskSession) AcceptWaveform(chunk []byte) (bool, error) {
	if s.rec == nil {
		return false, errSessionClosed
	}
	switch s.rec.AcceptWaveform(chunk) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("vosk rejected %d bytes of audio", len(chunk))
	}
}

func (s *voskSession) Result() (Result, error) {
	if s.rec == nil {
		return Result{}, errSessionClosed
	}
	return ParseResult(s.rec.Result())
}

func (s *voskSession) FinalResult() (Result, error) {
	if s.rec == nil {
		return Result{}, errSessionClosed
	}
	return ParseResult(s.rec.FinalResult())
}

func (s *voskSession) Close() error {
	if s.rec != nil {
		s.rec.Free()
		s.rec = nil
	}
	return nil
}
