//go:build !vosk

package recognizer

import "go.uber.org/zap"

// NewVosk is unavailable without the vosk build tag because the bindings need
// libvosk at link time.
func NewVosk(modelPath string, logger *zap.Logger) (Capability, error) {
	return nil, ErrVoskUnavailable
}
