package transcribe

import (
	"errors"
	"fmt"
)

// ErrEngineFailure matches every recognizer failure raised during a
// transcription.
var ErrEngineFailure = errors.New("speech recognition engine failure")

// EngineError wraps a recognizer failure with the step that raised it.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrEngineFailure, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool { return target == ErrEngineFailure }
