package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedExtension rejects uploads and paths not ending in .wav.
var ErrUnsupportedExtension = errors.New("Only .wav files are supported")

// HasWAVExtension reports whether name ends with the lowercase .wav suffix.
func HasWAVExtension(name string) bool {
	return strings.HasSuffix(name, ".wav")
}

// Kind identifies which format check rejected an audio resource.
type Kind int

const (
	KindInvalidContainer Kind = iota + 1
	KindChannelMismatch
	KindSampleWidthMismatch
	KindUnsupportedSampleRate
)

func (k Kind) String() string {
	switch k {
	case KindInvalidContainer:
		return "invalid_container"
	case KindChannelMismatch:
		return "channel_mismatch"
	case KindSampleWidthMismatch:
		return "sample_width_mismatch"
	case KindUnsupportedSampleRate:
		return "unsupported_sample_rate"
	default:
		return "unknown"
	}
}

// ValidationError reports the first format check an audio resource failed.
// Its message is part of the external contract and is returned verbatim to callers.
type ValidationError struct {
	Kind Kind

	// SampleRate is the offending rate for KindUnsupportedSampleRate.
	SampleRate int
	// Supported lists the accepted rates for KindUnsupportedSampleRate.
	Supported []int

	// Err is the underlying parse failure for KindInvalidContainer.
	Err error
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindInvalidContainer:
		return "Invalid WAV file"
	case KindChannelMismatch:
		return "Audio file must be mono channel"
	case KindSampleWidthMismatch:
		return "Audio file must have a sample width of 2 bytes"
	case KindUnsupportedSampleRate:
		return fmt.Sprintf("Unsupported sample rate %d Hz. Supported rates are %s Hz", e.SampleRate, joinRates(e.Supported))
	default:
		return "audio validation failed"
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AsValidation returns the ValidationError wrapped in err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func invalidContainer(cause error) *ValidationError {
	return &ValidationError{Kind: KindInvalidContainer, Err: cause}
}

func joinRates(rates []int) string {
	parts := make([]string, len(rates))
	for i, rate := range rates {
		parts[i] = strconv.Itoa(rate)
	}

	switch len(parts) {
	case 0:
		return "none"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", or " + parts[len(parts)-1]
	}
}
