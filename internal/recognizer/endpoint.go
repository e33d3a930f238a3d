package recognizer

import (
	"context"
	"strings"

	"github.com/sravani167/speech-service/internal/audio"
)

// Endpointing splits a chunk stream into utterances by energy: an utterance
// ends after HangoverChunks consecutive chunks at or below SilenceDBFS that
// follow voiced audio.
type Endpointing struct {
	SilenceDBFS    float64
	HangoverChunks int
}

// utteranceFunc transcribes one buffered utterance of mono 16-bit PCM.
type utteranceFunc func(ctx context.Context, pcm []byte, sampleRate int) (string, error)

// utteranceSession drives batch engines that cannot decode incrementally.
// Leading silence is dropped; trailing silence stays with its utterance.
type utteranceSession struct {
	ctx        context.Context
	sampleRate int
	endpoint   Endpointing
	transcribe utteranceFunc

	buf       []byte
	voiced    bool
	silentRun int
	last      Result
	closed    bool
}

func newUtteranceSession(ctx context.Context, sampleRate int, endpoint Endpointing, fn utteranceFunc) *utteranceSession {
	if ctx == nil {
		ctx = context.Background()
	}
	if endpoint.HangoverChunks <= 0 {
		endpoint.HangoverChunks = 1
	}
	return &utteranceSession{ctx: ctx, sampleRate: sampleRate, endpoint: endpoint, transcribe: fn}
}

func (s *utteranceSession) AcceptWaveform(chunk []byte) (bool, error) {
	if s.closed {
		return false, errSessionClosed
	}

	if !audio.MeasurePCM16(chunk).Silent(s.endpoint.SilenceDBFS) {
		s.voiced = true
		s.silentRun = 0
		s.buf = append(s.buf, chunk...)
		return false, nil
	}

	if !s.voiced {
		return false, nil
	}

	s.buf = append(s.buf, chunk...)
	s.silentRun++
	if s.silentRun < s.endpoint.HangoverChunks {
		return false, nil
	}

	res, err := s.flush()
	if err != nil {
		return false, err
	}
	s.last = res
	return true, nil
}

func (s *utteranceSession) Result() (Result, error) {
	if s.closed {
		return Result{}, errSessionClosed
	}
	return s.last, nil
}

func (s *utteranceSession) FinalResult() (Result, error) {
	if s.closed {
		return Result{}, errSessionClosed
	}
	if !s.voiced {
		return Result{}, nil
	}
	return s.flush()
}

func (s *utteranceSession) Close() error {
	s.closed = true
	s.buf = nil
	return nil
}

func (s *utteranceSession) flush() (Result, error) {
	pcm := s.buf
	s.buf = nil
	s.voiced = false
	s.silentRun = 0

	text, err := s.transcribe(s.ctx, pcm, s.sampleRate)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: strings.TrimSpace(text)}, nil
}
