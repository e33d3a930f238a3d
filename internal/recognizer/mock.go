package recognizer

import (
	"context"
	"fmt"
)

// MockEngine reports an utterance boundary every N chunks and describes the
// audio it saw instead of recognizing it. It needs no model files.
type MockEngine struct {
	UtteranceChunks int
}

func NewMock(utteranceChunks int) *MockEngine {
	if utteranceChunks <= 0 {
		utteranceChunks = 1
	}
	return &MockEngine{UtteranceChunks: utteranceChunks}
}

func (m *MockEngine) Name() string { return "mock" }

func (m *MockEngine) NewSession(_ context.Context, sampleRate int) (Session, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &mockSession{every: m.UtteranceChunks, bytesPerSecond: sampleRate * 2}, nil
}

func (m *MockEngine) Close() error { return nil }

type mockSession struct {
	every          int
	bytesPerSecond int

	chunks  int
	pending int
	last    Result
	closed  bool
}

func (s *mockSession) AcceptWaveform(chunk []byte) (bool, error) {
	if s.closed {
		return false, errSessionClosed
	}
	s.chunks++
	s.pending += len(chunk)
	if s.chunks%s.every != 0 {
		return false, nil
	}
	s.last = s.describe()
	return true, nil
}

func (s *mockSession) Result() (Result, error) {
	if s.closed {
		return Result{}, errSessionClosed
	}
	return s.last, nil
}

func (s *mockSession) FinalResult() (Result, error) {
	if s.closed {
		return Result{}, errSessionClosed
	}
	if s.pending == 0 {
		return Result{}, nil
	}
	return s.describe(), nil
}

func (s *mockSession) Close() error {
	s.closed = true
	return nil
}

func (s *mockSession) describe() Result {
	seconds := float64(s.pending) / float64(s.bytesPerSecond)
	s.pending = 0
	return Result{Text: fmt.Sprintf("[%.2fs of audio]", seconds)}
}
