package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sravani167/speech-service/internal/audio"
	"github.com/sravani167/speech-service/internal/audio/audiotest"
	"github.com/sravani167/speech-service/internal/metrics"
	"github.com/sravani167/speech-service/internal/recognizer"
	"github.com/stretchr/testify/require"
)

// fakeCapability plays back a script: boundaries[i] decides whether the i-th
// chunk ends an utterance, texts are handed out in order.
type fakeCapability struct {
	mu         sync.Mutex
	boundaries map[int]bool
	texts      []string
	final      string
	acceptErr  error
	newErr     error

	sessions []*fakeSession
	rates    []int
}

func (f *fakeCapability) Name() string { return "fake" }

func (f *fakeCapability) NewSession(_ context.Context, sampleRate int) (recognizer.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.newErr != nil {
		return nil, f.newErr
	}
	s := &fakeSession{cap: f}
	f.sessions = append(f.sessions, s)
	f.rates = append(f.rates, sampleRate)
	return s, nil
}

func (f *fakeCapability) Close() error { return nil }

type fakeSession struct {
	cap    *fakeCapability
	chunks [][]byte
	next   int
	closed int
}

func (s *fakeSession) AcceptWaveform(chunk []byte) (bool, error) {
	if s.cap.acceptErr != nil {
		return false, s.cap.acceptErr
	}
	s.chunks = append(s.chunks, chunk)
	return s.cap.boundaries[len(s.chunks)-1], nil
}

func (s *fakeSession) Result() (recognizer.Result, error) {
	text := ""
	if s.next < len(s.cap.texts) {
		text = s.cap.texts[s.next]
	}
	s.next++
	return recognizer.Result{Text: text}, nil
}

func (s *fakeSession) FinalResult() (recognizer.Result, error) {
	return recognizer.Result{Text: s.cap.final}, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

func writeWAV(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestTranscribeJoinsBoundariesAndFinal(t *testing.T) {
	t.Parallel()

	fake := &fakeCapability{
		boundaries: map[int]bool{1: true, 3: true},
		texts:      []string{"hello", "world"},
		final:      "again",
	}
	path := writeWAV(t, audiotest.Silence(4*ChunkFrames+100, 16000))

	text, err := New(fake).Transcribe(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "hello world again", text)

	require.Equal(t, []int{16000}, fake.rates)
	session := fake.sessions[0]
	require.Len(t, session.chunks, 5)
	for _, chunk := range session.chunks[:4] {
		require.Len(t, chunk, ChunkFrames*2)
	}
	require.Len(t, session.chunks[4], 200)
	require.Equal(t, 1, session.closed)
}

func TestTranscribeKeepsEmptySegments(t *testing.T) {
	t.Parallel()

	fake := &fakeCapability{
		boundaries: map[int]bool{0: true, 1: true},
		texts:      []string{"", "words"},
	}
	path := writeWAV(t, audiotest.Silence(2*ChunkFrames, 8000))

	text, err := New(fake).Transcribe(context.Background(), path)
	require.NoError(t, err)
	// segments = boundaries + 1, so two separators survive
	require.Equal(t, " words ", text)
}

func TestTranscribeEmptyDataChunk(t *testing.T) {
	t.Parallel()

	fake := &fakeCapability{final: ""}
	path := writeWAV(t, audiotest.Silence(0, 16000))

	text, err := New(fake).Transcribe(context.Background(), path)
	require.NoError(t, err)
	require.Empty(t, text)
	require.Empty(t, fake.sessions[0].chunks)
}

func TestTranscribeRejectsInvalidAudioWithoutSession(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		data []byte
		want string
	}{
		"not a wav": {data: []byte("definitely not audio"), want: "Invalid WAV file"},
		"stereo":    {data: audiotest.WAV(2, 16, 16000, make([]byte, 400)), want: "Audio file must be mono channel"},
		"8-bit":     {data: audiotest.WAV(1, 8, 16000, make([]byte, 400)), want: "Audio file must have a sample width of 2 bytes"},
		"22050 Hz": {
			data: audiotest.Silence(100, 22050),
			want: "Unsupported sample rate 22050 Hz. Supported rates are 8000, 16000, 32000, 44100, or 48000 Hz",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeCapability{}
			_, err := New(fake).Transcribe(context.Background(), writeWAV(t, tc.data))
			require.EqualError(t, err, tc.want)

			_, ok := audio.AsValidation(err)
			require.True(t, ok)
			require.Empty(t, fake.sessions)
		})
	}
}

func TestTranscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	fake := &fakeCapability{boundaries: map[int]bool{0: true}, texts: []string{"one"}, final: "two"}
	engine := New(fake)
	path := writeWAV(t, audiotest.Silence(2*ChunkFrames, 16000))

	first, err := engine.Transcribe(context.Background(), path)
	require.NoError(t, err)

	fake.sessions = nil
	second, err := engine.Transcribe(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestTranscribeWrapsEngineFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("decoder exploded")
	path := writeWAV(t, audiotest.Silence(ChunkFrames, 16000))

	fake := &fakeCapability{acceptErr: boom}
	_, err := New(fake).Transcribe(context.Background(), path)
	require.ErrorIs(t, err, ErrEngineFailure)
	require.ErrorIs(t, err, boom)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Equal(t, "accept waveform", engineErr.Op)
	require.Equal(t, 1, fake.sessions[0].closed)

	fake = &fakeCapability{newErr: boom}
	_, err = New(fake).Transcribe(context.Background(), path)
	require.ErrorIs(t, err, ErrEngineFailure)
	require.Contains(t, err.Error(), "create session")
}

func TestTranscribeStreamClosesStream(t *testing.T) {
	t.Parallel()

	stream, err := audio.OpenWith(writeWAV(t, audiotest.Silence(10, 16000)), audio.DefaultConstraints())
	require.NoError(t, err)

	_, err = New(&fakeCapability{newErr: errors.New("no model")}).TranscribeStream(context.Background(), stream)
	require.Error(t, err)

	// already released by TranscribeStream
	require.NoError(t, stream.Close())
}

func TestTranscribeHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeCapability{}
	_, err := New(fake).Transcribe(ctx, writeWAV(t, audiotest.Silence(ChunkFrames, 16000)))
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrEngineFailure)
	require.Equal(t, 1, fake.sessions[0].closed)
}

func TestTranscribeRecordsMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	engine := New(&fakeCapability{}, WithMetrics(m), WithChunkFrames(1000))

	_, err := engine.Transcribe(context.Background(), writeWAV(t, audiotest.Silence(16000, 16000)))
	require.NoError(t, err)
	_, err = engine.Transcribe(context.Background(), writeWAV(t, []byte("junk")))
	require.Error(t, err)

	series, err := testutil.GatherAndCount(m.Registry(), "speech_transcriptions_total")
	require.NoError(t, err)
	require.Equal(t, 2, series)
}
