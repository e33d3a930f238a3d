package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sravani167/speech-service/internal/audio"
	"github.com/sravani167/speech-service/internal/metrics"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	text     string
	err      error
	paths    []string
	contents [][]byte
	validate bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	f.paths = append(f.paths, path)
	f.contents = append(f.contents, data)

	if f.validate {
		stream, err := audio.Open(path)
		if err != nil {
			return "", err
		}
		_ = stream.Close()
	}
	return f.text, f.err
}

func newTestServer(t *testing.T, tr Transcriber) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	return New(tr, Options{UploadDir: dir, MaxUploadBytes: 1 << 20, MaxConcurrent: 2, Metrics: metrics.New()}), dir
}

func uploadRequest(t *testing.T, field, filename string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeTranscriber{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, map[string]string{"status": "ok"}, decode(t, rec))
}

func TestTranscribeSuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeTranscriber{text: "hello world"}
	srv, dir := newTestServer(t, fake)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "clip.wav", []byte("RIFF payload")))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]string{"filename": "clip.wav", "transcript": "hello world"}, decode(t, rec))

	require.Len(t, fake.paths, 1)
	require.Equal(t, []byte("RIFF payload"), fake.contents[0])
	require.NotContains(t, fake.paths[0], "clip")
	requireEmptyDir(t, dir)
}

func TestTranscribeRejectsNonWAVName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"clip.mp3", "clip.WAV", "clip"} {
		fake := &fakeTranscriber{}
		srv, dir := newTestServer(t, fake)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", name, []byte("data")))

		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.Equal(t, "Only .wav files are supported", decode(t, rec)["detail"])
		require.Empty(t, fake.paths)
		requireEmptyDir(t, dir)
	}
}

func TestTranscribeValidationErrorIs400(t *testing.T) {
	t.Parallel()

	fake := &fakeTranscriber{validate: true}
	srv, dir := newTestServer(t, fake)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "noise.wav", []byte("not really a wav")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid WAV file", decode(t, rec)["detail"])
	requireEmptyDir(t, dir)
}

func TestTranscribeEngineFailureIs500(t *testing.T) {
	t.Parallel()

	fake := &fakeTranscriber{err: errors.New("speech recognition engine failure: accept waveform: boom")}
	srv, dir := newTestServer(t, fake)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "clip.wav", []byte("data")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, decode(t, rec)["detail"], "accept waveform: boom")
	requireEmptyDir(t, dir)
}

func TestTranscribeMissingFieldIs422(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeTranscriber{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "audio", "clip.wav", []byte("data")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTranscribeOversizedUploadIs413(t *testing.T) {
	t.Parallel()

	fake := &fakeTranscriber{}
	srv, dir := newTestServer(t, fake)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "big.wav", make([]byte, 2<<20)))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Empty(t, fake.paths)
	requireEmptyDir(t, dir)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeTranscriber{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "speech_transcriptions_in_flight")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeTranscriber{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
