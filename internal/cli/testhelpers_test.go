package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sravani167/speech-service/internal/audio/audiotest"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeToneWAV(t *testing.T, dir, name string, frames, sampleRate int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	data := audiotest.MonoPCM16(audiotest.Tone(frames, sampleRate, 440, 0.5), sampleRate)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeStereoWAV(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "stereo.wav")
	data := audiotest.WAV(2, 16, 16000, make([]byte, 3200))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeStub(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o755))
}

func echoScript(output string) string {
	return "#!/bin/sh\necho '" + output + "'\n"
}
