package recognizer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const whisperStub = `#!/bin/sh
out=""
for arg in "$@"; do
  if [ "$prev" = "-of" ]; then out="$arg"; fi
  prev="$arg"
done
echo "$@" > "$ARGS_FILE"
printf '  hello from whisper \n' > "$out.txt"
`

func writeWhisperFixture(t *testing.T, script string) (exe string, model string, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}

	dir := t.TempDir()
	exe = filepath.Join(dir, "whisper-cli")
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))
	model = filepath.Join(dir, "ggml-tiny.bin")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o644))
	argsFile = filepath.Join(dir, "args.txt")
	t.Setenv("ARGS_FILE", argsFile)
	return exe, model, argsFile
}

func TestWhisperTranscribesUtterance(t *testing.T) {
	exe, model, argsFile := writeWhisperFixture(t, whisperStub)

	engine, err := NewWhisper(WhisperOptions{
		Executable:  exe,
		ModelPath:   model,
		Language:    "de",
		ExtraArgs:   `--threads 2 --prompt "two words"`,
		Endpointing: Endpointing{SilenceDBFS: -45, HangoverChunks: 1},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"--threads", "2", "--prompt", "two words"}, engine.Args)

	session, err := engine.NewSession(context.Background(), 16000)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.AcceptWaveform(toneChunk())
	require.NoError(t, err)

	final, err := session.FinalResult()
	require.NoError(t, err)
	require.Equal(t, "hello from whisper", final.Text)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Contains(t, string(args), "-m "+model)
	require.Contains(t, string(args), "-nt -otxt -of")
	require.Contains(t, string(args), "-l de --threads 2")
}

func TestWhisperClassifiesIllegalInstruction(t *testing.T) {
	exe, model, _ := writeWhisperFixture(t, "#!/bin/sh\n>&2 echo 'Illegal instruction (core dumped)'\nexit 132\n")

	engine, err := NewWhisper(WhisperOptions{Executable: exe, ModelPath: model}, nil)
	require.NoError(t, err)

	_, err = engine.transcribeUtterance(context.Background(), toneChunk(), 16000)
	require.Error(t, err)
	require.Contains(t, err.Error(), "illegal CPU instruction")
}

func TestWhisperReportsFailures(t *testing.T) {
	exe, model, _ := writeWhisperFixture(t, "#!/bin/sh\n>&2 echo 'bad model'\nexit 3\n")

	engine, err := NewWhisper(WhisperOptions{Executable: exe, ModelPath: model}, nil)
	require.NoError(t, err)

	_, err = engine.transcribeUtterance(context.Background(), toneChunk(), 16000)
	require.Error(t, err)
	require.Contains(t, err.Error(), "whisper transcribe failed")
	require.Contains(t, err.Error(), "bad model")
}

func TestNewWhisperValidatesInputs(t *testing.T) {
	t.Parallel()

	_, err := NewWhisper(WhisperOptions{}, nil)
	require.ErrorContains(t, err, "model path is required")

	_, err = NewWhisper(WhisperOptions{ModelPath: filepath.Join(t.TempDir(), "missing.bin")}, nil)
	require.ErrorContains(t, err, "whisper model not found")

	model := filepath.Join(t.TempDir(), "ggml.bin")
	require.NoError(t, os.WriteFile(model, []byte("x"), 0o644))

	_, err = NewWhisper(WhisperOptions{ModelPath: model, ExtraArgs: `"unterminated`}, nil)
	require.ErrorContains(t, err, "parse whisper args")

	notExec := filepath.Join(t.TempDir(), "whisper-cli")
	require.NoError(t, os.WriteFile(notExec, []byte(""), 0o644))
	_, err = NewWhisper(WhisperOptions{ModelPath: model, Executable: notExec}, nil)
	require.ErrorContains(t, err, "not usable")
}

func TestEnginePathCandidatesPreferLibexec(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	engineDir := filepath.Join(root, "libexec", "whisper")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.MkdirAll(engineDir, 0o755))

	candidates := EnginePathCandidates(filepath.Join(binDir, "speech-service"))
	require.Equal(t, filepath.Join(engineDir, engineBinaryName()), filepath.Clean(candidates[0]))
	require.Equal(t, filepath.Join(binDir, engineBinaryName()), candidates[len(candidates)-1])
}

func TestIsMissingSharedLibraryError(t *testing.T) {
	t.Parallel()

	require.True(t, isMissingSharedLibraryError("error while loading shared libraries: libwhisper.so.1: cannot open shared object file"))
	require.True(t, isMissingSharedLibraryError("dyld: Library not loaded: @rpath/libwhisper.dylib"))
	require.False(t, isMissingSharedLibraryError("some other runtime error"))
}

func TestIsIllegalInstructionError(t *testing.T) {
	t.Parallel()

	require.True(t, isIllegalInstructionError("signal: illegal instruction (core dumped)"))
	require.False(t, isIllegalInstructionError("some other runtime error"))
	require.False(t, isIllegalInstructionError(""))
}
