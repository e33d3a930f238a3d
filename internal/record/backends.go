package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// commandBackend records by running one external program for a fixed time.
type commandBackend struct {
	name   string
	binary string
	args   func(cfg Config) []string
	list   func(ctx context.Context) (string, error)
}

func (b *commandBackend) Name() string { return b.name }

func (b *commandBackend) Available() bool { return commandAvailable(b.binary) }

func (b *commandBackend) Record(ctx context.Context, cfg Config) error {
	if cfg.OutputPath == "" {
		return errors.New("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(cfg.OutputPath)), 0o755); err != nil {
		return err
	}

	args := b.args(cfg)
	if cfg.Logger != nil {
		cfg.Logger.Debug("starting recorder", zap.String("backend", b.name), zap.Strings("args", args))
	}

	// the timed runner owns the process lifetime; CommandContext would kill it
	// before the WAV header is finalized
	cmd := exec.Command(b.binary, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	return runTimedCommand(ctx, cmd, cfg.Duration, cfg.Logger)
}

func (b *commandBackend) ListDevices(ctx context.Context) (string, error) {
	return b.list(ctx)
}

func DefaultBackends(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{newPipeWireBackend(), newALSABackend(), newFFMPEGBackend("pulse", "default")}
	case "darwin":
		return []Backend{newFFMPEGBackend("avfoundation", ":0")}
	default:
		return nil
	}
}

func newPipeWireBackend() Backend {
	return &commandBackend{
		name:   "pw-record",
		binary: "pw-record",
		args: func(cfg Config) []string {
			args := []string{
				"--rate", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
				"--channels", strconv.Itoa(defaultChannels(cfg.Channels)),
				"--format", "s16",
			}
			if cfg.Input != "" {
				args = append(args, "--target", cfg.Input)
			}
			return append(args, cfg.OutputPath)
		},
		list: func(ctx context.Context) (string, error) {
			if commandAvailable("pw-cli") {
				if out, err := commandOutput(ctx, "pw-cli", "ls", "Node"); err == nil {
					return out, nil
				}
			}
			if commandAvailable("pactl") {
				return commandOutput(ctx, "pactl", "list", "short", "sources")
			}
			return "", errors.New("no pipewire device listing command available")
		},
	}
}

func newALSABackend() Backend {
	return &commandBackend{
		name:   "arecord",
		binary: "arecord",
		args: func(cfg Config) []string {
			args := []string{
				"-q",
				"-f", "S16_LE",
				"-r", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
				"-c", strconv.Itoa(defaultChannels(cfg.Channels)),
			}
			if cfg.Input != "" {
				args = append(args, "-D", cfg.Input)
			}
			return append(args, cfg.OutputPath)
		},
		list: func(ctx context.Context) (string, error) {
			return commandOutput(ctx, "arecord", "-L")
		},
	}
}

func newFFMPEGBackend(defaultFormat, defaultInput string) Backend {
	return &commandBackend{
		name:   "ffmpeg",
		binary: "ffmpeg",
		args: func(cfg Config) []string {
			format := cfg.Format
			if format == "" {
				format = defaultFormat
			}
			input := cfg.Input
			if input == "" {
				input = defaultInput
			}
			return []string{
				"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
				"-f", format, "-i", input,
				"-t", strconv.FormatFloat(cfg.Duration.Seconds(), 'f', -1, 64),
				"-ac", strconv.Itoa(defaultChannels(cfg.Channels)),
				"-ar", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
				"-c:a", "pcm_s16le",
				cfg.OutputPath,
			}
		},
		list: func(ctx context.Context) (string, error) {
			if defaultFormat == "avfoundation" {
				return listAVFoundationDevices(ctx)
			}
			return listPulseAndALSADevices(ctx)
		},
	}
}

func listPulseAndALSADevices(ctx context.Context) (string, error) {
	var sections []string

	if commandAvailable("pactl") {
		if out, err := commandOutput(ctx, "pactl", "list", "short", "sources"); err == nil {
			sections = append(sections, "PulseAudio/PipeWire sources:\n"+out)
		} else {
			sections = append(sections, "PulseAudio/PipeWire sources: "+err.Error())
		}
	}

	if commandAvailable("arecord") {
		if out, err := commandOutput(ctx, "arecord", "-L"); err == nil {
			sections = append(sections, "ALSA devices:\n"+out)
		} else {
			sections = append(sections, "ALSA devices: "+err.Error())
		}
	}

	if len(sections) == 0 {
		return "", errors.New("no device listing command available")
	}
	return strings.Join(sections, "\n\n"), nil
}

// ffmpeg prints the avfoundation device list on stderr and exits non-zero.
func listAVFoundationDevices(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	out, _ := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return "", fmt.Errorf("ffmpeg returned no device output")
	}
	return trimmed, nil
}

func defaultSampleRate(value int) int {
	if value <= 0 {
		return 16000
	}
	return value
}

func defaultChannels(value int) int {
	if value <= 0 {
		return 1
	}
	return value
}
