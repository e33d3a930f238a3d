// Package record captures microphone audio to WAV through external
// recorder programs.
package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var ErrNoBackendAvailable = errors.New("no recording backend available")

// stopGrace is how long a recorder gets to finalize its WAV header after an
// interrupt before it is killed.
var stopGrace = 2 * time.Second

type Config struct {
	OutputPath string
	Duration   time.Duration
	SampleRate int
	Channels   int
	Input      string
	Format     string
	Logger     *zap.Logger
}

type Backend interface {
	Name() string
	Available() bool
	Record(ctx context.Context, cfg Config) error
	ListDevices(ctx context.Context) (string, error)
}

func SelectBackend(backends []Backend, preferred string) (Backend, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends configured")
	}

	if preferred != "" && preferred != "auto" {
		for _, backend := range backends {
			if backend.Name() == preferred {
				if !backend.Available() {
					return nil, fmt.Errorf("requested backend %q is not available", preferred)
				}
				return backend, nil
			}
		}
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	for _, backend := range backends {
		if backend.Available() {
			return backend, nil
		}
	}

	return nil, ErrNoBackendAvailable
}

func NewBackend(preferred string) (Backend, error) {
	backends := DefaultBackends(runtime.GOOS)
	if len(backends) == 0 {
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return SelectBackend(backends, preferred)
}

// RecordWithFallback tries the preferred backend first, then every other
// available one, and returns the name of the backend that succeeded.
func RecordWithFallback(ctx context.Context, preferred string, cfg Config) (string, error) {
	backends := DefaultBackends(runtime.GOOS)
	if len(backends) == 0 {
		return "", fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return recordWithFallback(ctx, backends, preferred, cfg)
}

func recordWithFallback(ctx context.Context, backends []Backend, preferred string, cfg Config) (string, error) {
	ordered, err := orderBackends(backends, preferred)
	if err != nil {
		return "", err
	}

	var errs []error
	for _, backend := range ordered {
		if !backend.Available() {
			errs = append(errs, fmt.Errorf("%s: backend is not available", backend.Name()))
			continue
		}

		err := backend.Record(ctx, cfg)
		if err == nil {
			return backend.Name(), nil
		}

		if cleanupErr := removePartialRecording(cfg.OutputPath); cleanupErr != nil {
			errs = append(errs, fmt.Errorf("%s: cleanup partial recording %q: %w", backend.Name(), cfg.OutputPath, cleanupErr))
		}

		err = fmt.Errorf("%s: %w", backend.Name(), err)
		errs = append(errs, err)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}

	if len(errs) == 0 {
		return "", ErrNoBackendAvailable
	}
	return "", fmt.Errorf("record audio with available backends: %w", errors.Join(errs...))
}

func orderBackends(backends []Backend, preferred string) ([]Backend, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends configured")
	}
	if preferred == "" || preferred == "auto" {
		return backends, nil
	}

	idx := -1
	for i, backend := range backends {
		if backend.Name() == preferred {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	ordered := make([]Backend, 0, len(backends))
	ordered = append(ordered, backends[idx])
	ordered = append(ordered, backends[:idx]...)
	ordered = append(ordered, backends[idx+1:]...)
	return ordered, nil
}

func removePartialRecording(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// runTimedCommand runs cmd for duration, then interrupts it so the recorder
// can finish the file. A recorder that ignores the interrupt is killed after
// stopGrace.
func runTimedCommand(ctx context.Context, cmd *exec.Cmd, duration time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if duration <= 0 {
		return errors.New("recording duration must be positive")
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		stopProcess(cmd, done, logger)
		return ctx.Err()
	case <-timer.C:
	}

	err := stopProcess(cmd, done, logger)
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			logger.Debug("recording process stopped by signal", zap.String("signal", status.Signal().String()))
			return nil
		}
		// recorders commonly exit non-zero when interrupted
		logger.Debug("recording process exited after timed stop", zap.Error(err))
		return nil
	}
	return err
}

func stopProcess(cmd *exec.Cmd, done <-chan error, logger *zap.Logger) error {
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		logger.Debug("interrupt recording process", zap.Error(err))
	}

	grace := time.NewTimer(stopGrace)
	defer grace.Stop()

	select {
	case err := <-done:
		return err
	case <-grace.C:
		logger.Warn("recording process ignored interrupt; killing it")
		_ = cmd.Process.Kill()
		return <-done
	}
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}
