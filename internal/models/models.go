// Package models knows where to fetch Vosk models and how to install them
// into a model directory.
package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sravani167/speech-service/internal/download"
	"go.uber.org/zap"
)

const DefaultModel = "small-en-us"

type Model struct {
	Name   string
	URL    string
	SHA256 string
}

// alphacephei does not publish checksums for these archives.
var registry = map[string]Model{
	"small-en-us": {
		Name: "small-en-us",
		URL:  "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
	},
	"en-us": {
		Name: "en-us",
		URL:  "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22.zip",
	},
	"en-us-lgraph": {
		Name: "en-us-lgraph",
		URL:  "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
	},
	"small-de": {
		Name: "small-de",
		URL:  "https://alphacephei.com/vosk/models/vosk-model-small-de-0.15.zip",
	},
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Model, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultModel
	}
	model, ok := registry[name]
	if !ok {
		return Model{}, fmt.Errorf("unknown model %q (known models: %s)", name, strings.Join(Names(), ", "))
	}
	return model, nil
}

// Installed reports whether dir holds an unpacked Vosk model.
func Installed(dir string) bool {
	for _, marker := range []string{"am", "conf"} {
		info, err := os.Stat(filepath.Join(dir, marker))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

type InstallOptions struct {
	NoProgress bool
	Force      bool
	Logger     *zap.Logger
	// Fetch replaces download.DownloadFile in tests.
	Fetch func(ctx context.Context, opts download.Options) error
}

// Install downloads model and unpacks it so that dir itself is the model
// root. An existing installation is kept unless Force is set. Returns true
// when something was installed.
func Install(ctx context.Context, model Model, dir string, opts InstallOptions) (bool, error) {
	if strings.TrimSpace(dir) == "" {
		return false, errors.New("model path must not be empty")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	fetch := opts.Fetch
	if fetch == nil {
		fetch = download.DownloadFile
	}

	if Installed(dir) && !opts.Force {
		opts.Logger.Info("model already present", zap.String("model", model.Name), zap.String("path", dir))
		return false, nil
	}

	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return false, fmt.Errorf("create model directory: %w", err)
	}

	archive := filepath.Join(parent, "."+model.Name+".zip")
	defer os.Remove(archive)

	opts.Logger.Info("downloading model", zap.String("model", model.Name), zap.String("url", model.URL))
	if err := fetch(ctx, download.Options{
		URL:            model.URL,
		Destination:    archive,
		ExpectedSHA256: model.SHA256,
		NoProgress:     opts.NoProgress,
		Logger:         opts.Logger,
	}); err != nil {
		return false, fmt.Errorf("download model %s: %w", model.Name, err)
	}

	staging, err := os.MkdirTemp(parent, "."+model.Name+"-*")
	if err != nil {
		return false, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := download.ExtractZip(archive, staging, true); err != nil {
		return false, fmt.Errorf("unpack model %s: %w", model.Name, err)
	}
	if !Installed(staging) {
		return false, fmt.Errorf("archive for model %s does not contain a vosk model", model.Name)
	}

	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("remove previous model: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return false, fmt.Errorf("move model into place: %w", err)
	}

	opts.Logger.Info("model installed", zap.String("model", model.Name), zap.String("path", dir))
	return true, nil
}
