package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sravani167/speech-service/internal/config"
	"github.com/sravani167/speech-service/internal/logging"
	"github.com/sravani167/speech-service/internal/models"
	"github.com/sravani167/speech-service/internal/recognizer"
	"github.com/sravani167/speech-service/internal/transcribe"
	"github.com/sravani167/speech-service/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

type appState struct {
	configPath string
	engine     string
	modelPath  string
	verbose    bool
	jsonLogs   bool
	noProgress bool

	cfg    config.Config
	logger *zap.Logger

	transcribeFn func(ctx context.Context, audioPath string) (string, error)
	recordFn     func(ctx context.Context, opts recordOptions) (string, error)
	serveFn      func(ctx context.Context, cfg config.Config) error
	installFn    func(ctx context.Context, model models.Model, dir string, opts models.InstallOptions) (bool, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		cfg: config.Default(),
	}
	app.transcribeFn = app.transcribeAudio
	app.recordFn = app.recordAudio
	app.serveFn = app.serve
	app.installFn = models.Install

	cmd := &cobra.Command{
		Use:           "speech-service",
		Short:         "Transcribe mono 16-bit WAV audio over HTTP or from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.init()
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "Path to a YAML config file (default $SPEECH_CONFIG)")
	flags.StringVar(&app.engine, "engine", "", "Recognizer engine: "+strings.Join(config.Engines(), "|"))
	flags.StringVar(&app.modelPath, "model-path", "", "Vosk model directory (default "+config.DefaultModelPath+")")
	flags.BoolVar(&app.verbose, "verbose", false, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", false, "Enable JSON logging")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newRecordCmd(app))
	cmd.AddCommand(newDevicesCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// init resolves configuration (defaults, file, environment, flags) and builds
// the logger every subcommand uses.
func (a *appState) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.engine != "" {
		cfg.Recognizer.Engine = strings.ToLower(strings.TrimSpace(a.engine))
	}
	if a.modelPath != "" {
		cfg.Recognizer.ModelPath = a.modelPath
	}
	if a.jsonLogs {
		cfg.Logging.JSON = true
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Verbose: a.verbose,
		JSON:    cfg.Logging.JSON,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newEngine builds the configured recognizer and a transcription engine on
// top of it. The returned func releases the recognizer.
func (a *appState) newEngine() (*transcribe.Engine, func(), error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	capability, err := recognizer.New(a.cfg.Recognizer, a.log())
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := capability.Close(); err != nil {
			a.log().Warn("failed to release recognizer", zap.String("engine", capability.Name()), zap.Error(err))
		}
	}

	return transcribe.New(capability, transcribe.WithLogger(a.log())), release, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}
