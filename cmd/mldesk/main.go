package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mldesk/internal/common/fsutil"
	"mldesk/internal/config"
	"mldesk/internal/console"
	"mldesk/internal/debugapi"
	"mldesk/internal/pipeline"
	"mldesk/internal/registry"
	"mldesk/internal/runner"
)

// Defaults applied when neither flags nor the config file set a value.
const (
	defaultDevice    = "cpu"
	defaultEngineURL = "http://127.0.0.1:7860"
	defaultModel     = "sd-v1-5"
	defaultTopK      = 5
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		device     string
		logLevel   string
		debugAddr  string
	)
	root := &cobra.Command{
		Use:           "mldesk",
		Short:         "Run text-to-image and image-classification pipelines interactively",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("MLDESK_CONFIG"), "Path to a yaml/json/toml config file")
	root.PersistentFlags().StringVar(&device, "device", "", "Compute device hint: cpu|cuda|mps")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&debugAddr, "debug-addr", "", "Optional debug/metrics listen address, e.g. 127.0.0.1:9090")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive app",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath, device, logLevel, debugAddr)
			if err != nil {
				return err
			}
			return runApp(cfg)
		},
	}
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath, device, logLevel, debugAddr)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			console.NewView(cmd.OutOrStdout()).ShowModels(reg.Infos())
			return nil
		},
	}
	root.AddCommand(runCmd, modelsCmd)
	return root
}

// resolveConfig loads the optional config file and layers flag overrides and
// defaults on top.
func resolveConfig(path, device, logLevel, debugAddr string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if device != "" {
		cfg.Device = device
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if debugAddr != "" {
		cfg.DebugAddr = debugAddr
	}
	if cfg.Device == "" {
		cfg.Device = defaultDevice
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Generator.EngineURL == "" {
		cfg.Generator.EngineURL = defaultEngineURL
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = defaultModel
	}
	if cfg.Classifier.ModelPath == "" {
		cfg.Classifier.ModelPath = "models/vit.onnx"
	}
	if cfg.Classifier.MetadataPath == "" {
		cfg.Classifier.MetadataPath = "models/vit.json"
	}
	if cfg.Classifier.TopK <= 0 {
		cfg.Classifier.TopK = defaultTopK
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func buildRegistry(cfg config.Config) (*registry.Registry, error) {
	outDir, err := fsutil.ExpandHome(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	modelPath, err := fsutil.ExpandHome(cfg.Classifier.ModelPath)
	if err != nil {
		return nil, err
	}
	metaPath, err := fsutil.ExpandHome(cfg.Classifier.MetadataPath)
	if err != nil {
		return nil, err
	}
	gen := pipeline.NewTextToImage(pipeline.GeneratorOptions{
		EngineURL: cfg.Generator.EngineURL,
		Model:     cfg.Generator.Model,
		Steps:     cfg.Generator.Steps,
		Width:     cfg.Generator.Width,
		Height:    cfg.Generator.Height,
		OutputDir: outDir,
	})
	cls := pipeline.NewImageClassification(pipeline.ClassifierOptions{
		ModelPath:    modelPath,
		MetadataPath: metaPath,
		TopK:         cfg.Classifier.TopK,
	})
	return registry.New(gen, cls), nil
}

func runApp(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)
	pipeline.SetLogger(log)

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	inbox := runner.NewInbox()
	run := runner.New(reg, inbox, cfg.Device, log)
	view := console.NewView(os.Stdout)
	app := console.NewApp(reg, run, inbox,
		time.Duration(cfg.PollIntervalMS)*time.Millisecond, view, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// App exit (quit command or EOF) takes the debug listener down too.
		defer cancel()
		return app.Run(ctx)
	})
	if cfg.DebugAddr != "" {
		g.Go(func() error {
			err := debugapi.Serve(ctx, cfg.DebugAddr, reg, log)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
