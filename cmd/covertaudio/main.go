package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/skypro1111/covertaudio/internal/config"
	"github.com/skypro1111/covertaudio/internal/debug"
	"github.com/skypro1111/covertaudio/internal/pipeline"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "covertaudio"
	serviceVersion    = "1.0.0"
)

type command struct {
	summary string
	run     func(args []string) error
}

var commands = map[string]command{
	"transmit": {"Encode and modulate a payload into a WAV file", runTransmit},
	"receive":  {"Demodulate a WAV file and recover the payload", runReceive},
	"serve":    {"Run the HTTP API until interrupted", runServe},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		usage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	if err := cmd.run(os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n\nCommands:\n", serviceName)
	for _, name := range []string{"transmit", "receive", "serve"} {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> --help' for the flags of a command.\n", serviceName)
}

// newFlagSet returns a flag set carrying the shared --config flag.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", defaultConfigPath, "Path to configuration file")
	return fs, configPath
}

// setup loads the configuration and builds the logger.
func setup(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := initLogger(cfg.Logging)
	logger.Debug("Configuration loaded",
		slog.String("config_path", configPath),
		slog.String("modem", cfg.Modulator.Kind),
		slog.Float64("sample_rate", cfg.Modulation.SampleRate),
		slog.Int("samples_per_symbol", cfg.Modulation.SamplesPerSymbol),
		slog.Int("codecs", len(cfg.Data.Codecs)),
		slog.Int("modifiers", len(cfg.Modifiers)),
	)
	return cfg, logger, nil
}

// pipelineOptions fixes a run ID for a one-shot command and attaches a
// debug sink under it when debugging is enabled.
func pipelineOptions(cfg *config.Config, logger *slog.Logger) (pipeline.Options, error) {
	opts := pipeline.Options{Logger: logger, RunID: uuid.NewString()}
	if !cfg.Debug.Enabled {
		return opts, nil
	}

	sink, err := debug.NewDir(cfg.Debug.Directory, opts.RunID, logger)
	if err != nil {
		return opts, err
	}
	logger.Info("Writing debug dumps", slog.String("directory", sink.Root()))
	opts.Debug = sink
	return opts, nil
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Logs go to stderr by default so receive can write the payload to stdout
	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler).With(slog.String("service", serviceName))
}
