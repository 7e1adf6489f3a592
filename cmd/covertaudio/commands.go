package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/skypro1111/covertaudio/internal/client"
	"github.com/skypro1111/covertaudio/internal/metrics"
	"github.com/skypro1111/covertaudio/internal/pipeline"
	"github.com/skypro1111/covertaudio/internal/server"
)

func runTransmit(args []string) error {
	fs, configPath := newFlagSet("transmit")
	data := fs.StringP("data", "d", "", "Payload text (defaults to data.payload from the config)")
	input := fs.StringP("input", "i", "", "Read the payload from this file instead")
	output := fs.StringP("output", "o", "", "WAV file to write (required)")
	serverURL := fs.String("server", "", "Modulate on a covertaudio server at this URL instead of locally")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return errors.New("--output is required")
	}
	if *data != "" && *input != "" {
		return errors.New("--data and --input are mutually exclusive")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}

	var payload []byte
	switch {
	case *input != "":
		if payload, err = os.ReadFile(*input); err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}
	case *data != "":
		payload = []byte(*data)
	default:
		payload = []byte(cfg.Data.Payload)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serverURL != "" {
		return transmitRemote(ctx, *serverURL, payload, *output, logger)
	}

	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	opts, err := pipelineOptions(cfg, logger)
	if err != nil {
		return err
	}
	tx, err := pipeline.NewTransmitter(settings, opts)
	if err != nil {
		return err
	}

	transmission, err := tx.Transmit(ctx, payload)
	if err != nil {
		return err
	}

	wav, err := pipeline.WriteWAV(transmission.Samples, transmission.SampleRate, cfg.WAV.Options())
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, wav, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}

	logger.Info("Wrote transmission",
		slog.String("run_id", transmission.RunID),
		slog.String("output", *output),
		slog.Int("payload_bytes", len(payload)),
		slog.Int("encoded_bytes", transmission.EncodedBytes),
		slog.Float64("duration_seconds", transmission.Duration()),
	)
	return nil
}

func runReceive(args []string) error {
	fs, configPath := newFlagSet("receive")
	input := fs.StringP("input", "i", "", "WAV file to demodulate (required)")
	output := fs.StringP("output", "o", "", "Write the payload here instead of stdout")
	channel := fs.Int("channel", -1, "WAV channel to read (defaults to wav.read_channel)")
	serverURL := fs.String("server", "", "Demodulate on a covertaudio server at this URL instead of locally")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("--input is required")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}

	wav, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *input, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serverURL != "" {
		return receiveRemote(ctx, *serverURL, wav, *channel, *output, logger)
	}

	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	opts, err := pipelineOptions(cfg, logger)
	if err != nil {
		return err
	}
	rx, err := pipeline.NewReceiver(settings, opts)
	if err != nil {
		return err
	}

	readChannel := cfg.WAV.Channel
	if *channel >= 0 {
		readChannel = *channel
	}
	samples, err := pipeline.ReadWAV(wav, readChannel, settings.Params.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *input, err)
	}

	reception, err := rx.Receive(ctx, samples)
	if err != nil {
		return err
	}

	if err := writePayload(*output, reception.Payload); err != nil {
		return err
	}

	logger.Info("Received payload",
		slog.String("run_id", reception.RunID),
		slog.Int("payload_bytes", len(reception.Payload)),
		slog.Int("sync_offset", reception.Offset),
		slog.Int("flagged_bytes", reception.FlaggedBytes()),
	)
	return nil
}

func runServe(args []string) error {
	fs, configPath := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	if !cfg.HTTP.Enabled {
		return errors.New("http.enabled is false in the configuration")
	}

	logger.Info("Service starting",
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(reg)

	httpServer, err := server.NewHTTPServer(cfg, logger, appMetrics, reg)
	if err != nil {
		return err
	}
	if err := httpServer.Start(); err != nil {
		return err
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")
	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.GetShutdownTimeoutDuration())
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Service stopped")
	return nil
}

func writePayload(path string, payload []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func transmitRemote(ctx context.Context, serverURL string, payload []byte, output string, logger *slog.Logger) error {
	c, err := client.NewClient(client.Config{Endpoint: serverURL})
	if err != nil {
		return err
	}
	defer c.Close()

	transmission, err := c.Transmit(ctx, payload)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, transmission.WAV, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	logger.Info("Wrote remote transmission",
		slog.String("run_id", transmission.RunID),
		slog.String("server", serverURL),
		slog.String("output", output),
		slog.Int("symbols", transmission.Symbols),
	)
	return nil
}

func receiveRemote(ctx context.Context, serverURL string, wav []byte, channel int, output string, logger *slog.Logger) error {
	c, err := client.NewClient(client.Config{Endpoint: serverURL})
	if err != nil {
		return err
	}
	defer c.Close()

	reception, err := c.Receive(ctx, wav, channel)
	if err != nil {
		return err
	}
	if err := writePayload(output, reception.Payload); err != nil {
		return err
	}

	logger.Info("Received remote payload",
		slog.String("run_id", reception.RunID),
		slog.String("server", serverURL),
		slog.Int("payload_bytes", len(reception.Payload)),
		slog.Int("sync_offset", reception.SyncOffset),
		slog.Int("flagged_bytes", reception.FlaggedBytes),
	)
	return nil
}
