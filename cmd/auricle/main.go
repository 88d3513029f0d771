// Command auricle is the device-facing voice gateway server: it admits
// websocket connections from voice devices, runs the duplex audio path for
// each session, and serves health and metrics endpoints on a separate
// operational listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/soundbarrier/auricle/internal/config"
	"github.com/soundbarrier/auricle/internal/gate"
	"github.com/soundbarrier/auricle/internal/health"
	"github.com/soundbarrier/auricle/internal/observe"
	"github.com/soundbarrier/auricle/internal/server"
	"github.com/soundbarrier/auricle/internal/session"
	"github.com/soundbarrier/auricle/pkg/codec"
	"github.com/soundbarrier/auricle/pkg/codec/opus"
	"github.com/soundbarrier/auricle/pkg/store"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "auricle: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "auricle: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("auricle starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"ops_addr", cfg.Server.OpsAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	flushTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "auricle",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Store client factory ──────────────────────────────────────────────────
	factory, err := store.NewFactory(cfg.Store.BaseURL, cfg.Store.APIKey)
	if err != nil {
		slog.Error("failed to create store client factory", "err", err)
		return 1
	}

	// ── Session layer ─────────────────────────────────────────────────────────
	manager := session.NewManager(session.ManagerConfig{
		NewEncoder:      opusFactory(cfg.Audio),
		InputSampleRate: cfg.Audio.InputSampleRate,
		Volume:          cfg.Audio.Volume,
		Metrics:         metrics,
	})

	// ── Connection gate ───────────────────────────────────────────────────────
	admission := gate.New(factory, manager, cfg.Auth.Timeout, metrics)
	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", admission)

	// ── Operational endpoints ─────────────────────────────────────────────────
	probes := health.New(version, health.Checker{Name: "store", Check: factory.Ping})
	opsMux := http.NewServeMux()
	probes.Register(opsMux)
	opsMux.Handle("/metrics", promhttp.Handler())
	opsHandler := observe.Middleware(metrics, "ops")(opsMux)

	// ── Listeners ─────────────────────────────────────────────────────────────
	newListener := func(name, addr string, handler http.Handler) server.Listener {
		if tls := cfg.Server.TLS; tls != nil {
			return server.NewHTTPSListener(name, addr, handler, tls.CertFile, tls.KeyFile)
		}
		return server.NewHTTPListener(name, addr, handler)
	}
	listeners := []server.Listener{
		newListener("gateway", cfg.Server.ListenAddr, wsMux),
		newListener("ops", cfg.Server.OpsAddr, opsHandler),
	}

	coordinator := server.NewCoordinator(cfg.Shutdown.Grace, listeners,
		server.WithExitFunc(func(status int) {
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := flushTelemetry(flushCtx); err != nil {
				slog.Warn("telemetry flush error", "err", err)
			}
			os.Exit(status)
		}),
	)

	eg, _ := errgroup.WithContext(ctx)
	for _, l := range listeners {
		eg.Go(l.Serve)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping…")
		coordinator.Shutdown()
	}()

	slog.Info("gateway ready — press Ctrl+C to shut down")

	if err := eg.Wait(); err != nil {
		slog.Error("listener error", "err", err)
		return 1
	}
	return 0
}

// opusFactory builds the per-session encoder factory from the audio config.
func opusFactory(audio config.AudioConfig) session.EncoderFactory {
	return func() (codec.Encoder, int, error) {
		var opts []opus.Option
		if audio.OpusBitrate > 0 {
			opts = append(opts, opus.WithBitrate(audio.OpusBitrate))
		}
		enc, err := opus.NewEncoder(audio.OutputSampleRate, audio.Channels, audio.FrameMs, opts...)
		if err != nil {
			return nil, 0, err
		}
		return enc, enc.FrameSizeBytes(), nil
	}
}

// newLogger builds the process-wide slog logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
