// Package main is the entry point for the decklive bridge.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/decklive/decklive-bridge/internal/config"
	"github.com/decklive/decklive-bridge/internal/domain/bridge"
	"github.com/decklive/decklive-bridge/internal/infra/delivery"
	"github.com/decklive/decklive-bridge/internal/infra/netdiag"
	"github.com/decklive/decklive-bridge/internal/infra/remote"
	"github.com/decklive/decklive-bridge/internal/logging"
	"github.com/decklive/decklive-bridge/internal/plugin"
	mpdplugin "github.com/decklive/decklive-bridge/internal/plugin/mpd"
	"github.com/decklive/decklive-bridge/internal/plugin/simulator"
	"github.com/decklive/decklive-bridge/internal/transport/socketio"
	"github.com/decklive/decklive-bridge/internal/version"
)

func main() {
	// Command line flags; non-empty values override the config file
	configPath := flag.String("config", "", "Path to YAML config file")
	pluginID := flag.String("plugin", "", "Equipment plugin to start")
	endpoint := flag.String("endpoint", "", "Now-playing notification endpoint URL")
	token := flag.String("token", "", "Bearer token for the notification endpoint")
	port := flag.Int("port", 0, "HTTP server port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	listPlugins := flag.Bool("list-plugins", false, "Print available plugins as JSON and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *pluginID != "" {
		cfg.Plugin = *pluginID
	}
	if *endpoint != "" {
		cfg.Delivery.Endpoint = *endpoint
	}
	if *token != "" {
		cfg.Delivery.Token = *token
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *debug {
		cfg.Debug = true
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logging.SetMinLevel(logging.LevelDebug)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logging.SetMinLevel(logging.LevelInfo)
	}

	// Plugin registry
	registry := plugin.NewRegistry()
	mustRegister(registry, "mpd", func() plugin.Plugin { return mpdplugin.New() })
	mustRegister(registry, "simulator", func() plugin.Plugin { return simulator.New() })

	if *listPlugins {
		json.NewEncoder(os.Stdout).Encode(registry.ListMeta())
		return
	}

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  DJ Equipment Now-Playing Bridge")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Int("port", cfg.Port).
		Str("plugin", cfg.Plugin).
		Str("endpoint", cfg.Delivery.Endpoint).
		Bool("token_set", cfg.Delivery.Token != "").
		Msg("Configuration")

	warnings := netdiag.Warnings()
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	// Outbound delivery: HTTP when an endpoint is configured, the log
	// otherwise
	var sender delivery.Sender
	if cfg.Delivery.Endpoint != "" {
		sender = remote.NewClient(cfg.Delivery.Endpoint, cfg.Delivery.Token)
	} else {
		log.Warn().Msg("No notification endpoint configured, now-playing events go to the log only")
		sender = logSender{}
	}
	notifier := delivery.NewNotifier(sender,
		delivery.WithFailureThreshold(cfg.Delivery.FailureThreshold),
		delivery.WithCooldown(time.Duration(cfg.Delivery.CooldownSeconds)*time.Second),
		delivery.WithBufferCapacity(cfg.Delivery.BufferSize),
	)

	br := bridge.New(registry, notifier, bridge.Config{
		Deck:     cfg.Deck,
		Warnings: warnings,
	})

	// Socket.io server for local UI clients
	socketServer, err := socketio.NewServer(br.Status)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	br.SetStatusFunc(func(bridge.Status) { socketServer.QueueStatus() })

	// Diagnostics fan out to both the console and connected UI clients
	logging.SetHandler(func(e logging.Entry) {
		emitConsole(e)
		socketServer.PushLog(e)
	})
	defer logging.ResetHandler()

	if err := br.Start(cfg.Plugin, cfg.PluginConfig); err != nil {
		log.Fatal().Err(err).Str("plugin", cfg.Plugin).Msg("Failed to start bridge")
	}
	defer br.Stop()

	// Setup HTTP server
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketServer)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := br.Status()
		w.Header().Set("Content-Type", "application/json")
		if !status.Running {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","bridge":"stopped"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","bridge":"running"}`))
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	mux.HandleFunc("/api/v1/plugins", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registry.ListMeta())
	})

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(br.Status())
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		br.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}

func mustRegister(r *plugin.Registry, id string, factory plugin.Factory) {
	if err := r.Register(id, factory); err != nil {
		log.Fatal().Err(err).Str("plugin", id).Msg("Plugin registration failed")
	}
}

// emitConsole mirrors one diagnostics entry onto the zerolog console
// output.
func emitConsole(e logging.Entry) {
	var ev *zerolog.Event
	switch e.Level {
	case logging.LevelDebug:
		ev = log.Debug()
	case logging.LevelWarn:
		ev = log.Warn()
	case logging.LevelError:
		ev = log.Error()
	default:
		ev = log.Info()
	}
	ev.Str("component", e.Component).Msg(e.Message)
}

// logSender is the delivery backend used when no endpoint is
// configured: payloads are logged and considered delivered.
type logSender struct{}

func (logSender) NowPlaying(_ context.Context, p delivery.NowPlayingPayload) error {
	log.Info().
		Str("event", p.EventCode).
		Str("title", p.Title).
		Str("artist", p.Artist).
		Str("deck", p.Deck).
		Bool("delayed", p.Delayed).
		Msg("Now playing")
	return nil
}

func (logSender) Status(_ context.Context, p delivery.StatusPayload) error {
	log.Info().
		Bool("connected", p.Connected).
		Str("device", p.DeviceName).
		Msg("Equipment status")
	return nil
}
