// Command swarmserve runs the swarm headless and streams its state to
// WebSocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/game"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	addr := flag.String("addr", "", "Listen address (empty = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	listen := cfg.Server.Address
	if *addr != "" {
		listen = *addr
	}
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	simOpts, err := game.OptionsFromConfig(cfg, rngSeed)
	if err != nil {
		slog.Error("invalid swarm config", "error", err)
		os.Exit(1)
	}
	simOpts.Logger = logger
	if simOpts.Params.ParticleCount > cfg.Server.MaxParticles {
		simOpts.Params.ParticleCount = cfg.Server.MaxParticles
	}

	r, err := game.NewRunner(game.RunnerOptions{
		Sim:            simOpts,
		LogStats:       *logStats,
		StatsWindowSec: cfg.Telemetry.StatsWindow,
		PerfWindow:     cfg.Telemetry.PerfCollectorWindow,
		StepsPerUpdate: 1,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer r.Close()

	srv := NewServer(r, cfg.Server.MaxParticles, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", srv)
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, req *http.Request) {
		frame, err := srv.Frame()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(frame)
	})
	httpServer := &http.Server{Addr: listen, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.Run(ctx, cfg.Server.FPS)

	go func() {
		<-ctx.Done()
		srv.CloseClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("serving swarm frames",
		"addr", listen,
		"fps", cfg.Server.FPS,
		"particles", r.Sim().Len(),
		"seed", rngSeed,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
