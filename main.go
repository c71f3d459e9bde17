package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbfluid/config"
	"github.com/pthm-cable/pbfluid/game"
	"github.com/pthm-cable/pbfluid/stream"
	"github.com/pthm-cable/pbfluid/terminal"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	terminalMode := flag.Bool("terminal", false, "Render an ASCII density view in the terminal")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and the effective config")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config spawn seed)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")
	streamOn := flag.Bool("stream", false, "Serve particle frames over websocket")
	streamAddr := flag.String("stream-addr", "", "Websocket listen address (empty = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// The terminal view owns stdout, so logs go to a file or nowhere.
	var logOut io.Writer = os.Stdout
	if *terminalMode {
		logOut = io.Discard
		if *outputDir != "" {
			if err := os.MkdirAll(*outputDir, 0755); err == nil {
				if f, err := os.Create(filepath.Join(*outputDir, "run.log")); err == nil {
					defer f.Close()
					logOut = f
				}
			}
		}
	}

	// Set up slog (JSON for structured logging)
	logger := slog.New(slog.NewJSONHandler(logOut, nil))
	slog.SetDefault(logger)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Spawn.Seed
	}

	opts := game.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		Headless:       *headless || *terminalMode,
		StepsPerUpdate: *stepsPerUpdate,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !opts.Headless {
		// Graphical mode needs the window before the game builds its panels
		rl.SetConfigFlags(rl.FlagWindowResizable)
		rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "pbfluid")
		defer rl.CloseWindow()
		rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	}

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	if *streamOn {
		addr := cfg.Stream.Address
		if *streamAddr != "" {
			addr = *streamAddr
		}
		srv := stream.NewServer(g.Runner(), g.Bounds(), time.Duration(cfg.Stream.IntervalMs)*time.Millisecond)
		g.AttachStream(srv)
		go func() {
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				slog.Error("stream stopped", "error", err)
			}
		}()
	}

	switch {
	case *terminalMode:
		runTerminal(ctx, g, *maxTicks)
	case *headless:
		runHeadless(ctx, g, *maxTicks, *stepsPerUpdate)
	default:
		for !rl.WindowShouldClose() && ctx.Err() == nil {
			g.Update(rl.GetFrameTime())
			g.Draw()

			if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
				break
			}
		}
	}
}

// runHeadless steps as fast as possible until max ticks or interrupt.
func runHeadless(ctx context.Context, g *game.Game, maxTicks, stepsPerUpdate int) {
	slog.Info("starting headless simulation",
		"max_ticks", maxTicks,
		"steps_per_update", stepsPerUpdate,
	)

	for ctx.Err() == nil {
		if err := g.UpdateHeadless(); err != nil {
			slog.Error("step failed", "error", err, "tick", g.Tick())
			return
		}

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return
		}
	}
	slog.Info("interrupted", "tick", g.Tick())
}

// runTerminal steps in real time on a background goroutine while the
// terminal view redraws on this one.
func runTerminal(ctx context.Context, g *game.Game, maxTicks int) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := g.Runner()
	interval := time.Duration(float64(r.DT()) * float64(time.Second))

	go func() {
		if err := r.Run(ctx, interval); err != nil {
			slog.Error("step failed", "error", err)
		}
		cancel()
	}()

	if maxTicks > 0 {
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if int(g.Tick()) >= maxTicks {
						slog.Info("max ticks reached", "tick", g.Tick())
						cancel()
						return
					}
				}
			}
		}()
	}

	term := terminal.New(r, g.Bounds())
	term.TogglePause = g.TogglePause
	term.Reset = g.Reset
	if err := term.Run(ctx, 50*time.Millisecond); err != nil {
		slog.Error("terminal failed", "error", err)
	}
}
