package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"seatcap/internal/config"
	appLog "seatcap/internal/log"
	"seatcap/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool

	// once-mode: run a single job from flags and exit.
	once     bool
	date     string
	rrule    string
	timeExpr string
	name     string
	capacity int
}

func main() {
	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("seatcap starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"base_url", conf.BaseURL,
		"timezone", conf.Timezone,
		"nav_page_bound", conf.NavPageBound,
		"headless", conf.Headless,
		"scheduled_jobs", len(conf.Jobs),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	engine, err := web.NewEngine(conf)
	if err != nil {
		appLog.Error("failed to build engine", err)
		os.Exit(1)
	}

	if flags.once {
		os.Exit(runOnce(ctx, engine, flags))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.NewServer(conf, engine).Serve(gctx)
	})
	g.Go(func() error {
		return web.StartScheduler(gctx, conf, engine)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		appLog.Error("server terminated", err)
		os.Exit(1)
	}
	appLog.Info("seatcap exiting")
}

// runOnce executes one job from the CLI and prints its result as JSON.
func runOnce(ctx context.Context, engine *web.Engine, flags flagConfig) int {
	res := engine.Run(ctx, web.JobRequest{
		Date:     flags.date,
		RRule:    flags.rrule,
		Time:     flags.timeExpr,
		Name:     flags.name,
		Capacity: flags.capacity,
		Debug:    flags.debug,
	})

	out, _ := json.MarshalIndent(res, "", "  ")
	os.Stdout.Write(append(out, '\n'))

	if res.OK {
		return 0
	}
	return 1
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/seatcap/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and screenshot artifacts")
	flag.BoolVar(&cfg.once, "once", false, "Run one job from flags and exit")
	flag.StringVar(&cfg.date, "date", "", "Target date (ISO, e.g. 2025-03-10)")
	flag.StringVar(&cfg.rrule, "rrule", "", "Recurrence rule targeting the next occurrence")
	flag.StringVar(&cfg.timeExpr, "time", "", "Target start time (e.g. 07:00 or 7:00 pm)")
	flag.StringVar(&cfg.name, "name", "", "Optional class name substring")
	flag.IntVar(&cfg.capacity, "capacity", -1, "New seat capacity")

	flag.Parse()

	return cfg
}
