// imeprobe inspects the input method state of a window.
//
// It polls the window's input context and prints every change to the
// composition, the committed result, and the candidate list. It can also
// enable or disable IME input for a window and place the candidate window.
//
// Usage:
//
//	go build -o imeprobe.exe ./cmd/imeprobe
//	imeprobe [options] [watch|once|allow|disallow|place <x> <y>|info]
//
// Windows owned by other processes usually report no input context, so
// the probe is most useful when pointed at a window of the calling process.
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
	"runtime"
	"strconv"
	"syscall"
	"time"

	"imectx/internal/config"
	"imectx/internal/dpi"
	"imectx/internal/health"
	"imectx/internal/ime"
	"imectx/internal/logging"
	"imectx/internal/metrics"
	"imectx/internal/probe"
)

var (
	configPath = flag.String("config", "", "path to config file")
	hwndFlag   = flag.String("hwnd", "", "window handle, or \"foreground\" (overrides config)")
	outputFlag = flag.String("output", "", "report format: text or json (overrides config)")
	noWatch    = flag.Bool("no-reload", false, "do not reload the config file on change")
	metricsArg = flag.String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
)

// Input contexts belong to the thread that owns the window.
func init() {
	runtime.LockOSThread()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cmd := "watch"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	if err := run(cmd, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "imeprobe: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `imeprobe - Input method context probe

Usage: imeprobe [options] [command] [args]

Commands:
  watch           Print composition changes until interrupted (default)
  once            Print the current state and exit
  allow           Enable IME input for the window
  disallow        Disable IME input for the window and its children
  place <x> <y>   Keep the candidate window clear of a logical point
  info            Show the input method backend
  help            Show this help message

Options:`)
	flag.PrintDefaults()
}

func run(cmd string, args []string) error {
	if cmd == "help" {
		usage()
		return nil
	}

	path := *configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		path = config.ConfigPath()
	}

	loader := config.NewLoader(path)
	defer loader.Close()

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if err := applyFlags(cfg); err != nil {
		return err
	}

	var level slog.LevelVar
	logger, err := newLogger(cfg, &level)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)
	logger.Debug("config loaded", "path", path)

	platform := ime.NewPlatform()

	if cmd == "info" {
		info := ime.Describe(platform)
		fmt.Printf("Backend:   %s\n", info.Name)
		fmt.Printf("Framework: %s\n", info.Framework)
		fmt.Printf("Available: %v\n", info.Available)
		return nil
	}

	if !ime.Available(platform) {
		return ime.ErrUnavailable
	}

	window, err := windowFunc(cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case "watch":
		return watch(platform, window, cfg, loader, &level, logger)
	case "once":
		format, err := probe.ParseFormat(cfg.Probe.Output)
		if err != nil {
			return err
		}
		snap := probe.Take(platform, window(), probe.Options{
			Candidates: cfg.Probe.Candidates,
			Logger:     logger.Logger,
		})
		return probe.NewReporter(os.Stdout, format).Report(snap)
	case "allow", "disallow":
		hwnd := window()
		ime.SetAllowed(platform, hwnd, cmd == "allow")
		logger.Info("input method association changed", "hwnd", uintptr(hwnd), "allowed", cmd == "allow")
		return nil
	case "place":
		spot, err := placeArgs(cfg, args[1:])
		if err != nil {
			return err
		}
		ctx := ime.Acquire(platform, window(), ime.WithLogger(logger.Logger))
		defer ctx.Release()
		if ctx.Handle() == 0 {
			return errors.New("window has no input context")
		}
		ctx.SetCandidatePosition(spot, cfg.Candidate.ScaleFactor)
		logger.Info("candidate window placed", "spot", spot.String(), "scale", cfg.Candidate.ScaleFactor)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// applyFlags layers command line overrides over the loaded config.
func applyFlags(cfg *config.Config) error {
	if *hwndFlag != "" {
		cfg.Probe.Window = *hwndFlag
	}
	if *outputFlag != "" {
		cfg.Probe.Output = *outputFlag
	}
	if *metricsArg != "" {
		cfg.Probe.MetricsAddr = *metricsArg
	}
	return cfg.Validate()
}

func newLogger(cfg *config.Config, level *slog.LevelVar) (*logging.Logger, error) {
	lvl, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	level.Set(lvl)

	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	return logging.New(&logging.Config{
		Level:     lvl,
		Leveler:   level,
		Format:    format,
		Output:    cfg.Logging.Output,
		LogText:   cfg.Logging.LogText,
		Component: "imeprobe",
	})
}

func windowFunc(cfg *config.Config) (probe.WindowFunc, error) {
	hwnd, fixed, err := cfg.WindowHandle()
	if err != nil {
		return nil, err
	}
	if fixed {
		return probe.Fixed(ime.HWND(hwnd)), nil
	}
	return ime.ForegroundWindow, nil
}

// placeArgs reads the logical point for the place command. Missing
// coordinates fall back to the configured offsets.
func placeArgs(cfg *config.Config, args []string) (dpi.LogicalPosition, error) {
	spot := dpi.LogicalPosition{X: cfg.Candidate.OffsetX, Y: cfg.Candidate.OffsetY}
	switch len(args) {
	case 0:
		return spot, nil
	case 2:
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return spot, fmt.Errorf("invalid x: %w", err)
		}
		y, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return spot, fmt.Errorf("invalid y: %w", err)
		}
		return dpi.LogicalPosition{X: x, Y: y}, nil
	default:
		return spot, errors.New("usage: imeprobe place <x> <y>")
	}
}

func watch(platform ime.Platform, window probe.WindowFunc, cfg *config.Config, loader *config.Loader, level *slog.LevelVar, logger *logging.Logger) error {
	format, err := probe.ParseFormat(cfg.Probe.Output)
	if err != nil {
		return err
	}

	poller := probe.NewPoller(platform, window, probe.NewReporter(os.Stdout, format), cfg.PollInterval(), logger.Logger)
	poller.SetCandidates(cfg.Probe.Candidates)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := cfg.Probe.MetricsAddr; addr != "" {
		m := metrics.NewProbeMetrics(metrics.NewRegistry("imectx"))
		poller.SetMetrics(m)

		checker := health.NewChecker(time.Second)
		checker.Register("ime", true, health.IMECheck(platform))
		checker.Register("sampling", false, health.FreshnessCheck(poller.LastSample, 10*poller.Interval()+time.Second))

		srv := metricsServer(addr, m.Registry(), checker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", addr)
	}

	if !*noWatch {
		loader.OnChange(func(c *config.Config) {
			if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
				level.Set(lvl)
			}
			poller.SetInterval(c.PollInterval())
			poller.SetCandidates(c.Probe.Candidates)
			logger.Info("config reloaded", "interval", c.PollInterval(), "level", c.Logging.Level)
		})
		if err := loader.Watch(ctx); err != nil {
			logger.Warn("config watch unavailable", "error", err)
		} else {
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case err := <-loader.Errors():
						logger.Warn("config reload failed", "error", err)
					}
				}
			}()
		}
	}

	logger.Info("watching input method state", "interval", poller.Interval(), "format", string(format))
	return poller.Run(ctx)
}

func metricsServer(addr string, registry *metrics.Registry, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.HTTPHandler())
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
