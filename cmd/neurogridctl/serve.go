package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"neurogrid/internal/sim"
	"neurogrid/internal/stream"
)

// newDriver builds a simulation from the resolved flags and wraps it in a
// driver publishing to publisher.
func newDriver(simFlags *simulationFlags, publisher stream.Publisher, options stream.DriverOptions) (*stream.Driver, error) {
	cfg, err := simFlags.resolve()
	if err != nil {
		return nil, err
	}
	simCfg, err := cfg.simConfig()
	if err != nil {
		return nil, err
	}
	s, err := sim.New(simCfg, rand.New(rand.NewSource(cfg.Simulation.Seed)), options.Logger)
	if err != nil {
		return nil, err
	}
	state, err := s.Init()
	if err != nil {
		return nil, err
	}
	return stream.NewDriver(s, state, publisher, options), nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	intervalMS := fs.Int("interval-ms", 50, "delay between ticks while running")
	paused := fs.Bool("paused", false, "start paused until a run or step command arrives")
	withNetwork := fs.Bool("with-network", true, "attach the most evolved network to every frame")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	logFormat := fs.String("log-format", "text", "log format: text|json")
	simFlags := bindSimulationFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger, err := newLogger(stderr, *logLevel, *logFormat)
	if err != nil {
		return err
	}

	hub := stream.NewHub(logger)
	driver, err := newDriver(simFlags, hub, stream.DriverOptions{
		Interval:    time.Duration(*intervalMS) * time.Millisecond,
		StartPaused: *paused,
		WithNetwork: *withNetwork,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler(driver))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "ok tick=%d mode=%s clients=%d\n", driver.State().Tick, driver.Mode(), hub.Clients())
	})
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	return serve(ctx, srv, hub, driver, logger)
}

// serve runs the hub, the driver and the HTTP server until ctx is done or one
// of them fails.
func serve(ctx context.Context, srv *http.Server, hub *stream.Hub, driver *stream.Driver, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go hub.Run(ctx)
	errs := make(chan error, 2)
	go func() {
		errs <- driver.Run(ctx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	logger.Info("serving simulation", "addr", srv.Addr, "mode", string(driver.Mode()))
	fmt.Printf("serving addr=%s websocket=/ws mode=%s\n", srv.Addr, driver.Mode())

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	fmt.Printf("stopped tick=%d\n", driver.State().Tick)
	return nil
}
