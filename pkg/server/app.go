// Package server owns the process lifecycle: scheduler, HTTP surface and shutdown.
package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"FarePull/pkg/config"
	xhttp "FarePull/pkg/http"
	applogger "FarePull/pkg/logger"
	"FarePull/pkg/scheduler"
)

// NamedCloser is a resource released on shutdown, in registration order.
type NamedCloser struct {
	Name   string
	Closer io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	sched      *scheduler.Scheduler
	handlers   []xhttp.Handler
	closers    []NamedCloser
	startup    []string
	httpServer *xhttp.Server
}

// New takes the jobs to trigger once at start; they only run when run_on_start is set.
func New(cfg *config.Config, l *applogger.Logger, sched *scheduler.Scheduler, handlers []xhttp.Handler, closers []NamedCloser, startup []string) *App {
	return &App{cfg: cfg, l: l, sched: sched, handlers: handlers, closers: closers, startup: startup}
}

// Run starts the scheduler and the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.httpServer = xhttp.NewServer(a.l, a.handlers,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	a.sched.Start()
	if a.cfg.Schedule.RunOnStart {
		go a.runStartupJobs(ctx)
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) runStartupJobs(ctx context.Context) {
	for _, name := range a.startup {
		err := a.sched.RunNow(ctx, name)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, scheduler.ErrBusy):
			a.l.Info("startup run skipped, job already running", applogger.String("job", name))
		default:
			a.l.Error("startup run failed", applogger.String("job", name), applogger.Error(err))
		}
	}
}

// shutdown stops intake first, then waits for running jobs, then releases stores.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if err := a.sched.Stop(ctx); err != nil {
		a.l.Warn("scheduler stop error", applogger.Error(err))
		errs = append(errs, err)
	}
	// flush log digests while the producer is still open
	a.l.RemoveCollector()
	for _, c := range a.closers {
		if c.Closer == nil {
			continue
		}
		if err := c.Closer.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
