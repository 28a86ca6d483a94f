// Command schedulerd runs the time-series ingestion job scheduler: its
// persistent scheduler, tick loop, and HTTP API in a single process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/app"
	"github.com/r3e-collective/tsdata-scheduler/internal/config"
	"github.com/r3e-collective/tsdata-scheduler/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("schedulerd", flag.ContinueOnError)
	timezone := fs.String("timezone", "UTC", "IANA timezone set as the process TZ (cron triggers are evaluated in UTC)")
	verbose := fs.Bool("v", false, "enable debug logging")
	if len(args) == 0 || args[0] != "run" {
		fmt.Fprintln(os.Stderr, "usage: schedulerd run [--timezone=<tz>] [-v]")
		return 1
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	if _, err := time.LoadLocation(*timezone); err != nil {
		fmt.Fprintf(os.Stderr, "invalid timezone %q: %v\n", *timezone, err)
		return 1
	}
	os.Setenv("TZ", *timezone)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("initialize application")
		return 1
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(rootCtx); err != nil {
		log.WithError(err).Error("start application")
		return 1
	}
	log.WithField("addr", cfg.API.Addr()).Info("schedulerd listening")

	<-rootCtx.Done()
	log.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownGrace)
	defer cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
		return 1
	}

	return 130
}
