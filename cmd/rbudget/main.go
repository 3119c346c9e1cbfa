package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rbudget/internal/amqp"
	"rbudget/internal/cli"
	"rbudget/internal/config"
	"rbudget/internal/core"
	applog "rbudget/internal/log"
	"rbudget/internal/report"
	"rbudget/internal/scenario/memory"
	"rbudget/internal/services"
	"rbudget/internal/simulation"
)

type options struct {
	scenario string
	start    string
	days     int
	summary  bool
	compare  string
	remote   bool
	timeout  time.Duration
}

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(os.Stderr, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout, logger); err != nil {
		logger.Error("Projection failed", applog.FieldScenario, opts.scenario, applog.FieldError, err)
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("rbudget", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.scenario, "scenario", cfg.Scenario, "scenario to project")
	fs.StringVar(&opts.start, "start", cfg.SimulationStart, "first simulated day, YYYY-MM-DD")
	fs.IntVar(&opts.days, "days", cfg.ProjectionDays, "number of days to print")
	fs.BoolVar(&opts.summary, "summary", false, "print a per-account summary after the days")
	fs.StringVar(&opts.compare, "compare", "", "comma separated scenarios whose final values are compared")
	fs.BoolVar(&opts.remote, "remote", false, "ask a worker over AMQP instead of projecting locally")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "how long to wait for a remote projection")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		fmt.Fprintln(stderr, err)
		return options{}, err
	}
	if opts.days < 1 || opts.days > services.MaxHorizon {
		err := fmt.Errorf("-days must be between 1 and %d", services.MaxHorizon)
		fmt.Fprintln(stderr, err)
		return options{}, err
	}
	return opts, nil
}

// startDate picks the first simulated day. The built-in sample runs from the
// day it was written for unless told otherwise.
func startDate(cfg *config.Config, opts options, now time.Time) (core.Date, error) {
	if opts.start != "" {
		return core.ParseDate(opts.start)
	}
	if cfg.DataBackend == config.BackendMemory && cfg.ScenarioDir == "" {
		return memory.SampleStart, nil
	}
	return core.DateOf(now.UTC()), nil
}

func compareNames(list string) []string {
	var names []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer, logger *applog.Logger) error {
	start, err := startDate(cfg, opts, time.Now())
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	if opts.remote {
		return runRemote(ctx, cfg, opts, start, out, logger)
	}

	source, err := cli.CreateSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn("Closing scenario backend failed", applog.FieldError, err)
		}
	}()
	svc := services.NewProjectionService(source.Source, cli.ProjectionConfig(cfg), logger)

	if names := compareNames(opts.compare); len(names) > 0 {
		projections, err := svc.Compare(ctx, names, start, opts.days)
		if err != nil {
			return err
		}
		finals := make([]simulation.Snapshot, len(projections))
		for i, p := range projections {
			finals[i] = p.Days[len(p.Days)-1].Values
		}
		if err := report.WriteHeader(out, strings.Join(names, ", "), start, opts.days); err != nil {
			return err
		}
		return report.Compare(out, names, finals)
	}

	p, err := svc.Project(ctx, opts.scenario, start, opts.days)
	if err != nil {
		return err
	}
	if !opts.summary {
		return report.WriteDays(out, p.Days)
	}
	if err := report.WriteHeader(out, p.Scenario, p.Start, len(p.Days)); err != nil {
		return err
	}
	if err := report.WriteDays(out, p.Days); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return report.WriteSummary(out, p.Summary, p.Days)
}

func runRemote(ctx context.Context, cfg *config.Config, opts options, start core.Date, out io.Writer, logger *applog.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("-remote needs AMQP_URL")
	}
	if opts.summary || opts.compare != "" {
		logger.Warn("Remote projections print days only; -summary and -compare are ignored")
	}

	client, err := amqp.NewClient(amqp.Options{
		URL:          cfg.AMQPURL,
		Exchange:     cfg.AMQPExchange,
		RequestQueue: cfg.AMQPRequestQueue,
		ResultQueue:  cfg.AMQPResultQueue,
		ContentType:  cfg.AMQPContentType,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	res, err := client.Request(ctx, amqp.NewProjectionRequest(opts.scenario, start, opts.days))
	if err != nil {
		return fmt.Errorf("remote projection: %w", err)
	}
	if res.Error != "" {
		return fmt.Errorf("worker: %s", res.Error)
	}
	days, err := res.Snapshots()
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return report.WriteDays(out, days)
}
