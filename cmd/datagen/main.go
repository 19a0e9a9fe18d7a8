package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourname/commerce-datagen/internal/config"
	"github.com/yourname/commerce-datagen/internal/logger"
	"github.com/yourname/commerce-datagen/internal/metrics"
	"github.com/yourname/commerce-datagen/internal/pipeline"
)

type RunCmd struct {
	NumUserRecords  int `help:"Number of user/product rows to seed" short:"u" default:"100"`
	NumClickRecords int `help:"Number of click sessions to stream" short:"n" default:"100000000"`
}

func (r *RunCmd) Validate() error {
	if r.NumUserRecords < 0 || r.NumClickRecords < 0 {
		return errors.New("record counts must not be negative")
	}
	return nil
}

type SeedCmd struct {
	NumUserRecords int `help:"Number of user/product rows to seed" short:"u" default:"100"`
}

func (s *SeedCmd) Validate() error {
	if s.NumUserRecords < 0 {
		return errors.New("--num-user-records must not be negative")
	}
	return nil
}

type StreamCmd struct {
	NumClickRecords int `help:"Number of click sessions to stream" short:"n" default:"100000000"`
}

func (s *StreamCmd) Validate() error {
	if s.NumClickRecords < 0 {
		return errors.New("--num-click-records must not be negative")
	}
	return nil
}

type CLI struct {
	Config      string `help:"Path to config YAML; built-in defaults when omitted" short:"c" type:"existingfile" optional:""`
	LogEnv      string `help:"Logger flavour (development|production); overrides log.env"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address; overrides metrics.addr"`

	Run    RunCmd    `cmd:"" default:"withargs" help:"Seed Postgres, then stream click/checkout events to Kafka"`
	Seed   SeedCmd   `cmd:"" help:"Only seed Postgres users and products"`
	Stream StreamCmd `cmd:"" help:"Only stream click/checkout events to Kafka"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli, kong.Name("datagen"), kong.Description("Synthetic e-commerce users, products, clicks and checkouts"))

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cli.LogEnv != "" {
		cfg.Log.Env = cli.LogEnv
	}
	if cli.MetricsAddr != "" {
		cfg.Metrics.Addr = cli.MetricsAddr
	}

	log, err := logger.New(cfg.Log.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	p, err := pipeline.New(cfg, log)
	if err != nil {
		log.Fatal("init pipeline", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		s := <-c
		log.Info("shutdown requested", zap.String("signal", s.String()))
		cancel()
	}()

	var run func(ctx context.Context) error
	switch kctx.Command() {
	case "seed":
		run = func(ctx context.Context) error {
			_, err := p.Seed(ctx, cli.Seed.NumUserRecords)
			return err
		}
	case "stream":
		run = func(ctx context.Context) error {
			_, err := p.Stream(ctx, cli.Stream.NumClickRecords)
			return err
		}
	default:
		run = func(ctx context.Context) error {
			return p.Run(ctx, cli.Run.NumUserRecords, cli.Run.NumClickRecords)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, done := context.WithCancel(gctx)
	defer done()
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			return metrics.Serve(runCtx, cfg.Metrics.Addr)
		})
	}
	g.Go(func() error {
		defer done()
		return run(runCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("datagen failed", zap.String("command", kctx.Command()), zap.Error(err))
	}
	log.Info("datagen finished", zap.String("command", kctx.Command()))
}
