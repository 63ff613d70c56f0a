package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/substack-protocol/keeper/internal/util"
	"github.com/substack-protocol/keeper/pkg/chain"
	"github.com/substack-protocol/keeper/pkg/config"
	"github.com/substack-protocol/keeper/pkg/keeper"
	"github.com/substack-protocol/keeper/pkg/protocol"
	"github.com/substack-protocol/keeper/pkg/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

type options struct {
	envFile     string
	once        bool
	metricsAddr string
	logLevel    string
}

func parseFlags(args []string, out io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("keeper", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVarP(&opts.envFile, "env-file", "e", "", "env file to load before reading the environment; defaults to ./.env when present")
	fs.BoolVar(&opts.once, "once", false, "run a single keeper cycle and exit")
	fs.StringVarP(&opts.metricsAddr, "metrics-addr", "m", "", "address to serve prometheus metrics on; overrides METRICS_ADDR")
	fs.StringVarP(&opts.logLevel, "log-level", "l", "", "debug, info, warn or error; overrides LOG_LEVEL")

	return opts, fs.Parse(args)
}

func run(args []string, out io.Writer) int {
	opts, err := parseFlags(args, out)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		return 1
	}

	logger, err := telemetry.NewLogger(opts.logLevel, out)
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}

	lggr := telemetry.WrapLogger(logger, "main")

	var files []string
	if opts.envFile != "" {
		files = append(files, opts.envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		lggr.WithError(err).Error("configuration error")
		return 1
	}

	if opts.logLevel == "" {
		// validated during load
		level, _ := telemetry.ParseLevel(cfg.LogLevel)
		logger.SetLevel(level)
	}

	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}

	if err := cfg.RequireSigningKey(); err != nil {
		lggr.WithError(err).Error("configuration error")
		return 1
	}

	node, err := chain.NewClient(cfg.ChainConfig())
	if err != nil {
		lggr.WithError(err).Error("configuration error")
		return 1
	}

	submitter, err := protocol.NewSubmitter(node, cfg.Network, cfg.Contracts, cfg.PrivateKey, cfg.TxFee, logger)
	if err != nil {
		lggr.WithError(err).Error("invalid operator key")
		return 1
	}

	reader := protocol.NewReader(node, cfg.Contracts, logger)
	k := keeper.NewKeeper(reader, submitter, cfg.KeeperConfig(), logger)

	writeBanner(out, cfg, submitter.Address(), opts.once)

	if cfg.MetricsAddr != "" {
		metrics := util.NewRecoverableService(newMetricsServer(cfg.MetricsAddr), telemetry.WrapLogger(logger, "metrics"))
		metrics.Start()
		defer metrics.Stop()

		lggr.WithField("addr", cfg.MetricsAddr).Info("serving metrics")
	}

	if opts.once {
		return runOnce(k, lggr)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(signals)

	return serve(context.Background(), keeper.NewService(k, cfg.CheckInterval, logger), signals, lggr)
}

func runOnce(k *keeper.Keeper, lggr logrus.FieldLogger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := k.RunCycle(ctx)
	if err != nil {
		lggr.WithError(err).Error("keeper cycle failed")
		return 1
	}

	lggr.WithFields(logrus.Fields{
		"cycle":    report.ID,
		"due":      report.Due,
		"executed": report.Executed,
		"duration": report.Duration,
	}).Info("single cycle finished")

	return 0
}

// serve runs the scheduler until SIGINT or SIGTERM. SIGUSR1 runs a cycle
// immediately.
func serve(ctx context.Context, svc *keeper.Service, signals <-chan os.Signal, lggr logrus.FieldLogger) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	for {
		select {
		case sig := <-signals:
			if sig == syscall.SIGUSR1 {
				if err := svc.Trigger(); err != nil {
					lggr.WithError(err).Warn("manual cycle not started")
				}

				continue
			}

			lggr.WithField("signal", sig.String()).Info("shutting down")

			if err := svc.Close(); err != nil && !errors.Is(err, keeper.ErrServiceNotRunning) {
				lggr.WithError(err).Error("scheduler close failed")
			}

			cancel()

			if err := <-done; err != nil {
				lggr.WithError(err).Error("scheduler stopped with error")
				return 1
			}

			lggr.Info("keeper stopped")

			return 0
		case err := <-done:
			if err != nil {
				lggr.WithError(err).Error("scheduler stopped with error")
				return 1
			}

			return 0
		}
	}
}
