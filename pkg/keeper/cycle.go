package keeper

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/substack-protocol/keeper/pkg/prommetrics"
	"github.com/substack-protocol/keeper/pkg/protocol"
	"github.com/substack-protocol/keeper/pkg/telemetry"
	"github.com/substack-protocol/keeper/pkg/types"
)

var (
	ErrCycleInProgress = fmt.Errorf("keeper cycle already in progress")
	ErrCyclePanicked   = fmt.Errorf("keeper cycle panicked")
)

const (
	DefaultBatchSize = 10
	DefaultMinProfit = 1000
	DefaultMaxPlans  = 100
)

type Config struct {
	BatchSize           int
	MinProfit           uint64
	MaxPlans            uint64
	ScanConcurrency     int
	UseBatchExecution   bool
	RequireVaultBalance bool
}

// CycleReport describes what a single keeper cycle did.
type CycleReport struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	BlockHeight uint64
	Stats       ScanStats
	Due         int
	Profitable  int
	Attempted   int
	Executed    int
	TxIDs       []types.TxID
	// Failures aggregates per-charge submission errors. A cycle with
	// failures still completes.
	Failures error
}

// Keeper runs keeper cycles. At most one cycle runs at a time; a cycle
// requested while another is running is dropped.
type Keeper struct {
	reader    types.PlanReader
	submitter types.ChargeSubmitter
	scanner   *Scanner
	cfg       Config
	running   atomic.Bool
	log       logrus.FieldLogger
}

func NewKeeper(reader types.PlanReader, submitter types.ChargeSubmitter, cfg Config, logger logrus.FieldLogger) *Keeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Keeper{
		reader:    reader,
		submitter: submitter,
		scanner: NewScanner(reader, ScannerConfig{
			MaxPlans:            cfg.MaxPlans,
			Concurrency:         cfg.ScanConcurrency,
			RequireVaultBalance: cfg.RequireVaultBalance,
		}, logger),
		cfg: cfg,
		log: telemetry.WrapLogger(logger, "keeper"),
	}
}

// Running reports whether a cycle is in progress.
func (k *Keeper) Running() bool {
	return k.running.Load()
}

// RunCycle performs one scan and submission pass. It returns
// ErrCycleInProgress without doing anything when another cycle holds the
// keeper. Per-charge failures are reported in CycleReport.Failures; the
// returned error is reserved for the cycle as a whole.
func (k *Keeper) RunCycle(ctx context.Context) (report *CycleReport, err error) {
	if !k.running.CompareAndSwap(false, true) {
		k.log.Warn("previous cycle still running, skipping")
		prommetrics.KeeperCycles.WithLabelValues(prommetrics.OutcomeSkipped).Inc()

		return nil, ErrCycleInProgress
	}
	defer k.running.Store(false)

	report = &CycleReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	lggr := k.log.WithField("cycle", report.ID)

	defer func() {
		report.Duration = time.Since(report.StartedAt)
		prommetrics.KeeperCycleDuration.Observe(report.Duration.Seconds())

		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanicked, rec)
			lggr.WithField("stack", string(debug.Stack())).WithError(err).Error("cycle failed")
			prommetrics.KeeperCycles.WithLabelValues(prommetrics.OutcomeFailed).Inc()
		}
	}()

	lggr.Info("starting keeper cycle")

	if height := k.reader.GetCurrentBlockHeight(ctx); height.Ok() {
		report.BlockHeight = height.Value
		prommetrics.KeeperBlockHeight.Set(float64(height.Value))
		lggr.WithField("height", height.Value).Info("current block height")
	} else {
		lggr.WithError(height.Err).Warn("block height unavailable")
	}

	due, stats := k.scanner.FindDueCharges(ctx)
	report.Stats = stats
	report.Due = len(due)
	prommetrics.KeeperDueCharges.Set(float64(len(due)))

	lggr.WithFields(logrus.Fields{
		"plans":          stats.PlansScanned,
		"skipped":        stats.PlansSkipped,
		"subscribers":    stats.SubscribersChecked,
		"query_failures": stats.QueryFailures,
	}).Infof("found %d due charges", len(due))

	if len(due) == 0 {
		lggr.Info("cycle complete, no charges")
		prommetrics.KeeperCycles.WithLabelValues(prommetrics.OutcomeEmpty).Inc()

		return report, nil
	}

	profitable := k.filterProfitable(due)
	report.Profitable = len(profitable)
	prommetrics.KeeperProfitableCharges.Set(float64(len(profitable)))

	lggr.WithField("min_profit", FormatSTX(k.cfg.MinProfit)).
		Infof("%d charges above profit threshold", len(profitable))

	batch := profitable
	if len(batch) > k.cfg.BatchSize {
		batch = batch[:k.cfg.BatchSize]
	}

	report.Attempted = len(batch)

	if k.cfg.UseBatchExecution {
		k.submitBatches(ctx, lggr, batch, report)
	} else {
		k.submitEach(ctx, lggr, batch, report)
	}

	lggr.WithFields(logrus.Fields{
		"attempted": report.Attempted,
		"failed":    len(multierr.Errors(report.Failures)),
	}).Infof("cycle complete: %d charges executed", report.Executed)

	prommetrics.KeeperCycles.WithLabelValues(prommetrics.OutcomeCompleted).Inc()

	return report, nil
}

func (k *Keeper) filterProfitable(charges []types.DueCharge) []types.DueCharge {
	out := make([]types.DueCharge, 0, len(charges))
	for _, c := range charges {
		if KeeperFee(c.Amount) >= k.cfg.MinProfit {
			out = append(out, c)
		}
	}

	return out
}

func (k *Keeper) submitEach(ctx context.Context, lggr logrus.FieldLogger, charges []types.DueCharge, report *CycleReport) {
	for _, charge := range charges {
		cl := lggr.WithFields(logrus.Fields{
			"subscriber": charge.Subscriber,
			"plan":       charge.PlanID,
			"fee":        FormatSTX(KeeperFee(charge.Amount)),
		})

		cl.Infof("executing %s", charge)

		txid, err := k.submitter.ExecuteCharge(ctx, charge.Subscriber, charge.PlanID)
		if err != nil {
			report.Failures = multierr.Append(report.Failures, fmt.Errorf("%s: %w", charge, err))
			prommetrics.KeeperChargesFailed.Inc()
			cl.WithError(err).Error("charge failed")

			continue
		}

		report.Executed++
		report.TxIDs = append(report.TxIDs, txid)
		prommetrics.KeeperChargesExecuted.Inc()
		cl.WithField("txid", txid).Info("charge submitted")
	}
}

func (k *Keeper) submitBatches(ctx context.Context, lggr logrus.FieldLogger, charges []types.DueCharge, report *CycleReport) {
	for start := 0; start < len(charges); start += protocol.MaxBatchCharges {
		end := start + protocol.MaxBatchCharges
		if end > len(charges) {
			end = len(charges)
		}

		requests := make([]types.ChargeRequest, 0, end-start)
		for _, c := range charges[start:end] {
			requests = append(requests, types.ChargeRequest{Subscriber: c.Subscriber, PlanID: c.PlanID})
		}

		bl := lggr.WithField("charges", len(requests))

		txid, err := k.submitter.ExecuteBatchCharges(ctx, requests)
		if err != nil {
			report.Failures = multierr.Append(report.Failures, fmt.Errorf("batch of %d: %w", len(requests), err))
			prommetrics.KeeperChargesFailed.Add(float64(len(requests)))
			bl.WithError(err).Error("batch failed")

			continue
		}

		report.Executed += len(requests)
		report.TxIDs = append(report.TxIDs, txid)
		prommetrics.KeeperChargesExecuted.Add(float64(len(requests)))
		bl.WithField("txid", txid).Info("batch submitted")
	}
}
