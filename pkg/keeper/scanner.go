package keeper

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/substack-protocol/keeper/internal/util"
	"github.com/substack-protocol/keeper/pkg/telemetry"
	"github.com/substack-protocol/keeper/pkg/types"
)

const (
	DefaultScanConcurrency = 4
	MaxScanConcurrency     = 64
)

// ScanStats summarizes one scan.
type ScanStats struct {
	TotalPlans          uint64
	PlansScanned        int
	PlansSkipped        int
	SubscribersChecked  int
	Due                 int
	InactiveDue         int
	InsufficientBalance int
	QueryFailures       int
}

func (s *ScanStats) add(o ScanStats) {
	s.PlansScanned += o.PlansScanned
	s.PlansSkipped += o.PlansSkipped
	s.SubscribersChecked += o.SubscribersChecked
	s.Due += o.Due
	s.InactiveDue += o.InactiveDue
	s.InsufficientBalance += o.InsufficientBalance
	s.QueryFailures += o.QueryFailures
}

type ScannerConfig struct {
	MaxPlans            uint64
	Concurrency         int
	RequireVaultBalance bool
}

type planScan struct {
	charges []types.DueCharge
	stats   ScanStats
}

// Scanner walks plans and their subscribers to find charges the engine
// would accept now.
type Scanner struct {
	reader types.PlanReader
	cfg    ScannerConfig
	log    logrus.FieldLogger
}

func NewScanner(reader types.PlanReader, cfg ScannerConfig, logger logrus.FieldLogger) *Scanner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	if cfg.Concurrency > MaxScanConcurrency {
		cfg.Concurrency = MaxScanConcurrency
	}

	return &Scanner{
		reader: reader,
		cfg:    cfg,
		log:    telemetry.WrapLogger(logger, "scanner"),
	}
}

// FindDueCharges returns the due charges ordered by plan id, then by the
// plan's subscriber order on chain. Plans are scanned in parallel up to the
// configured concurrency; the order does not depend on it.
func (s *Scanner) FindDueCharges(ctx context.Context) ([]types.DueCharge, ScanStats) {
	var stats ScanStats

	total := s.reader.GetTotalPlans(ctx)
	if !total.Ok() {
		stats.QueryFailures++
		s.log.WithError(total.Err).Warn("failed to read plan count; nothing to scan")
	}

	stats.TotalPlans = total.Value

	limit := total.Value
	if limit > s.cfg.MaxPlans {
		limit = s.cfg.MaxPlans
	}

	if limit == 0 {
		return nil, stats
	}

	planIDs := make([]uint64, 0, limit)
	for id := uint64(1); id <= limit; id++ {
		planIDs = append(planIDs, id)
	}

	concurrency := s.cfg.Concurrency
	if concurrency > len(planIDs) {
		concurrency = len(planIDs)
	}

	workers := util.NewWorkerGroup[planScan](concurrency)
	defer workers.Stop()

	results := util.RunJobs(ctx, workers, planIDs, func(c context.Context, id uint64) (planScan, error) {
		return s.scanPlan(c, id), nil
	})

	var (
		charges   []types.DueCharge
		cancelled int
	)

	for i, r := range results {
		if errors.Is(r.Err, util.ErrContextCancelled) {
			cancelled++
			continue
		}

		if r.Err != nil {
			stats.QueryFailures++
			s.log.WithError(r.Err).WithField("plan", planIDs[i]).Error("plan scan aborted")
			continue
		}

		stats.add(r.Data.stats)
		charges = append(charges, r.Data.charges...)
	}

	if cancelled > 0 {
		s.log.WithField("plans", cancelled).Warn("scan cancelled before all plans were queued")
	}

	return charges, stats
}

func (s *Scanner) scanPlan(ctx context.Context, planID uint64) planScan {
	var out planScan

	lggr := s.log.WithField("plan", planID)

	res := s.reader.GetPlan(ctx, planID)
	if !res.Ok() {
		out.stats.QueryFailures++
		lggr.WithError(res.Err).Warn("failed to read plan")
	}

	plan := res.Value
	if plan == nil || !plan.Active || plan.SubscriberCount == 0 {
		out.stats.PlansSkipped++
		return out
	}

	out.stats.PlansScanned++

	subs := s.reader.GetPlanSubscribers(ctx, planID)
	if !subs.Ok() {
		out.stats.QueryFailures++
		lggr.WithError(subs.Err).Warn("failed to read plan subscribers")
	}

	for _, subscriber := range subs.Value {
		if ctx.Err() != nil {
			return out
		}

		out.stats.SubscribersChecked++

		sl := lggr.WithField("subscriber", subscriber)

		due := s.reader.IsChargeDue(ctx, subscriber, planID)
		if !due.Ok() {
			out.stats.QueryFailures++
			sl.WithError(due.Err).Warn("due check failed; skipping subscriber this cycle")
			continue
		}

		if !due.Value {
			continue
		}

		sub := s.reader.GetSubscription(ctx, subscriber, planID)
		if !sub.Ok() {
			out.stats.QueryFailures++
			sl.WithError(sub.Err).Warn("failed to read subscription")
			continue
		}

		if sub.Value == nil || !sub.Value.Active {
			out.stats.InactiveDue++
			continue
		}

		charge := types.DueCharge{
			Subscriber: subscriber,
			PlanID:     planID,
			Amount:     sub.Value.PlanAmount,
		}

		if s.cfg.RequireVaultBalance && !s.hasBalance(ctx, sl, charge) {
			out.stats.InsufficientBalance++
			continue
		}

		out.stats.Due++
		out.charges = append(out.charges, charge)
	}

	return out
}

func (s *Scanner) hasBalance(ctx context.Context, lggr logrus.FieldLogger, charge types.DueCharge) bool {
	balance := s.reader.GetBalance(ctx, charge.Subscriber)
	if !balance.Ok() {
		lggr.WithError(balance.Err).Warn("balance check failed; skipping subscriber this cycle")
		return false
	}

	if balance.Value < charge.Amount {
		lggr.WithFields(logrus.Fields{
			"balance": FormatSTX(balance.Value),
			"amount":  FormatSTX(charge.Amount),
		}).Info("vault balance below charge amount")

		return false
	}

	return true
}
