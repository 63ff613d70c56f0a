package protocol

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/substack-protocol/keeper/pkg/prommetrics"
	"github.com/substack-protocol/keeper/pkg/stacks"
	"github.com/substack-protocol/keeper/pkg/telemetry"
	"github.com/substack-protocol/keeper/pkg/types"
)

var ErrInvalidPrincipal = fmt.Errorf("invalid principal")

// Reader answers read-only questions about plans, subscriptions and vault
// balances. It never caches; every call goes to the node.
type Reader struct {
	node      types.StacksNode
	contracts Contracts
	log       logrus.FieldLogger
}

var _ types.PlanReader = (*Reader)(nil)

// NewReader is the constructor of Reader
func NewReader(node types.StacksNode, contracts Contracts, logger logrus.FieldLogger) *Reader {
	return &Reader{
		node:      node,
		contracts: contracts,
		log:       telemetry.WrapLogger(logger, "reader"),
	}
}

// call evaluates fn on contract with the deployer as sender.
func (r *Reader) call(ctx context.Context, contract stacks.ContractID, fn string, args ...stacks.Value) (stacks.Value, error) {
	v, err := r.node.CallReadOnly(ctx, contract, fn, contract.Address, args...)
	if err != nil {
		return nil, r.failed(fn, err)
	}

	return v, nil
}

func (r *Reader) failed(fn string, err error) error {
	prommetrics.KeeperQueryFailures.WithLabelValues(fn).Inc()
	r.log.WithError(err).WithField("function", fn).Debug("query failed")

	return err
}

func principalArg(p types.Principal) (stacks.Value, error) {
	v, err := stacks.Principal(string(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrincipal, err)
	}

	return v, nil
}

// GetCurrentBlockHeight returns the chain tip height, or 0 when the node
// cannot be reached. The value is advisory only.
func (r *Reader) GetCurrentBlockHeight(ctx context.Context) types.Result[uint64] {
	height, err := r.node.LatestBlockHeight(ctx)
	if err != nil {
		return types.Failure(uint64(0), r.failed("block-height", err))
	}

	return types.Success(height)
}

// GetTotalPlans returns the number of plans ever created.
func (r *Reader) GetTotalPlans(ctx context.Context) types.Result[uint64] {
	v, err := r.call(ctx, r.contracts.Plans, FnGetTotalPlans)
	if err != nil {
		return types.Failure(uint64(0), err)
	}

	total, err := stacks.AsUint64(v)
	if err != nil {
		return types.Failure(uint64(0), r.failed(FnGetTotalPlans, err))
	}

	return types.Success(total)
}

// GetPlan returns the plan record, or nil when the plan does not exist.
func (r *Reader) GetPlan(ctx context.Context, planID uint64) types.Result[*types.Plan] {
	v, err := r.call(ctx, r.contracts.Plans, FnGetPlan, stacks.UInt(planID))
	if err != nil {
		return types.Failure[*types.Plan](nil, err)
	}

	inner, present, err := stacks.Unwrap(v)
	if err != nil {
		return types.Failure[*types.Plan](nil, r.failed(FnGetPlan, err))
	}

	if !present {
		return types.Success[*types.Plan](nil)
	}

	plan, err := decodePlan(planID, inner)
	if err != nil {
		return types.Failure[*types.Plan](nil, r.failed(FnGetPlan, errors.Wrapf(err, "plan %d", planID)))
	}

	return types.Success(plan)
}

// GetPlanSubscribers returns the plan's subscribers in chain order.
func (r *Reader) GetPlanSubscribers(ctx context.Context, planID uint64) types.Result[[]types.Principal] {
	v, err := r.call(ctx, r.contracts.Engine, FnGetPlanSubscribers, stacks.UInt(planID))
	if err != nil {
		return types.Failure[[]types.Principal](nil, err)
	}

	subscribers, err := decodePrincipals(v)
	if err != nil {
		return types.Failure[[]types.Principal](nil, r.failed(FnGetPlanSubscribers, errors.Wrapf(err, "plan %d", planID)))
	}

	return types.Success(subscribers)
}

// IsChargeDue reports whether the engine would accept a charge now. Any
// failure reads as not due.
func (r *Reader) IsChargeDue(ctx context.Context, subscriber types.Principal, planID uint64) types.Result[bool] {
	arg, err := principalArg(subscriber)
	if err != nil {
		return types.Failure(false, err)
	}

	v, err := r.call(ctx, r.contracts.Engine, FnIsChargeDue, arg, stacks.UInt(planID))
	if err != nil {
		return types.Failure(false, err)
	}

	due, err := stacks.AsBool(v)
	if err != nil {
		return types.Failure(false, r.failed(FnIsChargeDue, err))
	}

	return types.Success(due)
}

// GetSubscription returns the subscription record, or nil when absent.
func (r *Reader) GetSubscription(ctx context.Context, subscriber types.Principal, planID uint64) types.Result[*types.Subscription] {
	arg, err := principalArg(subscriber)
	if err != nil {
		return types.Failure[*types.Subscription](nil, err)
	}

	v, err := r.call(ctx, r.contracts.Engine, FnGetSubscription, arg, stacks.UInt(planID))
	if err != nil {
		return types.Failure[*types.Subscription](nil, err)
	}

	inner, present, err := stacks.Unwrap(v)
	if err != nil {
		return types.Failure[*types.Subscription](nil, r.failed(FnGetSubscription, err))
	}

	if !present {
		return types.Success[*types.Subscription](nil)
	}

	sub, err := decodeSubscription(subscriber, planID, inner)
	if err != nil {
		return types.Failure[*types.Subscription](nil, r.failed(FnGetSubscription, err))
	}

	return types.Success(sub)
}

// GetBalance returns the principal's vault balance in micro-units.
func (r *Reader) GetBalance(ctx context.Context, principal types.Principal) types.Result[uint64] {
	arg, err := principalArg(principal)
	if err != nil {
		return types.Failure(uint64(0), err)
	}

	v, err := r.call(ctx, r.contracts.Vault, FnGetBalance, arg)
	if err != nil {
		return types.Failure(uint64(0), err)
	}

	balance, err := stacks.AsUint64(v)
	if err != nil {
		return types.Failure(uint64(0), r.failed(FnGetBalance, err))
	}

	return types.Success(balance)
}
