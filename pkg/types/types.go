package types

import (
	"context"
	"fmt"

	"github.com/substack-protocol/keeper/pkg/stacks"
)

// Principal is a chain address identifying a subscriber, merchant or
// operator account.
type Principal string

// TxID identifies a broadcast transaction. The empty TxID means no
// transaction was sent.
type TxID string

// Plan is a merchant-defined recurring charge template.
type Plan struct {
	ID              uint64
	Merchant        Principal
	Amount          uint64
	IntervalBlocks  uint64
	Active          bool
	SubscriberCount uint64
}

// Subscription is a subscriber's enrollment in a plan. PlanAmount and
// PlanInterval are the values recorded when the subscriber enrolled.
type Subscription struct {
	Subscriber   Principal
	PlanID       uint64
	Active       bool
	PlanAmount   uint64
	PlanInterval uint64
}

// DueCharge is a charge discovered during a single keeper cycle.
type DueCharge struct {
	Subscriber Principal
	PlanID     uint64
	Amount     uint64
}

func (c DueCharge) String() string {
	return fmt.Sprintf("%s -> plan #%d", c.Subscriber, c.PlanID)
}

// ChargeRequest identifies one charge to execute.
type ChargeRequest struct {
	Subscriber Principal
	PlanID     uint64
}

// Result carries the outcome of a chain query. On failure Value holds the
// documented default for the query and Err is set, so callers that only need
// the default can use Value directly while tests and logs can still tell a
// failed query apart from a genuine zero.
type Result[T any] struct {
	Value T
	Err   error
}

// Success wraps a value from a successful query.
func Success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Failure wraps a query error with the default value.
func Failure[T any](def T, err error) Result[T] {
	return Result[T]{Value: def, Err: err}
}

// Ok reports whether the query succeeded.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// PlanReader is the read-only view of the subscription contracts.
//
//go:generate mockery --name PlanReader --output ./mocks/ --case=underscore
type PlanReader interface {
	GetCurrentBlockHeight(context.Context) Result[uint64]
	GetTotalPlans(context.Context) Result[uint64]
	GetPlan(context.Context, uint64) Result[*Plan]
	GetPlanSubscribers(context.Context, uint64) Result[[]Principal]
	IsChargeDue(context.Context, Principal, uint64) Result[bool]
	GetSubscription(context.Context, Principal, uint64) Result[*Subscription]
	GetBalance(context.Context, Principal) Result[uint64]
}

// ChargeSubmitter signs and broadcasts charge transactions.
//
//go:generate mockery --name ChargeSubmitter --output ./mocks/ --case=underscore
type ChargeSubmitter interface {
	ExecuteCharge(context.Context, Principal, uint64) (TxID, error)
	ExecuteBatchCharges(context.Context, []ChargeRequest) (TxID, error)
}

// StacksNode is the transport to a Stacks node API.
//
//go:generate mockery --name StacksNode --output ./mocks/ --case=underscore
type StacksNode interface {
	LatestBlockHeight(context.Context) (uint64, error)
	CallReadOnly(ctx context.Context, contract stacks.ContractID, function string, sender string, args ...stacks.Value) (stacks.Value, error)
	AccountNonce(context.Context, string) (uint64, error)
	BroadcastTransaction(context.Context, []byte) (TxID, error)
}
