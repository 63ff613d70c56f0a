package protocol

import (
	"github.com/pkg/errors"

	"github.com/substack-protocol/keeper/pkg/stacks"
	"github.com/substack-protocol/keeper/pkg/types"
)

func uintField(tuple stacks.Value, name string) (uint64, error) {
	f, err := stacks.Field(tuple, name)
	if err != nil {
		return 0, err
	}

	v, err := stacks.AsUint64(f)

	return v, errors.Wrapf(err, "field %s", name)
}

func boolField(tuple stacks.Value, name string) (bool, error) {
	f, err := stacks.Field(tuple, name)
	if err != nil {
		return false, err
	}

	v, err := stacks.AsBool(f)

	return v, errors.Wrapf(err, "field %s", name)
}

func decodePlan(id uint64, tuple stacks.Value) (*types.Plan, error) {
	f, err := stacks.Field(tuple, "merchant")
	if err != nil {
		return nil, err
	}

	merchant, err := stacks.AsPrincipal(f)
	if err != nil {
		return nil, errors.Wrap(err, "field merchant")
	}

	plan := &types.Plan{ID: id, Merchant: types.Principal(merchant)}

	if plan.Amount, err = uintField(tuple, "amount"); err != nil {
		return nil, err
	}

	if plan.IntervalBlocks, err = uintField(tuple, "interval-blocks"); err != nil {
		return nil, err
	}

	if plan.Active, err = boolField(tuple, "active"); err != nil {
		return nil, err
	}

	if plan.SubscriberCount, err = uintField(tuple, "subscriber-count"); err != nil {
		return nil, err
	}

	return plan, nil
}

func decodeSubscription(subscriber types.Principal, planID uint64, tuple stacks.Value) (*types.Subscription, error) {
	var err error

	sub := &types.Subscription{Subscriber: subscriber, PlanID: planID}

	if sub.Active, err = boolField(tuple, "active"); err != nil {
		return nil, err
	}

	if sub.PlanAmount, err = uintField(tuple, "plan-amount"); err != nil {
		return nil, err
	}

	if sub.PlanInterval, err = uintField(tuple, "plan-interval"); err != nil {
		return nil, err
	}

	return sub, nil
}

func decodePrincipals(v stacks.Value) ([]types.Principal, error) {
	items, err := stacks.AsList(v)
	if err != nil {
		return nil, err
	}

	out := make([]types.Principal, 0, len(items))
	for i, item := range items {
		p, err := stacks.AsPrincipal(item)
		if err != nil {
			return nil, errors.Wrapf(err, "subscriber %d", i)
		}

		out = append(out, types.Principal(p))
	}

	return out, nil
}
