package keeper

import (
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/substack-protocol/keeper/pkg/types"
	"github.com/substack-protocol/keeper/pkg/types/mocks"
)

func subscriberN(n int) types.Principal {
	return types.Principal(fmt.Sprintf("ST%03dSUBSCRIBER", n))
}

func expectTotalPlans(r *mocks.PlanReader, total uint64) {
	r.On("GetTotalPlans", mock.Anything).Return(types.Success(total))
}

func expectHeight(r *mocks.PlanReader, height uint64) {
	r.On("GetCurrentBlockHeight", mock.Anything).Return(types.Success(height))
}

func expectPlan(r *mocks.PlanReader, plan *types.Plan, subscribers ...types.Principal) {
	r.On("GetPlan", mock.Anything, plan.ID).Return(types.Success(plan))

	if plan.Active && plan.SubscriberCount > 0 {
		r.On("GetPlanSubscribers", mock.Anything, plan.ID).Return(types.Success(subscribers))
	}
}

func expectDue(r *mocks.PlanReader, subscriber types.Principal, planID, recordedAmount uint64) {
	r.On("IsChargeDue", mock.Anything, subscriber, planID).Return(types.Success(true))
	r.On("GetSubscription", mock.Anything, subscriber, planID).Return(types.Success(&types.Subscription{
		Subscriber:   subscriber,
		PlanID:       planID,
		Active:       true,
		PlanAmount:   recordedAmount,
		PlanInterval: 144,
	}))
}

func expectNotDue(r *mocks.PlanReader, subscriber types.Principal, planID uint64) {
	r.On("IsChargeDue", mock.Anything, subscriber, planID).Return(types.Success(false))
}

func activePlan(id, amount uint64, subscribers int) *types.Plan {
	return &types.Plan{
		ID:              id,
		Merchant:        "ST1MERCHANT",
		Amount:          amount,
		IntervalBlocks:  144,
		Active:          true,
		SubscriberCount: uint64(subscribers),
	}
}
