package keeper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/substack-protocol/keeper/pkg/types"
	"github.com/substack-protocol/keeper/pkg/types/mocks"
)

func defaultConfig() Config {
	return Config{
		BatchSize:       DefaultBatchSize,
		MinProfit:       DefaultMinProfit,
		MaxPlans:        DefaultMaxPlans,
		ScanConcurrency: DefaultScanConcurrency,
	}
}

func TestKeeper_ThreePlanScenario(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	a, b, c := subscriberN(1), subscriberN(2), subscriberN(3)

	expectHeight(reader, 1500)
	expectTotalPlans(reader, 3)

	// fee 200, below the default threshold
	expectPlan(reader, activePlan(1, 100_000, 2), a, b)
	expectDue(reader, a, 1, 100_000)
	expectDue(reader, b, 1, 100_000)

	// fee 2000
	expectPlan(reader, activePlan(2, 1_000_000, 1), c)
	expectDue(reader, c, 2, 1_000_000)

	expectPlan(reader, &types.Plan{ID: 3, Amount: 1_000_000, Active: false, SubscriberCount: 4})

	submitter.On("ExecuteCharge", mock.Anything, c, uint64(2)).Return(types.TxID("0xabc"), nil).Once()

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	report, err := k.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1500), report.BlockHeight)
	assert.Equal(t, 3, report.Due)
	assert.Equal(t, 1, report.Profitable)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Executed)
	assert.Equal(t, []types.TxID{"0xabc"}, report.TxIDs)
	assert.NoError(t, report.Failures)
	assert.NotEmpty(t, report.ID)

	reader.AssertNotCalled(t, "GetPlanSubscribers", mock.Anything, uint64(3))
	reader.AssertNotCalled(t, "IsChargeDue", mock.Anything, mock.Anything, uint64(3))
	submitter.AssertNotCalled(t, "ExecuteCharge", mock.Anything, a, uint64(1))
	assert.False(t, k.Running())
}

func TestKeeper_TransientDueCheckFailure(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	a, b, c := subscriberN(1), subscriberN(2), subscriberN(3)

	expectHeight(reader, 10)
	expectTotalPlans(reader, 1)
	expectPlan(reader, activePlan(1, 1_000_000, 3), a, b, c)
	expectDue(reader, a, 1, 1_000_000)
	reader.On("IsChargeDue", mock.Anything, b, uint64(1)).Return(types.Failure(false, fmt.Errorf("503 from node")))
	expectDue(reader, c, 1, 1_000_000)

	submitter.On("ExecuteCharge", mock.Anything, a, uint64(1)).Return(types.TxID("tx-a"), nil).Once()
	submitter.On("ExecuteCharge", mock.Anything, c, uint64(1)).Return(types.TxID("tx-c"), nil).Once()

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	report, err := k.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Executed)
	assert.Equal(t, 1, report.Stats.QueryFailures)
	assert.Equal(t, []types.TxID{"tx-a", "tx-c"}, report.TxIDs)
	reader.AssertNotCalled(t, "GetSubscription", mock.Anything, b, uint64(1))
}

func TestKeeper_UsesRecordedAmount(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	early, late := subscriberN(1), subscriberN(2)

	expectHeight(reader, 10)
	expectTotalPlans(reader, 1)

	// the merchant lowered the price after early subscribed
	expectPlan(reader, activePlan(1, 100_000, 2), early, late)
	expectDue(reader, early, 1, 1_000_000)
	expectDue(reader, late, 1, 100_000)

	submitter.On("ExecuteCharge", mock.Anything, early, uint64(1)).Return(types.TxID("tx"), nil).Once()

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	report, err := k.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Due)
	assert.Equal(t, 1, report.Profitable)
	assert.Equal(t, 1, report.Executed)
	submitter.AssertNotCalled(t, "ExecuteCharge", mock.Anything, late, uint64(1))
}

func TestKeeper_BatchSizeCapsAttempts(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	subs := make([]types.Principal, 0, 15)
	for i := 0; i < 15; i++ {
		subs = append(subs, subscriberN(i))
	}

	expectHeight(reader, 10)
	expectTotalPlans(reader, 1)
	expectPlan(reader, activePlan(1, 1_000_000, len(subs)), subs...)
	for _, sub := range subs {
		expectDue(reader, sub, 1, 1_000_000)
	}

	var (
		mu       sync.Mutex
		executed []types.Principal
	)

	submitter.On("ExecuteCharge", mock.Anything, mock.Anything, uint64(1)).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			executed = append(executed, args.Get(1).(types.Principal))
		}).
		Return(types.TxID("tx"), nil)

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	report, err := k.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 15, report.Profitable)
	assert.Equal(t, DefaultBatchSize, report.Attempted)
	assert.Equal(t, subs[:DefaultBatchSize], executed)
}

func TestKeeper_ContinuesAfterChargeFailure(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	a, b, c := subscriberN(1), subscriberN(2), subscriberN(3)

	expectHeight(reader, 10)
	expectTotalPlans(reader, 1)
	expectPlan(reader, activePlan(1, 1_000_000, 3), a, b, c)
	for _, sub := range []types.Principal{a, b, c} {
		expectDue(reader, sub, 1, 1_000_000)
	}

	submitter.On("ExecuteCharge", mock.Anything, a, uint64(1)).Return(types.TxID(""), fmt.Errorf("rejected")).Once()
	submitter.On("ExecuteCharge", mock.Anything, b, uint64(1)).Return(types.TxID(""), fmt.Errorf("timeout")).Once()
	submitter.On("ExecuteCharge", mock.Anything, c, uint64(1)).Return(types.TxID("tx-c"), nil).Once()

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	report, err := k.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 1, report.Executed)
	assert.Len(t, multierr.Errors(report.Failures), 2)
	assert.ErrorContains(t, report.Failures, "rejected")
}

func TestKeeper_NoDueCharges(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	reader.On("GetCurrentBlockHeight", mock.Anything).Return(types.Failure(uint64(0), fmt.Errorf("down")))
	expectTotalPlans(reader, 0)

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	report, err := k.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Zero(t, report.BlockHeight)
}

func TestKeeper_BatchExecution(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	subs := make([]types.Principal, 0, 12)
	for i := 0; i < 12; i++ {
		subs = append(subs, subscriberN(i))
	}

	expectHeight(reader, 10)
	expectTotalPlans(reader, 1)
	expectPlan(reader, activePlan(1, 1_000_000, len(subs)), subs...)
	for _, sub := range subs {
		expectDue(reader, sub, 1, 1_000_000)
	}

	var sizes []int
	submitter.On("ExecuteBatchCharges", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).([]types.ChargeRequest)))
		}).
		Return(types.TxID("batch"), nil).Twice()

	cfg := defaultConfig()
	cfg.BatchSize = 12
	cfg.UseBatchExecution = true

	k := NewKeeper(reader, submitter, cfg, logger)

	report, err := k.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{10, 2}, sizes)
	assert.Equal(t, 12, report.Executed)
	assert.Len(t, report.TxIDs, 2)
	submitter.AssertNotCalled(t, "ExecuteCharge", mock.Anything, mock.Anything, mock.Anything)
}

func TestKeeper_SingleFlight(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, hook := test.NewNullLogger()

	release := make(chan struct{})
	entered := make(chan struct{})

	reader.On("GetCurrentBlockHeight", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(types.Success(uint64(10))).Once()
	expectTotalPlans(reader, 0)

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	done := make(chan error, 1)
	go func() {
		_, err := k.RunCycle(context.Background())
		done <- err
	}()

	<-entered
	assert.True(t, k.Running())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = k.RunCycle(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrCycleInProgress)
	}

	close(release)
	require.NoError(t, <-done)
	assert.False(t, k.Running())

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "previous cycle still running, skipping" {
			warnings++
		}
	}
	assert.Equal(t, 8, warnings)

	reader.AssertNumberOfCalls(t, "GetCurrentBlockHeight", 1)
}

func TestKeeper_RecoversFromPanic(t *testing.T) {
	reader := mocks.NewPlanReader(t)
	submitter := mocks.NewChargeSubmitter(t)
	logger, _ := test.NewNullLogger()

	a := subscriberN(1)

	expectHeight(reader, 10)
	expectTotalPlans(reader, 1)
	expectPlan(reader, activePlan(1, 1_000_000, 1), a)
	expectDue(reader, a, 1, 1_000_000)

	submitter.On("ExecuteCharge", mock.Anything, a, uint64(1)).
		Run(func(mock.Arguments) { panic("signer exploded") }).
		Return(types.TxID(""), nil).Once()
	submitter.On("ExecuteCharge", mock.Anything, a, uint64(1)).Return(types.TxID("tx"), nil).Once()

	k := NewKeeper(reader, submitter, defaultConfig(), logger)

	report, err := k.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCyclePanicked)
	require.NotNil(t, report)
	assert.Greater(t, report.Duration, time.Duration(0))
	assert.False(t, k.Running())

	// the flag was released so the next cycle runs
	report, err = k.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Executed)
}
