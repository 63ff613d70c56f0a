package protocol

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/substack-protocol/keeper/pkg/chain"
	"github.com/substack-protocol/keeper/pkg/stacks"
	"github.com/substack-protocol/keeper/pkg/types"
	"github.com/substack-protocol/keeper/pkg/types/mocks"
)

const operatorKey = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f2001"

func newTestSubmitter(t *testing.T, key string) (*Submitter, *mocks.StacksNode) {
	t.Helper()

	node := mocks.NewStacksNode(t)
	logger, _ := test.NewNullLogger()

	s, err := NewSubmitter(node, stacks.Testnet, testContracts(t), key, 0, logger)
	require.NoError(t, err)

	return s, node
}

// expectedTx signs the transaction the submitter should produce.
func expectedTx(t *testing.T, nonce uint64, fn string, args ...stacks.Value) []byte {
	t.Helper()

	signer, err := stacks.NewSigner(operatorKey)
	require.NoError(t, err)

	tx := stacks.NewContractCall(stacks.Testnet, testContracts(t).Engine, fn, args...)
	tx.Fee = DefaultTxFee
	tx.Nonce = nonce
	require.NoError(t, signer.Sign(tx))

	raw, err := tx.Serialize()
	require.NoError(t, err)

	return raw
}

func TestNewSubmitter_InvalidKey(t *testing.T) {
	logger, _ := test.NewNullLogger()

	_, err := NewSubmitter(mocks.NewStacksNode(t), stacks.Testnet, testContracts(t), "abc", 0, logger)
	assert.ErrorIs(t, err, stacks.ErrInvalidPrivateKey)
}

func TestSubmitter_MissingKey(t *testing.T) {
	s, _ := newTestSubmitter(t, "")
	assert.Empty(t, s.Address())

	_, err := s.ExecuteCharge(context.Background(), subscriber, 1)
	assert.ErrorIs(t, err, ErrMissingOperatorKey)

	_, err = s.ExecuteBatchCharges(context.Background(), []types.ChargeRequest{{Subscriber: subscriber, PlanID: 1}})
	assert.ErrorIs(t, err, ErrMissingOperatorKey)
}

func TestSubmitter_ExecuteCharge(t *testing.T) {
	s, node := newTestSubmitter(t, operatorKey)
	operator := s.Address()
	require.NotEmpty(t, operator)

	raw := expectedTx(t, 7, FnExecuteCharge, principal(t, subscriber), stacks.UInt(2))

	node.On("AccountNonce", mock.Anything, operator).Return(uint64(7), nil).Once()
	node.On("BroadcastTransaction", mock.Anything, raw).Return(types.TxID("abc123"), nil).Once()

	txid, err := s.ExecuteCharge(context.Background(), subscriber, 2)
	require.NoError(t, err)
	assert.Equal(t, types.TxID("abc123"), txid)
}

func TestSubmitter_NoncesAdvanceWithinCycle(t *testing.T) {
	s, node := newTestSubmitter(t, operatorKey)
	operator := s.Address()

	// the node has not seen the first transaction yet when the second is built
	node.On("AccountNonce", mock.Anything, operator).Return(uint64(3), nil).Twice()
	node.On("BroadcastTransaction", mock.Anything, expectedTx(t, 3, FnExecuteCharge, principal(t, subscriber), stacks.UInt(1))).
		Return(types.TxID("a"), nil).Once()
	node.On("BroadcastTransaction", mock.Anything, expectedTx(t, 4, FnExecuteCharge, principal(t, subscriber), stacks.UInt(2))).
		Return(types.TxID("b"), nil).Once()

	_, err := s.ExecuteCharge(context.Background(), subscriber, 1)
	require.NoError(t, err)

	_, err = s.ExecuteCharge(context.Background(), subscriber, 2)
	require.NoError(t, err)
}

func TestSubmitter_FailedBroadcastResetsNonce(t *testing.T) {
	s, node := newTestSubmitter(t, operatorKey)
	operator := s.Address()

	first := expectedTx(t, 3, FnExecuteCharge, principal(t, subscriber), stacks.UInt(1))
	retry := expectedTx(t, 3, FnExecuteCharge, principal(t, subscriber), stacks.UInt(2))

	node.On("AccountNonce", mock.Anything, operator).Return(uint64(3), nil).Twice()
	node.On("BroadcastTransaction", mock.Anything, first).
		Return(types.TxID(""), &chain.BroadcastError{Status: 400, Err: "transaction rejected", Reason: "BadNonce"}).Once()
	node.On("BroadcastTransaction", mock.Anything, retry).Return(types.TxID("ok"), nil).Once()

	_, err := s.ExecuteCharge(context.Background(), subscriber, 1)

	var rejection *chain.BroadcastError
	require.ErrorAs(t, err, &rejection)

	txid, err := s.ExecuteCharge(context.Background(), subscriber, 2)
	require.NoError(t, err)
	assert.Equal(t, types.TxID("ok"), txid)
}

func TestSubmitter_NonceLookupFails(t *testing.T) {
	s, node := newTestSubmitter(t, operatorKey)

	node.On("AccountNonce", mock.Anything, s.Address()).Return(uint64(0), fmt.Errorf("node down")).Once()

	_, err := s.ExecuteCharge(context.Background(), subscriber, 1)
	assert.ErrorContains(t, err, "fetch operator nonce")
}

func TestSubmitter_ExecuteBatchCharges_Empty(t *testing.T) {
	s, node := newTestSubmitter(t, operatorKey)

	txid, err := s.ExecuteBatchCharges(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, txid)

	node.AssertNotCalled(t, "AccountNonce", mock.Anything, mock.Anything)
	node.AssertNotCalled(t, "BroadcastTransaction", mock.Anything, mock.Anything)
}

func TestSubmitter_ExecuteBatchCharges_Truncates(t *testing.T) {
	s, node := newTestSubmitter(t, operatorKey)

	charges := make([]types.ChargeRequest, 0, 12)
	for i := uint64(1); i <= 12; i++ {
		charges = append(charges, types.ChargeRequest{Subscriber: subscriber, PlanID: i})
	}

	list := make(stacks.ListValue, 0, MaxBatchCharges)
	for _, c := range charges[:MaxBatchCharges] {
		list = append(list, stacks.TupleValue{
			"subscriber": principal(t, string(c.Subscriber)),
			"plan-id":    stacks.UInt(c.PlanID),
		})
	}

	node.On("AccountNonce", mock.Anything, s.Address()).Return(uint64(0), nil).Once()
	node.On("BroadcastTransaction", mock.Anything, expectedTx(t, 0, FnBatchExecuteCharges, list)).
		Return(types.TxID("batch"), nil).Once()

	txid, err := s.ExecuteBatchCharges(context.Background(), charges)
	require.NoError(t, err)
	assert.Equal(t, types.TxID("batch"), txid)
}

func TestNonceTracker(t *testing.T) {
	var n nonceTracker

	assert.Equal(t, uint64(5), n.reserve(5))
	assert.Equal(t, uint64(6), n.reserve(5))
	assert.Equal(t, uint64(9), n.reserve(9))

	n.reset()
	assert.Equal(t, uint64(2), n.reserve(2))
}
