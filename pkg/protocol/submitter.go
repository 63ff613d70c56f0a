package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/substack-protocol/keeper/pkg/chain"
	"github.com/substack-protocol/keeper/pkg/prommetrics"
	"github.com/substack-protocol/keeper/pkg/stacks"
	"github.com/substack-protocol/keeper/pkg/telemetry"
	"github.com/substack-protocol/keeper/pkg/types"
)

const (
	// MaxBatchCharges is the most charges the engine accepts in one
	// batch-execute-charges call.
	MaxBatchCharges = 10

	DefaultTxFee uint64 = 10000
)

var ErrMissingOperatorKey = fmt.Errorf("keeper private key not configured")

// Submitter signs and broadcasts charge transactions from the operator
// account. Submissions are serialized so nonces are assigned in order.
type Submitter struct {
	mu        sync.Mutex
	node      types.StacksNode
	network   stacks.Network
	contracts Contracts
	signer    *stacks.Signer
	fee       uint64
	nonces    nonceTracker
	log       logrus.FieldLogger
}

var _ types.ChargeSubmitter = (*Submitter)(nil)

// NewSubmitter builds a submitter. An empty privateKey is accepted; every
// submission then fails with ErrMissingOperatorKey. A malformed key is an
// error.
func NewSubmitter(node types.StacksNode, network stacks.Network, contracts Contracts, privateKey string, fee uint64, logger logrus.FieldLogger) (*Submitter, error) {
	s := &Submitter{
		node:      node,
		network:   network,
		contracts: contracts,
		fee:       fee,
		log:       telemetry.WrapLogger(logger, "submitter"),
	}

	if s.fee == 0 {
		s.fee = DefaultTxFee
	}

	if strings.TrimSpace(privateKey) != "" {
		signer, err := stacks.NewSigner(privateKey)
		if err != nil {
			return nil, err
		}

		s.signer = signer
	}

	return s, nil
}

// Address returns the operator address, or the empty string when no key is
// configured.
func (s *Submitter) Address() string {
	if s.signer == nil {
		return ""
	}

	return s.signer.Address(s.network)
}

// ExecuteCharge submits execute-charge(subscriber, planID) to the engine.
func (s *Submitter) ExecuteCharge(ctx context.Context, subscriber types.Principal, planID uint64) (types.TxID, error) {
	if s.signer == nil {
		return "", ErrMissingOperatorKey
	}

	arg, err := principalArg(subscriber)
	if err != nil {
		return "", err
	}

	return s.submit(ctx, FnExecuteCharge, arg, stacks.UInt(planID))
}

// ExecuteBatchCharges submits up to MaxBatchCharges charges in a single
// transaction. Extra charges are dropped from the end. An empty batch sends
// nothing and returns an empty TxID.
func (s *Submitter) ExecuteBatchCharges(ctx context.Context, charges []types.ChargeRequest) (types.TxID, error) {
	if s.signer == nil {
		return "", ErrMissingOperatorKey
	}

	if len(charges) == 0 {
		return "", nil
	}

	if len(charges) > MaxBatchCharges {
		s.log.WithField("requested", len(charges)).Warnf("batch truncated to %d charges", MaxBatchCharges)
		charges = charges[:MaxBatchCharges]
	}

	list := make(stacks.ListValue, 0, len(charges))
	for _, c := range charges {
		arg, err := principalArg(c.Subscriber)
		if err != nil {
			return "", err
		}

		list = append(list, stacks.TupleValue{
			"subscriber": arg,
			"plan-id":    stacks.UInt(c.PlanID),
		})
	}

	return s.submit(ctx, FnBatchExecuteCharges, list)
}

func (s *Submitter) submit(ctx context.Context, fn string, args ...stacks.Value) (types.TxID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender := s.signer.Address(s.network)

	chainNext, err := s.node.AccountNonce(ctx, sender)
	if err != nil {
		return "", pkgerrors.Wrap(err, "fetch operator nonce")
	}

	tx := stacks.NewContractCall(s.network, s.contracts.Engine, fn, args...)
	tx.Fee = s.fee
	tx.Nonce = s.nonces.reserve(chainNext)

	if err := s.signer.Sign(tx); err != nil {
		s.nonces.reset()
		return "", err
	}

	raw, err := tx.Serialize()
	if err != nil {
		s.nonces.reset()
		return "", pkgerrors.Wrapf(err, "serialize %s", fn)
	}

	txid, err := s.node.BroadcastTransaction(ctx, raw)
	if err != nil {
		// the nonce was not consumed; follow the chain again next time
		s.nonces.reset()
		prommetrics.KeeperBroadcastFailures.Inc()

		var rejection *chain.BroadcastError
		if errors.As(err, &rejection) && rejection.NonceRejected() {
			s.log.WithField("nonce", tx.Nonce).Warn("nonce rejected by node")
		}

		return "", err
	}

	s.log.WithFields(logrus.Fields{
		"function": fn,
		"nonce":    tx.Nonce,
		"txid":     txid,
	}).Debug("transaction broadcast")

	return txid, nil
}
