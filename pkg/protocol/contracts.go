package protocol

import (
	"github.com/pkg/errors"

	"github.com/substack-protocol/keeper/pkg/stacks"
)

// read-only functions
const (
	FnGetTotalPlans      = "get-total-plans"
	FnGetPlan            = "get-plan"
	FnGetPlanSubscribers = "get-plan-subscribers"
	FnIsChargeDue        = "is-charge-due"
	FnGetSubscription    = "get-subscription"
	FnGetBalance         = "get-balance"
)

// public functions
const (
	FnExecuteCharge       = "execute-charge"
	FnBatchExecuteCharges = "batch-execute-charges"
)

// Contracts holds the three deployed protocol contracts.
type Contracts struct {
	Vault  stacks.ContractID
	Plans  stacks.ContractID
	Engine stacks.ContractID
}

// ParseContracts parses the vault, plans and engine identifiers.
func ParseContracts(vault, plans, engine string) (Contracts, error) {
	var (
		c   Contracts
		err error
	)

	if c.Vault, err = stacks.ParseContractID(vault); err != nil {
		return c, errors.Wrap(err, "vault contract")
	}

	if c.Plans, err = stacks.ParseContractID(plans); err != nil {
		return c, errors.Wrap(err, "plans contract")
	}

	if c.Engine, err = stacks.ParseContractID(engine); err != nil {
		return c, errors.Wrap(err, "engine contract")
	}

	return c, nil
}
