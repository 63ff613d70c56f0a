package keeper

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// FeeBasisPoints is the keeper's share of each charge (0.2%).
	FeeBasisPoints         = 20
	BasisPointsDenominator = 10000

	microUnitExp = -6
)

// KeeperFee returns floor(amount * 0.2%) without overflowing for large
// amounts.
func KeeperFee(amount uint64) uint64 {
	return amount/BasisPointsDenominator*FeeBasisPoints +
		(amount%BasisPointsDenominator)*FeeBasisPoints/BasisPointsDenominator
}

// FormatSTX renders micro-STX as STX with six decimals.
func FormatSTX(micro uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(micro), microUnitExp).StringFixed(6)
}
