package domain

import "github.com/shopspring/decimal"

// FeeKind identifies the operation a fee is quoted for.
type FeeKind string

const (
	FeeDeposit    FeeKind = "deposit"
	FeeWithdrawal FeeKind = "withdrawal"
	FeeTransfer   FeeKind = "transfer"
	FeeTopup      FeeKind = "topup"
)

// Fee brackets in cents. The schedule is advisory: the authoritative fee is
// whatever the gateway or backend actually applies at settlement.
const (
	depositFreeThreshold = 1_000_00
	depositFeeCap        = 50_00

	withdrawalTier1Limit = 1_000_00
	withdrawalTier1Fee   = 15_00
	withdrawalTier2Limit = 5_000_00
	withdrawalTier2Fee   = 25_00
	withdrawalTier3Limit = 20_000_00
	withdrawalTier3Fee   = 45_00
	withdrawalFeeCap     = 150_00

	transferSmallLimit = 1_000_00
	transferSmallFee   = 5_00
	transferLargeFee   = 10_00
)

var (
	depositFeeRate    = decimal.NewFromFloat(0.005)
	withdrawalFeeRate = decimal.NewFromFloat(0.0025)
)

// ComputeFee returns the advisory fee for an operation of the given kind and
// amount. Pure and deterministic; performs no I/O. Non-positive amounts and
// unknown kinds quote a zero fee.
func ComputeFee(kind FeeKind, amount Money) Money {
	zero := NewMoney(0, amount.Currency)
	if !amount.IsPositive() {
		return zero
	}

	switch kind {
	case FeeDeposit:
		if amount.Amount <= depositFreeThreshold {
			return zero
		}
		fee := rate(amount, depositFeeRate)
		return NewMoney(min(fee, depositFeeCap), amount.Currency)
	case FeeWithdrawal:
		switch {
		case amount.Amount <= withdrawalTier1Limit:
			return NewMoney(withdrawalTier1Fee, amount.Currency)
		case amount.Amount <= withdrawalTier2Limit:
			return NewMoney(withdrawalTier2Fee, amount.Currency)
		case amount.Amount <= withdrawalTier3Limit:
			return NewMoney(withdrawalTier3Fee, amount.Currency)
		default:
			fee := rate(amount, withdrawalFeeRate)
			return NewMoney(min(fee, withdrawalFeeCap), amount.Currency)
		}
	case FeeTransfer:
		if amount.Amount <= transferSmallLimit {
			return NewMoney(transferSmallFee, amount.Currency)
		}
		return NewMoney(transferLargeFee, amount.Currency)
	case FeeTopup:
		return zero
	default:
		return zero
	}
}

func rate(amount Money, r decimal.Decimal) int64 {
	return decimal.NewFromInt(amount.Amount).Mul(r).Round(0).IntPart()
}
