package tx

import (
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// BaseUnitsPerDisplayUnit is the number of ngonka in one GNK.
const BaseUnitsPerDisplayUnit = 1_000_000_000

var baseUnitsPerDisplayUnit = decimal.NewFromInt(BaseUnitsPerDisplayUnit)

// ParseDisplayAmount converts a GNK amount (ex. "1.5") into ngonka, rounding down. Amounts that round
// to zero are rejected.
func ParseDisplayAmount(amount string) (sdkmath.Int, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, amount)
	}
	return DisplayToBase(parsed)
}

func DisplayToBase(amount decimal.Decimal) (sdkmath.Int, error) {
	if !amount.IsPositive() {
		return sdkmath.Int{}, ErrInvalidAmount
	}

	base := amount.Mul(baseUnitsPerDisplayUnit).Floor()
	if !base.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s is below the smallest unit", ErrInvalidAmount, amount.String())
	}
	return sdkmath.NewIntFromBigInt(base.BigInt()), nil
}

// FormatDisplayAmount renders ngonka as GNK without trailing zeros.
func FormatDisplayAmount(base sdkmath.Int) string {
	return decimal.NewFromBigInt(base.BigInt(), 0).Div(baseUnitsPerDisplayUnit).String()
}
