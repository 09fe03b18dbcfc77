package tx

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/shopspring/decimal"
)

var gasPricePattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([a-zA-Z][a-zA-Z0-9/:._-]{2,127})$`)

// GasPrice is a price per unit of gas, ex. 0.1ngonka.
type GasPrice struct {
	Amount decimal.Decimal
	Denom  string
}

func ParseGasPrice(raw string) (GasPrice, error) {
	matches := gasPricePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if matches == nil {
		return GasPrice{}, fmt.Errorf("%w: %q", ErrInvalidGasPrice, raw)
	}

	amount, err := decimal.NewFromString(matches[1])
	if err != nil {
		return GasPrice{}, fmt.Errorf("%w: %q", ErrInvalidGasPrice, raw)
	}
	if err := sdk.ValidateDenom(matches[2]); err != nil {
		return GasPrice{}, fmt.Errorf("%w: %s", ErrInvalidGasPrice, err)
	}

	return GasPrice{
		Amount: amount,
		Denom:  matches[2],
	}, nil
}

func (p GasPrice) String() string {
	return p.Amount.String() + p.Denom
}

// GasOverrides are optional user choices. A zero limit or a blank price falls back to the policy default.
type GasOverrides struct {
	GasLimit uint64
	GasPrice string
}

// FeePolicy holds the defaults for one kind of operation.
type FeePolicy struct {
	DefaultGasLimit uint64
	DefaultGasPrice string
}

var (
	SendFeePolicy       = FeePolicy{DefaultGasLimit: 200_000, DefaultGasPrice: "0.1ngonka"}
	DelegateFeePolicy   = FeePolicy{DefaultGasLimit: 200_000, DefaultGasPrice: "0.1ngonka"}
	VoteFeePolicy       = FeePolicy{DefaultGasLimit: 200_000, DefaultGasPrice: "0.1ngonka"}
	GrantSendFeePolicy  = FeePolicy{DefaultGasLimit: 200_000, DefaultGasPrice: "0.1ngonka"}
	GrantMLOpsFeePolicy = FeePolicy{DefaultGasLimit: 2_000_000, DefaultGasPrice: "0.0ngonka"}
)

// Fee is a resolved gas limit and the fee paid for it.
type Fee struct {
	GasLimit uint64
	GasPrice GasPrice

	// Empty when the gas price is zero.
	Amount sdk.Coins
}

// Resolve applies overrides to the defaults and computes fee = ceil(gasLimit * gasPrice).
func (p FeePolicy) Resolve(overrides GasOverrides) (*Fee, error) {
	gasLimit := p.DefaultGasLimit
	if overrides.GasLimit > 0 {
		gasLimit = overrides.GasLimit
	}

	rawPrice := p.DefaultGasPrice
	if strings.TrimSpace(overrides.GasPrice) != "" {
		rawPrice = overrides.GasPrice
	}

	gasPrice, err := ParseGasPrice(rawPrice)
	if err != nil {
		return nil, err
	}

	// Limits above MaxInt64 are valid uint64 gas and must not wrap negative.
	gas := decimal.NewFromBigInt(new(big.Int).SetUint64(gasLimit), 0)
	amount := gasPrice.Amount.Mul(gas).Ceil()

	return &Fee{
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		Amount:   sdk.NewCoins(sdk.NewCoin(gasPrice.Denom, sdkmath.NewIntFromBigInt(amount.BigInt()))),
	}, nil
}

// DisplayAmount is the fee in GNK, for showing before signing.
func (f *Fee) DisplayAmount() string {
	return FormatDisplayAmount(f.Amount.AmountOf(f.GasPrice.Denom))
}

// CheckAffordable refuses a spend when spend plus fee exceeds the balance.
func CheckAffordable(fee *Fee, spend sdk.Coins, balance sdk.Coins) error {
	required := spend.Add(fee.Amount...)
	if !balance.IsAllGTE(required) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, required.String(), balance.String())
	}
	return nil
}
