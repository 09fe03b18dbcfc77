package util

import (
	"strings"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// CoinOf picks denom out of a balance listing. Nodes are not consistent about denom case, so the match
// ignores it. An account that never held denom has a zero balance of it.
func CoinOf(denom string, coins sdk.Coins) *sdk.Coin {
	for _, coin := range coins {
		if !strings.EqualFold(denom, coin.Denom) {
			continue
		}
		if coin.Amount.IsNil() {
			break
		}
		return &sdk.Coin{Denom: denom, Amount: coin.Amount}
	}
	return &sdk.Coin{Denom: denom, Amount: sdkmath.ZeroInt()}
}
