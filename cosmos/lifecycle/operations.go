package lifecycle

import (
	"time"

	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
)

const DefaultGrantExpirationDays = 365

// Env is what an operation may depend on while building its messages.
type Env struct {
	Messages *tx.MessageBuilder
	Sender   string
	Denom    string
	Now      time.Time
}

// Operation is one kind of user intent. Every operation runs through the same pipeline, only the
// messages and the fee policy differ.
type Operation interface {
	Kind() string
	Build(env Env) ([]sdk.Msg, error)
	// Spend is what leaves the account in addition to the fee.
	Spend(env Env) (sdk.Coins, error)
	FeePolicy() tx.FeePolicy
	Overrides() tx.GasOverrides
	Memo() string
}

// SignedValidator is implemented by operations that re-check the signed bytes before broadcast.
type SignedValidator interface {
	ValidateSigned(cdc codec.Codec, txBytes []byte, limits tx.TransferLimits) error
}

// Shared carries the fields common to every operation.
type Shared struct {
	MemoText string
	Gas      tx.GasOverrides
}

func (s Shared) Memo() string { return s.MemoText }
func (s Shared) Overrides() tx.GasOverrides { return s.Gas }

func displayCoin(amount, denom string) (sdk.Coin, error) {
	base, err := tx.ParseDisplayAmount(amount)
	if err != nil {
		return sdk.Coin{}, err
	}
	return sdk.NewCoin(denom, base), nil
}

// Send transfers an amount of GNK.
type Send struct {
	Shared
	Recipient string
	Amount    string
}

var (
	_ Operation       = Send{}
	_ SignedValidator = Send{}
)

func (Send) Kind() string { return "send" }
func (Send) FeePolicy() tx.FeePolicy { return tx.SendFeePolicy }

func (s Send) Build(env Env) ([]sdk.Msg, error) {
	coin, err := displayCoin(s.Amount, env.Denom)
	if err != nil {
		return nil, err
	}
	return env.Messages.BuildSend(env.Sender, s.Recipient, coin)
}

func (s Send) Spend(env Env) (sdk.Coins, error) {
	coin, err := displayCoin(s.Amount, env.Denom)
	if err != nil {
		return nil, err
	}
	return sdk.NewCoins(coin), nil
}

func (Send) ValidateSigned(cdc codec.Codec, txBytes []byte, limits tx.TransferLimits) error {
	return tx.ValidateTransferEnvelope(cdc, txBytes, limits)
}

// Delegate stakes an amount of GNK with a validator.
type Delegate struct {
	Shared
	Validator string
	Amount    string
}

var _ Operation = Delegate{}

func (Delegate) Kind() string { return "delegate" }
func (Delegate) FeePolicy() tx.FeePolicy { return tx.DelegateFeePolicy }

func (d Delegate) Build(env Env) ([]sdk.Msg, error) {
	coin, err := displayCoin(d.Amount, env.Denom)
	if err != nil {
		return nil, err
	}
	return env.Messages.BuildDelegate(env.Sender, d.Validator, coin)
}

func (d Delegate) Spend(env Env) (sdk.Coins, error) {
	coin, err := displayCoin(d.Amount, env.Denom)
	if err != nil {
		return nil, err
	}
	return sdk.NewCoins(coin), nil
}

// Vote casts a vote on a governance proposal.
type Vote struct {
	Shared
	ProposalID uint64
	Option     tx.VoteOption
}

var _ Operation = Vote{}

func (Vote) Kind() string { return "vote" }
func (Vote) FeePolicy() tx.FeePolicy { return tx.VoteFeePolicy }
func (Vote) Spend(Env) (sdk.Coins, error) { return sdk.Coins{}, nil }

func (v Vote) Build(env Env) ([]sdk.Msg, error) {
	return env.Messages.BuildVote(env.Sender, v.ProposalID, v.Option)
}

// GrantMLOps authorizes an ML operational key to act for the account.
type GrantMLOps struct {
	Shared
	Grantee        string
	ExpirationDays int
}

var _ Operation = GrantMLOps{}

func (GrantMLOps) Kind() string { return "grant-ml-ops" }
func (GrantMLOps) FeePolicy() tx.FeePolicy { return tx.GrantMLOpsFeePolicy }
func (GrantMLOps) Spend(Env) (sdk.Coins, error) { return sdk.Coins{}, nil }

func (g GrantMLOps) Build(env Env) ([]sdk.Msg, error) {
	return env.Messages.BuildGrant(env.Sender, g.Grantee, tx.GrantMLOps, tx.GrantExpiration(env.Now, expirationDays(g.ExpirationDays)))
}

// GrantSendTokens authorizes another account to send tokens for the account.
type GrantSendTokens struct {
	Shared
	Grantee        string
	ExpirationDays int
}

var _ Operation = GrantSendTokens{}

func (GrantSendTokens) Kind() string { return "grant-send-tokens" }
func (GrantSendTokens) FeePolicy() tx.FeePolicy { return tx.GrantSendFeePolicy }
func (GrantSendTokens) Spend(Env) (sdk.Coins, error) { return sdk.Coins{}, nil }

func (g GrantSendTokens) Build(env Env) ([]sdk.Msg, error) {
	return env.Messages.BuildGrant(env.Sender, g.Grantee, tx.GrantSendTokens, tx.GrantExpiration(env.Now, expirationDays(g.ExpirationDays)))
}

func expirationDays(days int) int {
	if days <= 0 {
		return DefaultGrantExpirationDays
	}
	return days
}
