package tx

import (
	"fmt"
	"strings"
	"time"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/x/authz"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	govv1beta1 "github.com/cosmos/cosmos-sdk/x/gov/types/v1beta1"
	stakingtypes "github.com/cosmos/cosmos-sdk/x/staking/types"
	"github.com/kisa-team/gonka-wallet/crypto"
)

// GrantKind names a fixed set of message types that a grant authorizes.
type GrantKind string

const (
	GrantMLOps      GrantKind = "ml-ops"
	GrantSendTokens GrantKind = "send-tokens"
)

// Messages an ML operational key submits on behalf of a participant.
var mlOpsMessageTypes = []string{
	"/inference.inference.MsgStartInference",
	"/inference.inference.MsgFinishInference",
	"/inference.inference.MsgClaimRewards",
	"/inference.inference.MsgValidation",
	"/inference.inference.MsgSubmitPocBatch",
	"/inference.inference.MsgSubmitPocValidation",
	"/inference.inference.MsgSubmitSeed",
	"/inference.inference.MsgBridgeExchange",
	"/inference.inference.MsgSubmitTrainingKvRecord",
	"/inference.inference.MsgJoinTraining",
	"/inference.inference.MsgJoinTrainingStatus",
	"/inference.inference.MsgTrainingHeartbeat",
	"/inference.inference.MsgSetBarrier",
	"/inference.inference.MsgClaimTrainingTaskForAssignment",
	"/inference.inference.MsgAssignTrainingTask",
	"/inference.inference.MsgSubmitNewUnfundedParticipant",
	"/inference.inference.MsgSubmitHardwareDiff",
	"/inference.inference.MsgInvalidateInference",
	"/inference.inference.MsgRevalidateInference",
	"/inference.bls.MsgSubmitDealerPart",
	"/inference.bls.MsgSubmitVerificationVector",
	"/inference.bls.MsgRequestThresholdSignature",
	"/inference.bls.MsgSubmitPartialSignature",
	"/inference.bls.MsgSubmitGroupKeyValidationSignature",
}

var sendTokensMessageTypes = []string{
	sdk.MsgTypeURL(&banktypes.MsgSend{}),
}

// AllowedMessageTypes returns a copy of the message types a grant kind authorizes.
func AllowedMessageTypes(kind GrantKind) ([]string, error) {
	var types []string
	switch kind {
	case GrantMLOps:
		types = mlOpsMessageTypes
	case GrantSendTokens:
		types = sendTokensMessageTypes
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGrantKind, kind)
	}
	return append([]string{}, types...), nil
}

// VoteOption is the user facing name of a governance vote option.
type VoteOption string

const (
	VoteYes        VoteOption = "yes"
	VoteNo         VoteOption = "no"
	VoteAbstain    VoteOption = "abstain"
	VoteNoWithVeto VoteOption = "no_with_veto"
)

func (o VoteOption) Proto() (govv1beta1.VoteOption, error) {
	switch VoteOption(strings.ToLower(strings.TrimSpace(string(o)))) {
	case VoteYes:
		return govv1beta1.OptionYes, nil
	case VoteNo:
		return govv1beta1.OptionNo, nil
	case VoteAbstain:
		return govv1beta1.OptionAbstain, nil
	case VoteNoWithVeto:
		return govv1beta1.OptionNoWithVeto, nil
	}
	return govv1beta1.OptionEmpty, fmt.Errorf("%w: %q", ErrInvalidVoteOption, o)
}

// GrantExpiration returns now plus the given number of days, truncated to the millisecond and rebuilt
// from whole seconds and nanoseconds, which is the precision grants are created with.
func GrantExpiration(now time.Time, days int) time.Time {
	expiration := now.AddDate(0, 0, days)
	seconds := expiration.Unix()
	nanos := (expiration.UnixMilli() % 1000) * int64(time.Millisecond)
	return time.Unix(seconds, nanos).UTC()
}

// MessageBuilder validates user input and builds one message list per intent. It has no side effects.
type MessageBuilder struct {
	accounts   *crypto.AddressValidator
	validators *crypto.AddressValidator
}

func NewMessageBuilder(accountPrefix, validatorPrefix string) *MessageBuilder {
	return &MessageBuilder{
		accounts:   crypto.NewAccountAddressValidator(accountPrefix),
		validators: crypto.NewValidatorAddressValidator(accountPrefix, validatorPrefix),
	}
}

func (b *MessageBuilder) AccountValidator() *crypto.AddressValidator {
	return b.accounts
}

func (b *MessageBuilder) BuildSend(from, to string, amount sdk.Coin) ([]sdk.Msg, error) {
	if err := b.checkAccount("sender", from); err != nil {
		return nil, err
	}
	if err := b.checkAccount("recipient", to); err != nil {
		return nil, err
	}
	if err := checkCoin(amount); err != nil {
		return nil, err
	}

	// Built directly rather than with NewMsgSend, which encodes with the global bech32 prefix.
	return []sdk.Msg{
		&banktypes.MsgSend{
			FromAddress: from,
			ToAddress:   to,
			Amount:      sdk.NewCoins(amount),
		},
	}, nil
}

func (b *MessageBuilder) BuildDelegate(delegator, validator string, amount sdk.Coin) ([]sdk.Msg, error) {
	if err := b.checkAccount("delegator", delegator); err != nil {
		return nil, err
	}
	if err := b.validators.Validate(validator); err != nil {
		return nil, fmt.Errorf("invalid validator address: %w", err)
	}
	if err := checkCoin(amount); err != nil {
		return nil, err
	}

	return []sdk.Msg{
		&stakingtypes.MsgDelegate{
			DelegatorAddress: delegator,
			ValidatorAddress: validator,
			Amount:           amount,
		},
	}, nil
}

func (b *MessageBuilder) BuildVote(voter string, proposalID uint64, option VoteOption) ([]sdk.Msg, error) {
	if err := b.checkAccount("voter", voter); err != nil {
		return nil, err
	}
	if proposalID == 0 {
		return nil, ErrInvalidProposal
	}
	protoOption, err := option.Proto()
	if err != nil {
		return nil, err
	}

	return []sdk.Msg{
		&govv1beta1.MsgVote{
			ProposalId: proposalID,
			Voter:      voter,
			Option:     protoOption,
		},
	}, nil
}

// BuildGrant builds one MsgGrant with a generic authorization per message type of the grant kind.
func (b *MessageBuilder) BuildGrant(granter, grantee string, kind GrantKind, expiration time.Time) ([]sdk.Msg, error) {
	if err := b.checkAccount("granter", granter); err != nil {
		return nil, err
	}
	if err := b.checkAccount("grantee", grantee); err != nil {
		return nil, err
	}
	if granter == grantee {
		return nil, fmt.Errorf("%w: granter and grantee must differ", ErrInvalidAddress)
	}
	msgTypes, err := AllowedMessageTypes(kind)
	if err != nil {
		return nil, err
	}

	msgs := make([]sdk.Msg, 0, len(msgTypes))
	for _, msgType := range msgTypes {
		authorization, err := codectypes.NewAnyWithValue(authz.NewGenericAuthorization(msgType))
		if err != nil {
			return nil, err
		}

		exp := expiration
		msgs = append(msgs, &authz.MsgGrant{
			Granter: granter,
			Grantee: grantee,
			Grant: authz.Grant{
				Authorization: authorization,
				Expiration:    &exp,
			},
		})
	}
	return msgs, nil
}

func (b *MessageBuilder) checkAccount(role, address string) error {
	if err := b.accounts.Validate(address); err != nil {
		return fmt.Errorf("invalid %s address: %w", role, err)
	}
	return nil
}

func checkCoin(coin sdk.Coin) error {
	if coin.Denom == "" || coin.Amount.IsNil() || !coin.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := sdk.ValidateDenom(coin.Denom); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err)
	}
	return nil
}
