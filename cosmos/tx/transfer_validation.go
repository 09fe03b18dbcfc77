package tx

import (
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/codec"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/kisa-team/gonka-wallet/crypto"
)

const secp256k1PubKeyTypeURL = "/cosmos.crypto.secp256k1.PubKey"

// TransferLimits bound what a signed transfer may contain before it is broadcast.
type TransferLimits struct {
	AccountPrefix string
	Denom         string
	MaxGasLimit   uint64
	MaxFee        sdkmath.Int
}

func DefaultTransferLimits() TransferLimits {
	return TransferLimits{
		AccountPrefix: crypto.DefaultAccountPrefix,
		Denom:         "ngonka",
		MaxGasLimit:   500_000,
		MaxFee:        sdkmath.NewInt(1_000_000_000),
	}
}

func invalidTransfer(reason string) error {
	return fmt.Errorf("%w: %s", ErrTransactionValidation, reason)
}

// ValidateTransferEnvelope decodes a signed transfer and checks its structure. It runs after signing and before
// broadcast, and only on single MsgSend transactions.
func ValidateTransferEnvelope(cdc codec.Codec, txBytes []byte, limits TransferLimits) error {
	decoded, err := DecodeEnvelope(cdc, txBytes)
	if err != nil {
		return invalidTransfer(err.Error())
	}

	if len(decoded.Body.Messages) != 1 {
		return invalidTransfer("only single MsgSend supported")
	}
	if len(decoded.AuthInfo.SignerInfos) != 1 {
		return invalidTransfer("exactly one signer required")
	}
	if len(decoded.Raw.Signatures) != 1 {
		return invalidTransfer("exactly one signature required")
	}

	signerInfo := decoded.AuthInfo.SignerInfos[0]
	if signerInfo.PublicKey == nil || signerInfo.PublicKey.TypeUrl != secp256k1PubKeyTypeURL {
		return invalidTransfer("unsupported pubkey type")
	}

	anyMsg := decoded.Body.Messages[0]
	if anyMsg.TypeUrl != sdk.MsgTypeURL(&banktypes.MsgSend{}) {
		return invalidTransfer("unsupported message type")
	}
	msg, ok := decoded.Messages[0].(*banktypes.MsgSend)
	if !ok {
		return invalidTransfer("unsupported message type")
	}

	if msg.FromAddress == "" || msg.ToAddress == "" {
		return invalidTransfer("invalid addresses")
	}
	hrp := limits.AccountPrefix + "1"
	if !strings.HasPrefix(msg.FromAddress, hrp) || !strings.HasPrefix(msg.ToAddress, hrp) {
		return invalidTransfer("invalid address prefix")
	}
	validator := crypto.NewAccountAddressValidator(limits.AccountPrefix)
	if !validator.IsValid(msg.FromAddress) || !validator.IsValid(msg.ToAddress) {
		return invalidTransfer("invalid addresses")
	}

	var pubKey cryptotypes.PubKey
	if err := cdc.UnpackAny(signerInfo.PublicKey, &pubKey); err != nil {
		return invalidTransfer("unsupported pubkey type")
	}
	signer, err := crypto.AddressFromPublicKey(pubKey, limits.AccountPrefix)
	if err != nil || signer != msg.FromAddress {
		return invalidTransfer("signer does not match fromAddress")
	}

	if len(msg.Amount) != 1 {
		return invalidTransfer("amount is required")
	}
	if msg.Amount[0].Denom != limits.Denom || !msg.Amount[0].Amount.IsPositive() {
		return invalidTransfer("invalid amount")
	}

	gasLimit := decoded.AuthInfo.Fee.GetGasLimit()
	if gasLimit == 0 || gasLimit > limits.MaxGasLimit {
		return invalidTransfer("invalid gas limit")
	}

	feeCoins := decoded.AuthInfo.Fee.GetAmount()
	switch len(feeCoins) {
	case 0:
		// A zero gas price pays no fee.
	case 1:
		fee := feeCoins[0]
		if fee.Denom != limits.Denom || fee.Amount.IsNegative() || fee.Amount.GT(limits.MaxFee) {
			return invalidTransfer("invalid fee")
		}
	default:
		return invalidTransfer("invalid fee")
	}

	return nil
}
