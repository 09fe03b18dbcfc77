package tx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cosmos/cosmos-sdk/client"
	cosmostx "github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/codec"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
)

// UnsignedEnvelope is an assembled transaction waiting for a signature. BodyBytes and AuthInfoBytes are
// exactly what gets signed and broadcast.
type UnsignedEnvelope struct {
	Messages      []sdk.Msg
	Memo          string
	Fee           Fee
	AccountNumber uint64
	Sequence      uint64
	ChainID       string
	PubKey        cryptotypes.PubKey

	BodyBytes     []byte
	AuthInfoBytes []byte
}

// SignDoc returns the direct mode document for the envelope.
func (e *UnsignedEnvelope) SignDoc() *txtypes.SignDoc {
	return &txtypes.SignDoc{
		BodyBytes:     bytes.Clone(e.BodyBytes),
		AuthInfoBytes: bytes.Clone(e.AuthInfoBytes),
		ChainId:       e.ChainID,
		AccountNumber: e.AccountNumber,
	}
}

// SignedEnvelope is an UnsignedEnvelope with its signature. It is immutable, accessors return copies.
type SignedEnvelope struct {
	unsigned  UnsignedEnvelope
	signature []byte
}

func newSignedEnvelope(unsigned *UnsignedEnvelope, signature []byte) *SignedEnvelope {
	copied := *unsigned
	copied.BodyBytes = bytes.Clone(unsigned.BodyBytes)
	copied.AuthInfoBytes = bytes.Clone(unsigned.AuthInfoBytes)
	copied.Messages = append([]sdk.Msg{}, unsigned.Messages...)

	return &SignedEnvelope{
		unsigned:  copied,
		signature: bytes.Clone(signature),
	}
}

func (e *SignedEnvelope) ChainID() string { return e.unsigned.ChainID }
func (e *SignedEnvelope) Sequence() uint64 { return e.unsigned.Sequence }
func (e *SignedEnvelope) AccountNumber() uint64 { return e.unsigned.AccountNumber }
func (e *SignedEnvelope) PublicKey() cryptotypes.PubKey { return e.unsigned.PubKey }
func (e *SignedEnvelope) Fee() Fee { return e.unsigned.Fee }
func (e *SignedEnvelope) Signature() []byte { return bytes.Clone(e.signature) }
func (e *SignedEnvelope) BodyBytes() []byte { return bytes.Clone(e.unsigned.BodyBytes) }
func (e *SignedEnvelope) AuthInfoBytes() []byte { return bytes.Clone(e.unsigned.AuthInfoBytes) }

// TxBytes encodes the envelope for broadcast.
func (e *SignedEnvelope) TxBytes() ([]byte, error) {
	raw := &txtypes.TxRaw{
		BodyBytes:     e.unsigned.BodyBytes,
		AuthInfoBytes: e.unsigned.AuthInfoBytes,
		Signatures:    [][]byte{e.signature},
	}
	return raw.Marshal()
}

// EnvelopeBuilder assembles unsigned envelopes with the SDK tx builder.
type EnvelopeBuilder struct {
	txConfig client.TxConfig
}

func NewEnvelopeBuilder(txConfig client.TxConfig) *EnvelopeBuilder {
	return &EnvelopeBuilder{txConfig: txConfig}
}

func (b *EnvelopeBuilder) Build(messages []sdk.Msg, memo string, fee *Fee, metadata *SigningMetadata, pubKey cryptotypes.PubKey) (*UnsignedEnvelope, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages to sign")
	}
	if fee == nil {
		return nil, errors.New("no fee given")
	}
	if metadata == nil {
		return nil, errors.New("no signing metadata given")
	}
	if pubKey == nil {
		return nil, errors.New("no public key given")
	}

	// The factory refuses a memo that is a valid mnemonic.
	txFactory := cosmostx.Factory{}.
		WithChainID(metadata.ChainID()).
		WithTxConfig(b.txConfig).
		WithMemo(memo)

	txb, err := txFactory.BuildUnsignedTx(messages...)
	if err != nil {
		return nil, err
	}
	txb.SetGasLimit(fee.GasLimit)
	txb.SetFeeAmount(fee.Amount)

	// Signer info carries the public key and sequence, the signature itself lives outside the auth info.
	signatureProto := signing.SignatureV2{
		PubKey: pubKey,
		Data: &signing.SingleSignatureData{
			SignMode:  signing.SignMode_SIGN_MODE_DIRECT,
			Signature: nil,
		},
		Sequence: metadata.Sequence(),
	}
	if err := txb.SetSignatures(signatureProto); err != nil {
		return nil, err
	}

	encoded, err := b.txConfig.TxEncoder()(txb.GetTx())
	if err != nil {
		return nil, err
	}

	var raw txtypes.TxRaw
	if err := raw.Unmarshal(encoded); err != nil {
		return nil, err
	}

	return &UnsignedEnvelope{
		Messages:      messages,
		Memo:          memo,
		Fee:           *fee,
		AccountNumber: metadata.AccountNumber(),
		Sequence:      metadata.Sequence(),
		ChainID:       metadata.ChainID(),
		PubKey:        pubKey,

		BodyBytes:     raw.BodyBytes,
		AuthInfoBytes: raw.AuthInfoBytes,
	}, nil
}

// DecodedEnvelope is an encoded transaction decoded back into its parts.
type DecodedEnvelope struct {
	Raw      txtypes.TxRaw
	Body     txtypes.TxBody
	AuthInfo txtypes.AuthInfo
	Messages []sdk.Msg
}

// DecodeEnvelope decodes tx bytes and checks that the body and auth info re-encode to the exact bytes carried.
func DecodeEnvelope(cdc codec.Codec, txBytes []byte) (*DecodedEnvelope, error) {
	decoded := &DecodedEnvelope{}
	if err := decoded.Raw.Unmarshal(txBytes); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	if err := decoded.Body.Unmarshal(decoded.Raw.BodyBytes); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if err := decoded.AuthInfo.Unmarshal(decoded.Raw.AuthInfoBytes); err != nil {
		return nil, fmt.Errorf("decode auth info: %w", err)
	}

	body, err := decoded.Body.Marshal()
	if err != nil {
		return nil, err
	}
	authInfo, err := decoded.AuthInfo.Marshal()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(body, decoded.Raw.BodyBytes) || !bytes.Equal(authInfo, decoded.Raw.AuthInfoBytes) {
		return nil, errors.New("tx bytes are not canonically encoded")
	}

	for _, anyMsg := range decoded.Body.Messages {
		var msg sdk.Msg
		if err := cdc.UnpackAny(anyMsg, &msg); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", anyMsg.TypeUrl, err)
		}
		decoded.Messages = append(decoded.Messages, msg)
	}

	return decoded, nil
}
