package crypto

import (
	"context"
	"encoding/json"
	"fmt"

	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
)

// StdSignature is a signature together with the public key that claims to have produced it.
type StdSignature struct {
	PubKey    cryptotypes.PubKey
	Signature []byte
}

// DirectSignResponse is returned from a direct mode signature request. Signed may differ from the
// requested document if the signer adjusted it, callers must use Signed.
type DirectSignResponse struct {
	Signed    *txtypes.SignDoc
	Signature StdSignature
}

// AminoSignResponse is returned from an amino (legacy JSON) signature request.
type AminoSignResponse struct {
	Signed    AminoSignDoc
	Signature StdSignature
}

// DirectSigner signs the exact serialized SignDoc bytes.
type DirectSigner interface {
	SignDirect(ctx context.Context, signerAddress string, signDoc *txtypes.SignDoc) (*DirectSignResponse, error)
}

// AminoSigner signs a legible JSON document.
type AminoSigner interface {
	SignAmino(ctx context.Context, signerAddress string, signDoc AminoSignDoc) (*AminoSignResponse, error)
}

// SigningCapability is everything a derived account can sign with.
type SigningCapability interface {
	DirectSigner
	AminoSigner
}

type AminoCoin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type AminoFee struct {
	Amount  []AminoCoin `json:"amount"`
	Gas     string      `json:"gas"`
	Granter string      `json:"granter,omitempty"`
	Payer   string      `json:"payer,omitempty"`
}

// AminoSignDoc is the legacy JSON sign document. Numbers are strings on the wire, and messages are kept
// as raw JSON so that a document received from a remote peer signs byte for byte as it was shown.
type AminoSignDoc struct {
	AccountNumber string            `json:"account_number"`
	ChainID       string            `json:"chain_id"`
	Fee           AminoFee          `json:"fee"`
	Memo          string            `json:"memo"`
	Msgs          []json.RawMessage `json:"msgs"`
	Sequence      string            `json:"sequence"`
}

// SignBytes returns the canonical sorted JSON encoding that is signed.
func (d AminoSignDoc) SignBytes() ([]byte, error) {
	if d.Fee.Amount == nil {
		d.Fee.Amount = []AminoCoin{}
	}
	if d.Msgs == nil {
		d.Msgs = []json.RawMessage{}
	}

	encoded, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return sdk.SortJSON(encoded)
}

// SignDirect signs a protobuf SignDoc.
func (kp *KeyPair) SignDirect(_ context.Context, signerAddress string, signDoc *txtypes.SignDoc) (*DirectSignResponse, error) {
	if signerAddress != kp.Address {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSigner, signerAddress)
	}

	signBytes, err := signDoc.Marshal()
	if err != nil {
		return nil, err
	}

	signature, err := kp.SignBytes(signBytes)
	if err != nil {
		return nil, err
	}

	return &DirectSignResponse{
		Signed: signDoc,
		Signature: StdSignature{
			PubKey:    kp.Public,
			Signature: signature,
		},
	}, nil
}

// SignAmino signs the sorted JSON form of a legacy sign doc.
func (kp *KeyPair) SignAmino(_ context.Context, signerAddress string, signDoc AminoSignDoc) (*AminoSignResponse, error) {
	if signerAddress != kp.Address {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSigner, signerAddress)
	}

	signBytes, err := signDoc.SignBytes()
	if err != nil {
		return nil, err
	}

	signature, err := kp.SignBytes(signBytes)
	if err != nil {
		return nil, err
	}

	return &AminoSignResponse{
		Signed: signDoc,
		Signature: StdSignature{
			PubKey:    kp.Public,
			Signature: signature,
		},
	}, nil
}
