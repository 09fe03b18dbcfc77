package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
)

const Secp256k1AminoType = "tendermint/PubKeySecp256k1"

// AminoPubKey is the JSON shape of a public key in amino and remote signing responses.
type AminoPubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func EncodeAminoPubKey(pubKey cryptotypes.PubKey) (AminoPubKey, error) {
	if _, ok := pubKey.(*secp256k1.PubKey); !ok {
		return AminoPubKey{}, fmt.Errorf("%w: %T", ErrUnsupportedPubKey, pubKey)
	}

	return AminoPubKey{
		Type:  Secp256k1AminoType,
		Value: base64.StdEncoding.EncodeToString(pubKey.Bytes()),
	}, nil
}

func DecodeAminoPubKey(encoded AminoPubKey) (cryptotypes.PubKey, error) {
	if encoded.Type != Secp256k1AminoType {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPubKey, encoded.Type)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPubKey, err)
	}
	if len(raw) != secp256k1.PubKeySize {
		return nil, fmt.Errorf("%w: unexpected key length %d", ErrUnsupportedPubKey, len(raw))
	}

	return &secp256k1.PubKey{Key: raw}, nil
}

// VerifySignature checks that signature was produced over signBytes by pubKey.
func VerifySignature(pubKey cryptotypes.PubKey, signBytes, signature []byte) error {
	if pubKey == nil || !pubKey.VerifySignature(signBytes, signature) {
		return ErrSignatureMalformed
	}
	return nil
}
