package crypto

import (
	"fmt"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
)

const (
	DefaultAccountPrefix   = "gonka"
	DefaultValidatorPrefix = "gonkavaloper"
	DefaultCoinType        = 1200
)

// DerivationParams select one key from a seed's key tree and the prefix its address is encoded with.
type DerivationParams struct {
	CoinType      uint32
	Account       uint32
	Index         uint32
	AccountPrefix string
}

// DefaultDerivation derives m/44'/1200'/0'/0/0 with the gonka prefix.
func DefaultDerivation() DerivationParams {
	return DerivationParams{
		CoinType:      DefaultCoinType,
		AccountPrefix: DefaultAccountPrefix,
	}
}

func (p DerivationParams) HDPath() string {
	return hd.CreateHDPath(p.CoinType, p.Account, p.Index).String()
}

// KeyPair is a derived account: its address, public key and the private key backing its signing capability.
type KeyPair struct {
	Address string
	Public  cryptotypes.PubKey
	Private cryptotypes.PrivKey
}

var (
	_ DirectSigner = (*KeyPair)(nil)
	_ AminoSigner  = (*KeyPair)(nil)
)

// DeriveAccount deterministically derives the key pair for a seed phrase.
func DeriveAccount(mnemonic string, params DerivationParams) (*KeyPair, error) {
	normalized := NormalizeMnemonic(mnemonic)
	if err := ValidateMnemonic(normalized); err != nil {
		return nil, err
	}

	algo := hd.Secp256k1
	derivedPriv, err := algo.Derive()(normalized, keyring.DefaultBIP39Passphrase, params.HDPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeed, err)
	}
	privKey := algo.Generate()(derivedPriv)
	pubKey := privKey.PubKey()

	address, err := AddressFromPublicKey(pubKey, params.AccountPrefix)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Address: address,
		Public:  pubKey,
		Private: privKey,
	}, nil
}

// AddressFromPublicKey encodes the address of a public key with the given prefix.
func AddressFromPublicKey(pubKey cryptotypes.PubKey, prefix string) (string, error) {
	if pubKey == nil {
		return "", ErrUnsupportedPubKey
	}
	return bech32.ConvertAndEncode(prefix, pubKey.Address().Bytes())
}

// GetAddress re-encodes the key's address with another prefix (ex. the validator operator prefix).
func (kp *KeyPair) GetAddress(prefix string) string {
	encoded, _ := bech32.ConvertAndEncode(prefix, kp.Public.Address().Bytes())
	return encoded
}

func (kp *KeyPair) SignBytes(bytesToSign []byte) ([]byte, error) {
	return kp.Private.Sign(bytesToSign)
}

func (kp *KeyPair) GetPublicKey() cryptotypes.PubKey {
	return kp.Public
}
