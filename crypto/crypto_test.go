package crypto_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cosmos/cosmos-sdk/types/bech32"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	otherMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"
)

func TestDeriveAccount_Deterministic(t *testing.T) {
	first, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	second, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	require.Equal(t, first.Address, second.Address)
	require.Equal(t, first.Public.Bytes(), second.Public.Bytes())
	require.True(t, strings.HasPrefix(first.Address, "gonka1"))

	derived, err := crypto.AddressFromPublicKey(first.Public, crypto.DefaultAccountPrefix)
	require.NoError(t, err)
	require.Equal(t, first.Address, derived)
}

func TestDeriveAccount_NormalizesWhitespaceAndCase(t *testing.T) {
	expected, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	messy := "  " + strings.ToUpper(strings.ReplaceAll(testMnemonic, " ", "   ")) + "\n"
	actual, err := crypto.DeriveAccount(messy, crypto.DefaultDerivation())
	require.NoError(t, err)

	require.Equal(t, expected.Address, actual.Address)
}

func TestDeriveAccount_CoinTypeChangesKey(t *testing.T) {
	gonka, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	params := crypto.DefaultDerivation()
	params.CoinType = 118
	cosmos, err := crypto.DeriveAccount(testMnemonic, params)
	require.NoError(t, err)

	require.NotEqual(t, gonka.Address, cosmos.Address)
	require.Equal(t, "m/44'/1200'/0'/0/0", crypto.DefaultDerivation().HDPath())
}

func TestDeriveAccount_InvalidSeed(t *testing.T) {
	cases := []string{
		"",
		"abandon abandon abandon",
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
		"notaword abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	}

	for _, mnemonic := range cases {
		_, err := crypto.DeriveAccount(mnemonic, crypto.DefaultDerivation())
		require.ErrorIs(t, err, crypto.ErrInvalidSeed, mnemonic)
	}
}

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := crypto.GenerateMnemonic()
	require.NoError(t, err)

	require.Len(t, strings.Fields(mnemonic), 24)
	require.NoError(t, crypto.ValidateMnemonic(mnemonic))
}

func TestAddressValidator(t *testing.T) {
	kp, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	validator := crypto.NewAccountAddressValidator(crypto.DefaultAccountPrefix)
	assert.True(t, validator.IsValid(kp.Address))

	// Flip the last character, which breaks the checksum.
	last := kp.Address[len(kp.Address)-1]
	replacement := byte('q')
	if last == 'q' {
		replacement = 'p'
	}
	broken := kp.Address[:len(kp.Address)-1] + string(replacement)

	cosmosAddress := kp.GetAddress("cosmos")

	invalid := []string{
		"",
		broken,
		cosmosAddress,
		kp.Address + ";rm -rf",
		kp.Address + "$(whoami)",
		"gonka1short",
		strings.ToUpper(kp.Address),
		kp.Address + strings.Repeat("q", 20),
	}
	for _, address := range invalid {
		assert.False(t, validator.IsValid(address), address)
		assert.ErrorIs(t, validator.Validate(address), crypto.ErrInvalidAddress, address)
	}
}

func TestValidatorAddressValidator(t *testing.T) {
	kp, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	valoper := kp.GetAddress(crypto.DefaultValidatorPrefix)
	require.Greater(t, len(valoper), 50)

	validator := crypto.NewValidatorAddressValidator(crypto.DefaultAccountPrefix, crypto.DefaultValidatorPrefix)
	assert.True(t, validator.IsValid(valoper))
	assert.False(t, validator.IsValid(kp.Address))
}

func TestAddressValidator_ShortData(t *testing.T) {
	// Valid bech32, but far too little data for an account.
	encoded, err := bech32.ConvertAndEncode("gonka", []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	validator := crypto.NewAccountAddressValidator(crypto.DefaultAccountPrefix)
	assert.False(t, validator.IsValid(encoded))
}

func TestSignDirect(t *testing.T) {
	kp, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	signDoc := &txtypes.SignDoc{
		BodyBytes:     []byte{0x0a, 0x01},
		AuthInfoBytes: []byte{0x12, 0x02},
		ChainId:       "gonka-mainnet",
		AccountNumber: 7,
	}

	response, err := kp.SignDirect(context.Background(), kp.Address, signDoc)
	require.NoError(t, err)

	signBytes, err := signDoc.Marshal()
	require.NoError(t, err)
	require.NoError(t, crypto.VerifySignature(response.Signature.PubKey, signBytes, response.Signature.Signature))
	require.Equal(t, signDoc, response.Signed)
}

func TestSignDirect_RefusesOtherAddress(t *testing.T) {
	kp, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)
	other, err := crypto.DeriveAccount(otherMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	_, err = kp.SignDirect(context.Background(), other.Address, &txtypes.SignDoc{})
	require.ErrorIs(t, err, crypto.ErrUnknownSigner)

	_, err = kp.SignAmino(context.Background(), other.Address, crypto.AminoSignDoc{})
	require.ErrorIs(t, err, crypto.ErrUnknownSigner)
}

func TestSignAmino_SignsSortedJSON(t *testing.T) {
	kp, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	doc := crypto.AminoSignDoc{
		AccountNumber: "12",
		ChainID:       "gonka-mainnet",
		Fee: crypto.AminoFee{
			Amount: []crypto.AminoCoin{{Denom: "ngonka", Amount: "20000"}},
			Gas:    "200000",
		},
		Memo:     "hello",
		Msgs:     nil,
		Sequence: "3",
	}

	signBytes, err := doc.SignBytes()
	require.NoError(t, err)
	require.Equal(t, `{"account_number":"12","chain_id":"gonka-mainnet","fee":{"amount":[{"amount":"20000","denom":"ngonka"}],"gas":"200000"},"memo":"hello","msgs":[],"sequence":"3"}`, string(signBytes))

	response, err := kp.SignAmino(context.Background(), kp.Address, doc)
	require.NoError(t, err)
	require.NoError(t, crypto.VerifySignature(response.Signature.PubKey, signBytes, response.Signature.Signature))
}

func TestADR36_RoundTrip(t *testing.T) {
	kp, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	doc, err := crypto.NewADR36SignDoc(kp.Address, []byte("login to gonka"))
	require.NoError(t, err)
	require.True(t, crypto.IsADR36SignDoc(doc))

	signer, data, err := crypto.ExtractADR36Message(doc)
	require.NoError(t, err)
	require.Equal(t, kp.Address, signer)
	require.Equal(t, []byte("login to gonka"), data)

	doc.ChainID = "gonka-mainnet"
	_, _, err = crypto.ExtractADR36Message(doc)
	require.ErrorIs(t, err, crypto.ErrInvalidADR36Doc)
}

func TestAminoPubKey_RoundTrip(t *testing.T) {
	kp, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	encoded, err := crypto.EncodeAminoPubKey(kp.Public)
	require.NoError(t, err)
	require.Equal(t, crypto.Secp256k1AminoType, encoded.Type)

	decoded, err := crypto.DecodeAminoPubKey(encoded)
	require.NoError(t, err)
	require.True(t, kp.Public.Equals(decoded))

	_, err = crypto.DecodeAminoPubKey(crypto.AminoPubKey{Type: "tendermint/PubKeyEd25519", Value: encoded.Value})
	require.ErrorIs(t, err, crypto.ErrUnsupportedPubKey)
}
