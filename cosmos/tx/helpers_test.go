package tx_test

import (
	"testing"

	"github.com/kisa-team/gonka-wallet/cosmos/rpc/rpctest"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	otherMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"
	testChainID   = "gonka-testnet"
)

func newKeyPair(t *testing.T, mnemonic string) *crypto.KeyPair {
	t.Helper()

	kp, err := crypto.DeriveAccount(mnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)
	return kp
}

type signerFixture struct {
	encoding tx.EncodingConfig
	client   *rpctest.FakeClient
	signer   *tx.Signer
}

// newSignerFixture wires a signer to a fake node that knows the given accounts.
func newSignerFixture(t *testing.T, configuredChainID string, accounts ...*crypto.KeyPair) *signerFixture {
	t.Helper()

	encoding := tx.NewEncodingConfig()
	client := rpctest.NewFakeClient(testChainID)
	for i, account := range accounts {
		client.SetAccount(account.Address, uint64(10+i), uint64(3+i))
	}

	signingInfo, err := tx.NewSigningInfoProvider(client, configuredChainID)
	require.NoError(t, err)

	return &signerFixture{
		encoding: encoding,
		client:   client,
		signer:   tx.NewSigner(tx.NewEnvelopeBuilder(encoding.TxConfig), signingInfo, crypto.DefaultAccountPrefix, log.Discard()),
	}
}
