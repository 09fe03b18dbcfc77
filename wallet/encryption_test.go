package wallet_test

import (
	"testing"

	"github.com/kisa-team/gonka-wallet/wallet"
	"github.com/stretchr/testify/require"
)

// Light parameters so tests stay fast.
var testKDF = wallet.KDFParams{Memory: 1024, Iterations: 1, Parallelism: 1}

func TestSealOpen_RoundTrip(t *testing.T) {
	sealed, err := wallet.Seal([]byte(testMnemonic), []byte("hunter2"), testKDF)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "abandon")

	opened, err := wallet.Open(sealed, []byte("hunter2"))
	require.NoError(t, err)
	require.Equal(t, testMnemonic, string(opened))
}

func TestSeal_FreshSaltAndNonce(t *testing.T) {
	first, err := wallet.Seal([]byte("secret"), []byte("pw"), testKDF)
	require.NoError(t, err)
	second, err := wallet.Seal([]byte("secret"), []byte("pw"), testKDF)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestOpen_WrongPassphrase(t *testing.T) {
	sealed, err := wallet.Seal([]byte("secret"), []byte("right"), testKDF)
	require.NoError(t, err)

	_, err = wallet.Open(sealed, []byte("wrong"))
	require.ErrorIs(t, err, wallet.ErrWrongPassphrase)
}

func TestOpen_TamperedHeader(t *testing.T) {
	sealed, err := wallet.Seal([]byte("secret"), []byte("pw"), testKDF)
	require.NoError(t, err)

	// Bump the iteration count stored after the salt.
	sealed[32+4]++
	_, err = wallet.Open(sealed, []byte("pw"))
	require.ErrorIs(t, err, wallet.ErrWrongPassphrase)
}

func TestOpen_TooShort(t *testing.T) {
	_, err := wallet.Open([]byte{1, 2, 3}, []byte("pw"))
	require.ErrorIs(t, err, wallet.ErrSealedTooShort)
}

func TestDefaultKDFParams(t *testing.T) {
	require.Equal(t, wallet.KDFParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}, wallet.DefaultKDFParams())
}
