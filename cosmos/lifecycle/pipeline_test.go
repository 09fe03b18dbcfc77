package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/x/authz"
	"github.com/kisa-team/gonka-wallet/cosmos/lifecycle"
	"github.com/kisa-team/gonka-wallet/cosmos/rpc/rpctest"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/kisa-team/gonka-wallet/metrics"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	otherMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"
)

type countingRefresher struct {
	lock  sync.Mutex
	calls int
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.calls++
	return nil
}

func (r *countingRefresher) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.calls
}

type statusRecorder struct {
	lock     sync.Mutex
	statuses []lifecycle.Status
}

func (r *statusRecorder) OnTransition(transition lifecycle.Transition) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.statuses = append(r.statuses, transition.To)
}

func (r *statusRecorder) seen() []lifecycle.Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]lifecycle.Status{}, r.statuses...)
}

// impostorSigner signs with a key other than the account's.
type impostorSigner struct {
	key *crypto.KeyPair
}

func (s *impostorSigner) SignDirect(ctx context.Context, _ string, signDoc *txtypes.SignDoc) (*crypto.DirectSignResponse, error) {
	return s.key.SignDirect(ctx, s.key.Address, signDoc)
}

func (s *impostorSigner) SignAmino(ctx context.Context, _ string, signDoc crypto.AminoSignDoc) (*crypto.AminoSignResponse, error) {
	return s.key.SignAmino(ctx, s.key.Address, signDoc)
}

type fixture struct {
	sender    *crypto.KeyPair
	recipient *crypto.KeyPair
	client    *rpctest.FakeClient
	refresher *countingRefresher
	metrics   *metrics.Metrics
	encoding  tx.EncodingConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sender, err := crypto.DeriveAccount(testMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)
	recipient, err := crypto.DeriveAccount(otherMnemonic, crypto.DefaultDerivation())
	require.NoError(t, err)

	client := rpctest.NewFakeClient("gonka-testnet")
	client.SetAccount(sender.Address, 11, 4)

	return &fixture{
		sender:    sender,
		recipient: recipient,
		client:    client,
		refresher: &countingRefresher{},
		metrics:   metrics.New(),
		encoding:  tx.NewEncodingConfig(),
	}
}

func (f *fixture) pipeline(t *testing.T, policy lifecycle.PollPolicy, pollDelay time.Duration) *lifecycle.Pipeline {
	t.Helper()

	signingInfo, err := tx.NewSigningInfoProvider(f.client, "")
	require.NoError(t, err)
	broadcaster, err := tx.NewDefaultTxBroadcaster(f.client, log.Discard())
	require.NoError(t, err)
	poller, err := tx.NewPoller(tx.DefaultPollAttempts, pollDelay, broadcaster, log.Discard())
	require.NoError(t, err)

	pipeline, err := lifecycle.NewPipeline(lifecycle.Dependencies{
		Codec:          f.encoding.Codec,
		Messages:       tx.NewMessageBuilder(crypto.DefaultAccountPrefix, crypto.DefaultValidatorPrefix),
		Signer:         tx.NewSigner(tx.NewEnvelopeBuilder(f.encoding.TxConfig), signingInfo, crypto.DefaultAccountPrefix, log.Discard()),
		Broadcaster:    broadcaster,
		Poller:         poller,
		Denom:          "ngonka",
		TransferLimits: tx.DefaultTransferLimits(),
		PollPolicy:     policy,
		Refresher:      f.refresher,
		Metrics:        f.metrics,
		Clock:          func() time.Time { return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) },
	}, log.Discard())
	require.NoError(t, err)
	return pipeline
}

func gnk(amount int64) sdk.Coins {
	return sdk.NewCoins(sdk.NewCoin("ngonka", sdkmath.NewInt(amount*tx.BaseUnitsPerDisplayUnit)))
}

func includedOnAttempt(n int) func(int, string) (*txtypes.GetTxResponse, error) {
	return func(attempt int, txHash string) (*txtypes.GetTxResponse, error) {
		if attempt < n {
			return nil, nil
		}
		return rpctest.Included(txHash, 0, ""), nil
	}
}

func TestExecute_SendSucceeds(t *testing.T) {
	f := newFixture(t)
	f.client.OnGetTx = includedOnAttempt(3)
	recorder := &statusRecorder{}

	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "5"}
	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), op, gnk(10), recorder)

	require.Equal(t, lifecycle.StatusSuccess, result.Status, result.Error)
	require.NotEmpty(t, result.TransactionHash)
	require.Empty(t, result.Error)
	require.Equal(t, []lifecycle.Status{
		lifecycle.StatusSigning,
		lifecycle.StatusBroadcasting,
		lifecycle.StatusPending,
		lifecycle.StatusSuccess,
	}, recorder.seen())

	require.Equal(t, 3, f.client.GetTxCalls())
	require.Len(t, f.client.Broadcasts(), 1)
	require.Equal(t, 1, f.refresher.count())

	fee, err := op.FeePolicy().Resolve(op.Overrides())
	require.NoError(t, err)
	require.Equal(t, "0.00002", fee.DisplayAmount())
}

func TestExecute_InsufficientBalanceStaysIdle(t *testing.T) {
	f := newFixture(t)
	recorder := &statusRecorder{}

	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "11"}
	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), op, gnk(10), recorder)

	require.Equal(t, lifecycle.StatusIdle, result.Status)
	require.Contains(t, result.Error, "insufficient balance")
	require.Empty(t, result.TransactionHash)
	require.Empty(t, recorder.seen())
	require.Zero(t, f.client.NetworkCalls())
}

func TestExecute_InvalidInputStaysIdle(t *testing.T) {
	f := newFixture(t)

	cases := []lifecycle.Operation{
		lifecycle.Send{Recipient: "gonka1;rm -rf", Amount: "1"},
		lifecycle.Send{Recipient: f.recipient.Address, Amount: "0"},
		lifecycle.Send{Recipient: f.recipient.Address, Amount: "1", Shared: lifecycle.Shared{Gas: tx.GasOverrides{GasPrice: "cheap"}}},
		lifecycle.Vote{ProposalID: 1, Option: "maybe"},
		lifecycle.Delegate{Validator: f.recipient.Address, Amount: "1"},
		lifecycle.GrantSendTokens{Grantee: f.sender.Address},
	}

	for _, op := range cases {
		result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), op, gnk(10))
		require.Equal(t, lifecycle.StatusIdle, result.Status, op.Kind())
		require.NotEmpty(t, result.Error, op.Kind())
	}
	require.Zero(t, f.client.NetworkCalls())
}

func TestExecute_MismatchedSignerNeverBroadcasts(t *testing.T) {
	f := newFixture(t)
	recorder := &statusRecorder{}

	account := tx.SigningAccount{
		Address: f.sender.Address,
		PubKey:  f.sender.Public,
		Signer:  &impostorSigner{key: f.recipient},
	}
	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "5"}
	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), account, op, gnk(10), recorder)

	require.Equal(t, lifecycle.StatusError, result.Status)
	require.Contains(t, result.Error, "pubkey does not match address")
	require.Equal(t, []lifecycle.Status{lifecycle.StatusSigning, lifecycle.StatusError}, recorder.seen())
	require.Empty(t, f.client.Broadcasts())
}

func TestExecute_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	// Only the sender has an account on chain.
	op := lifecycle.Send{Recipient: f.sender.Address, Amount: "1"}
	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.recipient), op, gnk(10))

	require.Equal(t, lifecycle.StatusError, result.Status)
	require.Contains(t, result.Error, "account not found")
	require.Empty(t, f.client.Broadcasts())
}

func TestExecute_StatusUnknownAfterThirtyPolls(t *testing.T) {
	f := newFixture(t)

	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "5"}
	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), op, gnk(10))

	require.Equal(t, lifecycle.StatusError, result.Status)
	require.Contains(t, result.Error, "status unknown")
	require.NotEmpty(t, result.TransactionHash)
	require.Equal(t, 30, f.client.GetTxCalls())
	require.Zero(t, f.refresher.count())
}

func TestExecute_BroadcastRejected(t *testing.T) {
	f := newFixture(t)
	f.client.OnBroadcast = func(txBytes []byte) (*txtypes.BroadcastTxResponse, error) {
		return &txtypes.BroadcastTxResponse{TxResponse: &sdk.TxResponse{
			TxHash: "DEADBEEF",
			Code:   32,
			RawLog: "account sequence mismatch, expected 5, got 4",
		}}, nil
	}

	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "5"}
	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), op, gnk(10))

	require.Equal(t, lifecycle.StatusError, result.Status)
	require.Equal(t, "account sequence mismatch, expected 5, got 4", result.Error)
	require.Equal(t, "DEADBEEF", result.TransactionHash)
	require.Zero(t, f.client.GetTxCalls())
}

func TestExecute_RejectedOnChain(t *testing.T) {
	f := newFixture(t)
	f.client.OnGetTx = func(_ int, txHash string) (*txtypes.GetTxResponse, error) {
		return rpctest.Included(txHash, 5, "insufficient funds"), nil
	}

	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "5"}
	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), op, gnk(10))

	require.Equal(t, lifecycle.StatusError, result.Status)
	require.Equal(t, "insufficient funds", result.Error)
	require.Equal(t, 1, f.client.GetTxCalls())
}

// cancelOnPending cancels the caller's context as soon as the transaction is pending.
func cancelOnPending(cancel context.CancelFunc) lifecycle.StatusObserver {
	return lifecycle.StatusObserverFunc(func(transition lifecycle.Transition) {
		if transition.To == lifecycle.StatusPending {
			cancel()
		}
	})
}

func TestExecute_DetachedPollingOutlivesCaller(t *testing.T) {
	f := newFixture(t)
	f.client.OnGetTx = includedOnAttempt(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "5"}
	result := f.pipeline(t, lifecycle.PollDetached, time.Millisecond).Execute(ctx, tx.AccountFromKeyPair(f.sender), op, gnk(10), cancelOnPending(cancel))

	require.Equal(t, lifecycle.StatusSuccess, result.Status, result.Error)
	require.Equal(t, 3, f.client.GetTxCalls())
	require.Equal(t, 1, f.refresher.count())
}

func TestExecute_CancelablePollingStopsWithCaller(t *testing.T) {
	f := newFixture(t)
	f.client.OnGetTx = includedOnAttempt(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	op := lifecycle.Send{Recipient: f.recipient.Address, Amount: "5"}
	result := f.pipeline(t, lifecycle.PollCancelable, time.Millisecond).Execute(ctx, tx.AccountFromKeyPair(f.sender), op, gnk(10), cancelOnPending(cancel))

	require.Equal(t, lifecycle.StatusError, result.Status)
	require.Equal(t, context.Canceled.Error(), result.Error)
	require.NotEmpty(t, result.TransactionHash)
	require.Zero(t, f.client.GetTxCalls())
	require.Zero(t, f.refresher.count())
}

func TestExecute_EveryOperationSharesThePipeline(t *testing.T) {
	f := newFixture(t)
	f.client.OnGetTx = includedOnAttempt(1)
	validator := f.recipient.GetAddress(crypto.DefaultValidatorPrefix)

	cases := []struct {
		op       lifecycle.Operation
		messages int
	}{
		{lifecycle.Delegate{Validator: validator, Amount: "2.5"}, 1},
		{lifecycle.Vote{ProposalID: 3, Option: tx.VoteNoWithVeto}, 1},
		{lifecycle.GrantMLOps{Grantee: f.recipient.Address}, 24},
		{lifecycle.GrantSendTokens{Grantee: f.recipient.Address, ExpirationDays: 30}, 1},
	}

	for i, tc := range cases {
		result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), tc.op, gnk(10))
		require.Equal(t, lifecycle.StatusSuccess, result.Status, "%s: %s", tc.op.Kind(), result.Error)

		broadcasts := f.client.Broadcasts()
		require.Len(t, broadcasts, i+1)
		decoded, err := tx.DecodeEnvelope(f.encoding.Codec, broadcasts[i])
		require.NoError(t, err)
		require.Len(t, decoded.Messages, tc.messages, tc.op.Kind())
	}
}

func TestExecute_GrantExpirationUsesClock(t *testing.T) {
	f := newFixture(t)
	f.client.OnGetTx = includedOnAttempt(1)

	result := f.pipeline(t, lifecycle.PollDetached, 0).Execute(context.Background(), tx.AccountFromKeyPair(f.sender), lifecycle.GrantSendTokens{Grantee: f.recipient.Address}, gnk(1))
	require.Equal(t, lifecycle.StatusSuccess, result.Status, result.Error)

	decoded, err := tx.DecodeEnvelope(f.encoding.Codec, f.client.Broadcasts()[0])
	require.NoError(t, err)
	grant, ok := decoded.Messages[0].(*authz.MsgGrant)
	require.True(t, ok)
	require.Equal(t, time.Date(2027, 10, 14, 0, 0, 0, 0, time.UTC), grant.Grant.Expiration.UTC())
}
