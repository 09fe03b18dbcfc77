// Package rpctest provides an in memory RpcClient for tests.
package rpctest

import (
	"context"
	"errors"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"github.com/kisa-team/gonka-wallet/coding"
	"github.com/kisa-team/gonka-wallet/cosmos/rpc"
)

// FakeClient records every call. Unless overridden, broadcasts succeed with the sha256 hash of the tx
// bytes and lookups report the transaction as not found.
type FakeClient struct {
	mu sync.Mutex

	chainID  string
	accounts map[string]*authtypes.BaseAccount
	balances map[string]sdk.Coin

	// OnBroadcast overrides the broadcast response.
	OnBroadcast func(txBytes []byte) (*txtypes.BroadcastTxResponse, error)
	// OnGetTx overrides lookups. attempt starts at 1.
	OnGetTx func(attempt int, txHash string) (*txtypes.GetTxResponse, error)

	broadcasts   [][]byte
	getTxCalls   int
	accountCalls int
	balanceCalls int
	closed       bool
}

var _ rpc.RpcClient = (*FakeClient)(nil)

func NewFakeClient(chainID string) *FakeClient {
	return &FakeClient{
		chainID:  chainID,
		accounts: map[string]*authtypes.BaseAccount{},
		balances: map[string]sdk.Coin{},
	}
}

// Client lets the fake stand in wherever a client provider is expected.
func (f *FakeClient) Client(_ context.Context) (rpc.RpcClient, error) {
	return f, nil
}

func (f *FakeClient) SetAccount(address string, accountNumber, sequence uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accounts[address] = &authtypes.BaseAccount{
		Address:       address,
		AccountNumber: accountNumber,
		Sequence:      sequence,
	}
}

func (f *FakeClient) SetBalance(address string, coin sdk.Coin) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.balances[address+"/"+coin.Denom] = coin
}

func (f *FakeClient) Account(_ context.Context, address string) (authtypes.AccountI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accountCalls++
	account, ok := f.accounts[address]
	if !ok {
		return nil, rpc.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *FakeClient) ChainID(_ context.Context) (string, error) {
	if f.chainID == "" {
		return "", errors.New("node info unavailable")
	}
	return f.chainID, nil
}

func (f *FakeClient) GetBalance(_ context.Context, address, denom string) (*sdk.Coin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.balanceCalls++
	coin, ok := f.balances[address+"/"+denom]
	if !ok {
		coin = sdk.NewCoin(denom, sdkmath.ZeroInt())
	}
	return &coin, nil
}

func (f *FakeClient) Broadcast(_ context.Context, txBytes []byte) (*txtypes.BroadcastTxResponse, error) {
	f.mu.Lock()
	f.broadcasts = append(f.broadcasts, append([]byte{}, txBytes...))
	onBroadcast := f.OnBroadcast
	f.mu.Unlock()

	if onBroadcast != nil {
		return onBroadcast(txBytes)
	}
	return &txtypes.BroadcastTxResponse{
		TxResponse: &sdk.TxResponse{
			TxHash: coding.TxHash(txBytes),
			Code:   0,
		},
	}, nil
}

func (f *FakeClient) GetTx(_ context.Context, txHash string) (*txtypes.GetTxResponse, error) {
	f.mu.Lock()
	f.getTxCalls++
	attempt := f.getTxCalls
	onGetTx := f.OnGetTx
	f.mu.Unlock()

	if onGetTx != nil {
		return onGetTx(attempt, txHash)
	}
	return nil, nil
}

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// Broadcasts returns copies of every tx submitted.
func (f *FakeClient) Broadcasts() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	broadcasts := make([][]byte, 0, len(f.broadcasts))
	for _, txBytes := range f.broadcasts {
		broadcasts = append(broadcasts, append([]byte{}, txBytes...))
	}
	return broadcasts
}

func (f *FakeClient) GetTxCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getTxCalls
}

func (f *FakeClient) AccountCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountCalls
}

func (f *FakeClient) BalanceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls
}

// NetworkCalls counts every call that would have reached a node.
func (f *FakeClient) NetworkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountCalls + f.balanceCalls + len(f.broadcasts) + f.getTxCalls
}

func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Included builds a lookup response for a transaction in a block.
func Included(txHash string, code uint32, rawLog string) *txtypes.GetTxResponse {
	return &txtypes.GetTxResponse{
		TxResponse: &sdk.TxResponse{
			TxHash: txHash,
			Height: 100,
			Code:   code,
			RawLog: rawLog,
		},
	}
}
