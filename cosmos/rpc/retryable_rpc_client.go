package rpc

import (
	"context"
	"errors"
	"time"

	retry "github.com/avast/retry-go/v4"

	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

// retryableRpcClient retries read only queries and returns the last error. Broadcasts and tx lookups pass
// straight through: a broadcast is never resent automatically, and tx lookups have their own poll budget.
type retryableRpcClient struct {
	wrappedClient RpcClient

	attempts retry.Option
	delay    retry.Option
}

// Ensure that retryableRpcClient implements RpcClient
var _ RpcClient = (*retryableRpcClient)(nil)

// NewRetryableRpcClient returns a new retryableRpcClient
func NewRetryableRpcClient(attempts uint, delay time.Duration, rpcClient RpcClient) (RpcClient, error) {
	return &retryableRpcClient{
		wrappedClient: rpcClient,

		attempts: retry.Attempts(attempts),
		delay:    retry.Delay(delay),
	}, nil
}

func (r *retryableRpcClient) Account(ctx context.Context, address string) (authtypes.AccountI, error) {
	var result authtypes.AccountI
	var err error

	err = retry.Do(func() error {
		result, err = r.wrappedClient.Account(ctx, address)
		if errors.Is(err, ErrAccountNotFound) {
			return retry.Unrecoverable(err)
		}
		return err
	}, r.delay, r.attempts, retry.Context(ctx), retry.LastErrorOnly(true))

	return result, err
}

func (r *retryableRpcClient) ChainID(ctx context.Context) (string, error) {
	var result string
	var err error

	err = retry.Do(func() error {
		result, err = r.wrappedClient.ChainID(ctx)
		return err
	}, r.delay, r.attempts, retry.Context(ctx), retry.LastErrorOnly(true))

	return result, err
}

func (r *retryableRpcClient) GetBalance(ctx context.Context, address, denom string) (*sdk.Coin, error) {
	var result *sdk.Coin
	var err error

	err = retry.Do(func() error {
		result, err = r.wrappedClient.GetBalance(ctx, address, denom)
		return err
	}, r.delay, r.attempts, retry.Context(ctx), retry.LastErrorOnly(true))

	return result, err
}

func (r *retryableRpcClient) Broadcast(ctx context.Context, txBytes []byte) (*txtypes.BroadcastTxResponse, error) {
	return r.wrappedClient.Broadcast(ctx, txBytes)
}

func (r *retryableRpcClient) GetTx(ctx context.Context, txHash string) (*txtypes.GetTxResponse, error) {
	return r.wrappedClient.GetTx(ctx, txHash)
}

func (r *retryableRpcClient) Close() error {
	return r.wrappedClient.Close()
}
