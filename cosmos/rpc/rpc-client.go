package rpc

import (
	"context"
	"errors"

	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

var ErrAccountNotFound = errors.New("account not found")

// RpcClient is everything the wallet needs from a node.
type RpcClient interface {
	// Account returns ErrAccountNotFound if the chain has never seen the address.
	Account(ctx context.Context, address string) (authtypes.AccountI, error)
	ChainID(ctx context.Context) (string, error)
	GetBalance(ctx context.Context, address, denom string) (*sdk.Coin, error)

	Broadcast(ctx context.Context, txBytes []byte) (*txtypes.BroadcastTxResponse, error)
	// GetTx returns (nil, nil) if the transaction is not in a block yet.
	GetTx(ctx context.Context, txHash string) (*txtypes.GetTxResponse, error)

	Close() error
}
