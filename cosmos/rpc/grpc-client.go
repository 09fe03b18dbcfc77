package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/kisa-team/gonka-wallet/cosmos/util"
	"github.com/kisa-team/gonka-wallet/grpc"
	"github.com/kisa-team/gonka-wallet/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cosmos/cosmos-sdk/client/grpc/tmservice"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/query"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	grpclib "google.golang.org/grpc"
)

// Page size to use
const pageSize = 100

// grpcClient is the private and default implementation.
type grpcClient struct {
	cdc  codec.Codec
	conn *grpclib.ClientConn

	authClient authtypes.QueryClient
	bankClient banktypes.QueryClient
	tmClient   tmservice.ServiceClient
	txClient   txtypes.ServiceClient

	log *log.Logger
}

// A struct that came back from an RPC query
type paginatedRpcResponse[dataType any] struct {
	data    []dataType
	nextKey []byte
}

// Ensure that grpcClient implements RpcClient
var _ RpcClient = (*grpcClient)(nil)

// NewGrpcClient makes a new RpcClient for host:port. A zero callTimeout defers to the transport.
func NewGrpcClient(nodeGrpcUri string, callTimeout time.Duration, cdc codec.Codec, log *log.Logger) (RpcClient, error) {
	conn, err := grpc.GetGrpcConnection(nodeGrpcUri, callTimeout)
	if err != nil {
		log.Error("unable to connect to gRPC", "grpc_url", nodeGrpcUri, "error", err.Error())
		return nil, err
	}

	return &grpcClient{
		cdc:  cdc,
		conn: conn,

		authClient: authtypes.NewQueryClient(conn),
		bankClient: banktypes.NewQueryClient(conn),
		tmClient:   tmservice.NewServiceClient(conn),
		txClient:   txtypes.NewServiceClient(conn),

		log: log.With("grpc_url", nodeGrpcUri),
	}, nil
}

func (r *grpcClient) Account(ctx context.Context, address string) (authtypes.AccountI, error) {
	res, err := r.authClient.Account(ctx, &authtypes.QueryAccountRequest{Address: address})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
		}
		return nil, err
	}

	var account authtypes.AccountI
	if err := r.cdc.UnpackAny(res.Account, &account); err != nil {
		return nil, err
	}

	return account, nil
}

func (r *grpcClient) ChainID(ctx context.Context) (string, error) {
	res, err := r.tmClient.GetNodeInfo(ctx, &tmservice.GetNodeInfoRequest{})
	if err != nil {
		return "", err
	}

	chainID := res.GetDefaultNodeInfo().GetNetwork()
	if chainID == "" {
		return "", fmt.Errorf("node did not report a network")
	}
	return chainID, nil
}

func (r *grpcClient) GetBalance(ctx context.Context, address, denom string) (*sdk.Coin, error) {
	getBalancesFunc := func(ctx context.Context, pageKey []byte) (*paginatedRpcResponse[sdk.Coin], error) {
		request := &banktypes.QueryAllBalancesRequest{
			Address: address,
			Pagination: &query.PageRequest{
				Key:   pageKey,
				Limit: pageSize,
			},
		}

		response, err := r.bankClient.AllBalances(ctx, request)
		if err != nil {
			return nil, err
		}

		var nextKey []byte
		if response.Pagination != nil {
			nextKey = response.Pagination.NextKey
		}
		return &paginatedRpcResponse[sdk.Coin]{
			data:    response.Balances,
			nextKey: nextKey,
		}, nil
	}

	balances, err := retrievePaginatedData(ctx, r, "balances", getBalancesFunc)
	if err != nil {
		return nil, err
	}
	r.log.Debug("retrieved balances", "num_balances", len(balances), "address", address, "denom", denom)

	return util.CoinOf(denom, balances), nil
}

func (r *grpcClient) Broadcast(ctx context.Context, txBytes []byte) (*txtypes.BroadcastTxResponse, error) {
	query := &txtypes.BroadcastTxRequest{
		Mode:    txtypes.BroadcastMode_BROADCAST_MODE_SYNC,
		TxBytes: txBytes,
	}

	return r.txClient.BroadcastTx(ctx, query)
}

func (r *grpcClient) GetTx(ctx context.Context, txHash string) (*txtypes.GetTxResponse, error) {
	response, err := r.txClient.GetTx(ctx, &txtypes.GetTxRequest{Hash: txHash})
	if err == nil {
		return response, nil
	}

	if isNotFound(err) {
		// No error, but nothing was found
		r.log.Debug("tx not included in chain", "tx_hash", txHash)
		return nil, nil
	}
	return nil, err
}

func (r *grpcClient) Close() error {
	return r.conn.Close()
}

func isNotFound(err error) bool {
	grpcErr, ok := status.FromError(err)
	return ok && grpcErr.Code() == codes.NotFound
}

// Pagination
// NOTE: Implemented as a private standalone func since go doesn't support generics on struct methods.
func retrievePaginatedData[DataType any](
	ctx context.Context,
	r *grpcClient,
	noun string,
	retrievePageFn func(
		ctx context.Context,
		nextKey []byte,
	) (*paginatedRpcResponse[DataType], error),
) ([]DataType, error) {
	data := []DataType{}

	var nextKey []byte
	for {
		rpcResponse, err := retrievePageFn(ctx, nextKey)
		if err != nil {
			return nil, err
		}

		data = append(data, rpcResponse.data...)
		r.log.Debug(fmt.Sprintf("fetched page of %s", noun), "num_in_page", len(rpcResponse.data), "total_fetched", len(data))

		if len(rpcResponse.nextKey) == 0 {
			break
		}
		nextKey = rpcResponse.nextKey
	}

	return data, nil
}
