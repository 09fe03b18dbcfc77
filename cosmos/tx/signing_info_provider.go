package tx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kisa-team/gonka-wallet/cosmos/rpc"
)

// SigningInfoProvider fetches the account number and sequence for an address. The chain id is taken from
// configuration, or read from the node once and remembered.
type SigningInfoProvider struct {
	clients ClientProvider

	chainIDLock sync.Mutex
	chainID     string
}

func NewSigningInfoProvider(clients ClientProvider, chainID string) (*SigningInfoProvider, error) {
	if clients == nil {
		return nil, errors.New("no client provider given")
	}

	return &SigningInfoProvider{
		clients: clients,
		chainID: chainID,
	}, nil
}

func (sip *SigningInfoProvider) SigningMetadataForAccount(ctx context.Context, address string) (*SigningMetadata, error) {
	client, err := sip.clients.Client(ctx)
	if err != nil {
		return nil, err
	}

	account, err := client.Account(ctx, address)
	if errors.Is(err, rpc.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	} else if err != nil {
		return nil, err
	}

	chainID, err := sip.resolveChainID(ctx, client)
	if err != nil {
		return nil, err
	}

	return NewSigningMetadata(address, account.GetAccountNumber(), account.GetSequence(), chainID), nil
}

func (sip *SigningInfoProvider) resolveChainID(ctx context.Context, client rpc.RpcClient) (string, error) {
	sip.chainIDLock.Lock()
	defer sip.chainIDLock.Unlock()

	if sip.chainID != "" {
		return sip.chainID, nil
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrChainIDUnavailable, err)
	}
	if chainID == "" {
		return "", ErrChainIDUnavailable
	}

	sip.chainID = chainID
	return chainID, nil
}
