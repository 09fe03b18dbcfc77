package tx

import (
	"context"

	"github.com/kisa-team/gonka-wallet/cosmos/rpc"
)

// ClientProvider hands out the node client to use for a call.
type ClientProvider interface {
	Client(ctx context.Context) (rpc.RpcClient, error)
}

type SigningMetadata struct {
	address       string
	accountNumber uint64
	sequence      uint64
	chainID       string
}

func NewSigningMetadata(address string, accountNumber, sequence uint64, chainID string) *SigningMetadata {
	return &SigningMetadata{
		address:       address,
		accountNumber: accountNumber,
		sequence:      sequence,
		chainID:       chainID,
	}
}

func (sm *SigningMetadata) Address() string {
	return sm.address
}

func (sm *SigningMetadata) AccountNumber() uint64 {
	return sm.accountNumber
}

func (sm *SigningMetadata) Sequence() uint64 {
	return sm.sequence
}

func (sm *SigningMetadata) ChainID() string {
	return sm.chainID
}
