package tx

import (
	"context"
	"errors"

	abci "github.com/cometbft/cometbft/abci/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/kisa-team/gonka-wallet/coding"
	"github.com/kisa-team/gonka-wallet/log"
)

// BroadcastResult is the node's answer to a broadcast. A zero code means the transaction entered the mempool.
type BroadcastResult struct {
	TxHash    string
	Code      uint32
	Codespace string
	RawLog    string
	Events    []abci.Event
}

// TxBroadcaster submits signed envelopes and looks up their inclusion.
type TxBroadcaster interface {
	// Broadcast returns a *RejectionError, along with the result, if the node refused the transaction.
	Broadcast(ctx context.Context, envelope *SignedEnvelope) (*BroadcastResult, error)

	// CheckTxStatus returns (nil, nil) if the transaction is not in a block yet.
	CheckTxStatus(ctx context.Context, txHash string) (*txtypes.GetTxResponse, error)
}

// defaultBroadcaster broadcasts in sync mode through the current node client
type defaultBroadcaster struct {
	clients ClientProvider
	logger  *log.Logger
}

var _ TxBroadcaster = (*defaultBroadcaster)(nil)

func NewDefaultTxBroadcaster(clients ClientProvider, logger *log.Logger) (TxBroadcaster, error) {
	if clients == nil {
		return nil, errors.New("no client provider given")
	}

	return &defaultBroadcaster{
		clients: clients,
		logger:  logger.ApplyPrefix("📣 [broadcaster]"),
	}, nil
}

func (b *defaultBroadcaster) Broadcast(ctx context.Context, envelope *SignedEnvelope) (*BroadcastResult, error) {
	txBytes, err := envelope.TxBytes()
	if err != nil {
		return nil, err
	}
	logger := b.logger.With("tx_hash", coding.TxHash(txBytes), "sequence", envelope.Sequence())

	client, err := b.clients.Client(ctx)
	if err != nil {
		return nil, err
	}

	response, err := client.Broadcast(ctx, txBytes)
	if err != nil {
		logger.Error("failed to broadcast transaction", "error", err.Error())
		return nil, err
	}
	if response == nil || response.TxResponse == nil {
		return nil, errors.New("empty broadcast response")
	}

	txResponse := response.TxResponse
	result := &BroadcastResult{
		TxHash:    txResponse.TxHash,
		Code:      txResponse.Code,
		Codespace: txResponse.Codespace,
		RawLog:    txResponse.RawLog,
		Events:    txResponse.Events,
	}
	logger.Info("attempted to broadcast transaction", "code", result.Code, "codespace", result.Codespace)

	if result.Code != 0 {
		return result, &RejectionError{
			TxHash:    result.TxHash,
			Code:      result.Code,
			Codespace: result.Codespace,
			Reason:    ExtractFailureReason(result.Code, result.RawLog, result.Events),
		}
	}
	return result, nil
}

func (b *defaultBroadcaster) CheckTxStatus(ctx context.Context, txHash string) (*txtypes.GetTxResponse, error) {
	client, err := b.clients.Client(ctx)
	if err != nil {
		return nil, err
	}

	txStatus, err := client.GetTx(ctx, txHash)
	if err != nil {
		b.logger.Debug("error querying tx status", "tx_hash", txHash, "error", err.Error())
		return nil, err
	}
	return txStatus, nil
}
