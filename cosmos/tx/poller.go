package tx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kisa-team/gonka-wallet/log"
)

const (
	DefaultPollAttempts = 30
	DefaultPollDelay    = 2 * time.Second
)

// Confirmation is a transaction that landed in a block with code 0.
type Confirmation struct {
	TxHash    string
	Height    int64
	GasWanted int64
	GasUsed   int64
}

// Poller waits for a broadcast transaction to land. Each attempt sleeps first, then looks the hash up.
type Poller struct {
	attempts uint
	delay    time.Duration

	broadcaster TxBroadcaster
	logger      *log.Logger
}

func NewPoller(attempts uint, delay time.Duration, broadcaster TxBroadcaster, logger *log.Logger) (*Poller, error) {
	if attempts == 0 {
		return nil, errors.New("poll attempts must be positive")
	}

	return &Poller{
		attempts:    attempts,
		delay:       delay,
		broadcaster: broadcaster,
		logger:      logger.ApplyPrefix("⏳ [poller]"),
	}, nil
}

// WaitForConfirmation returns once the transaction is found. A nonzero code is a *RejectionError, and
// running out of attempts is ErrConfirmationUnknown. Lookup errors count as a miss.
func (p *Poller) WaitForConfirmation(ctx context.Context, txHash string) (*Confirmation, error) {
	logger := p.logger.With("tx_hash", txHash)
	logger.Info("polling for inclusion")

	var i uint
	for i = 0; i < p.attempts; i++ {
		if err := sleep(ctx, p.delay); err != nil {
			return nil, err
		}

		txStatus, err := p.broadcaster.CheckTxStatus(ctx, txHash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("failed to query transaction, will retry", "attempt", i+1, "max_attempts", p.attempts, "error", err.Error())
			continue
		}
		if txStatus == nil || txStatus.TxResponse == nil {
			logger.Debug("transaction still not included", "attempt", i+1, "max_attempts", p.attempts)
			continue
		}

		txResponse := txStatus.TxResponse
		if txResponse.Code != 0 {
			reason := ExtractFailureReason(txResponse.Code, txResponse.RawLog, txResponse.Events)
			logger.Error("transaction landed on chain but failed", "code", txResponse.Code, "codespace", txResponse.Codespace, "reason", reason)
			return nil, &RejectionError{
				TxHash:    txHash,
				Code:      txResponse.Code,
				Codespace: txResponse.Codespace,
				Reason:    reason,
			}
		}

		logger.Info("transaction landed on chain", "height", txResponse.Height, "attempt", i+1)
		return &Confirmation{
			TxHash:    txHash,
			Height:    txResponse.Height,
			GasWanted: txResponse.GasWanted,
			GasUsed:   txResponse.GasUsed,
		}, nil
	}

	err := fmt.Errorf("%w: %s", ErrConfirmationUnknown, txHash)
	logger.Error("polling finished", "error", err.Error())
	return nil, err
}

func sleep(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
