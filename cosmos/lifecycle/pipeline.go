package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/kisa-team/gonka-wallet/metrics"
)

// PollPolicy decides whether confirmation polling stops when the caller's context ends.
type PollPolicy int

const (
	// PollDetached keeps polling after the caller gives up, so the balance still refreshes once the
	// transaction lands.
	PollDetached PollPolicy = iota
	// PollCancelable ends polling with an error when the caller's context is done.
	PollCancelable
)

// BalanceRefresher is called after every successful transaction.
type BalanceRefresher interface {
	Refresh(ctx context.Context) error
}

// Result is all a caller gets back. It never carries a Go error, only a displayable string.
type Result struct {
	TransactionHash string
	Status          Status
	Error           string
}

type Dependencies struct {
	Codec       codec.Codec
	Messages    *tx.MessageBuilder
	Signer      *tx.Signer
	Broadcaster tx.TxBroadcaster
	Poller      *tx.Poller

	Denom          string
	TransferLimits tx.TransferLimits
	PollPolicy     PollPolicy

	// Optional
	Refresher BalanceRefresher
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

// Pipeline runs any operation through validation, signing, broadcast and confirmation.
type Pipeline struct {
	deps   Dependencies
	logger *log.Logger
}

func NewPipeline(deps Dependencies, logger *log.Logger) (*Pipeline, error) {
	if deps.Codec == nil || deps.Messages == nil || deps.Signer == nil || deps.Broadcaster == nil || deps.Poller == nil {
		return nil, errors.New("pipeline is missing a dependency")
	}
	if deps.Denom == "" {
		return nil, errors.New("no denom given")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Pipeline{
		deps:   deps,
		logger: logger.ApplyPrefix("🔗 [lifecycle]"),
	}, nil
}

// Execute runs op for account against a balance the caller has already fetched. Validation failures,
// including an unaffordable spend, leave the status idle and make no network call.
func (p *Pipeline) Execute(ctx context.Context, account tx.SigningAccount, op Operation, balance sdk.Coins, observers ...StatusObserver) Result {
	machine := NewMachine(observers...)
	logger := p.logger.With("operation", op.Kind(), "sender", account.Address)

	env := Env{
		Messages: p.deps.Messages,
		Sender:   account.Address,
		Denom:    p.deps.Denom,
		Now:      p.deps.Clock(),
	}

	msgs, fee, err := p.validate(op, env, balance)
	if err != nil {
		logger.Info("rejected intent", "error", err.Error())
		return Result{Status: StatusIdle, Error: err.Error()}
	}

	fail := func(err error) Result {
		_ = machine.Fail(err.Error())
		p.deps.Metrics.ObserveTxOutcome(op.Kind(), string(StatusError))
		logger.Error("transaction failed", "tx_hash", machine.TransactionHash(), "error", err.Error())
		return p.result(machine)
	}

	_ = machine.Advance(StatusSigning)
	signed, err := p.deps.Signer.Sign(ctx, account, msgs, op.Memo(), fee)
	if err != nil {
		return fail(err)
	}

	if validator, ok := op.(SignedValidator); ok {
		txBytes, err := signed.TxBytes()
		if err != nil {
			return fail(err)
		}
		if err := validator.ValidateSigned(p.deps.Codec, txBytes, p.deps.TransferLimits); err != nil {
			return fail(err)
		}
	}

	_ = machine.Advance(StatusBroadcasting)
	broadcast, err := p.deps.Broadcaster.Broadcast(ctx, signed)
	if broadcast != nil {
		machine.SetTransactionHash(broadcast.TxHash)
	}
	if err != nil {
		return fail(err)
	}

	_ = machine.Advance(StatusPending)
	pollCtx := ctx
	if p.deps.PollPolicy == PollDetached {
		pollCtx = context.WithoutCancel(ctx)
	}
	confirmation, err := p.deps.Poller.WaitForConfirmation(pollCtx, broadcast.TxHash)
	if err != nil {
		return fail(err)
	}

	_ = machine.Advance(StatusSuccess)
	p.deps.Metrics.ObserveTxOutcome(op.Kind(), string(StatusSuccess))
	logger.Info("transaction confirmed", "tx_hash", confirmation.TxHash, "height", confirmation.Height)

	if p.deps.Refresher != nil {
		if err := p.deps.Refresher.Refresh(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to refresh balance", "error", err.Error())
		}
	}
	return p.result(machine)
}

func (p *Pipeline) validate(op Operation, env Env, balance sdk.Coins) ([]sdk.Msg, *tx.Fee, error) {
	msgs, err := op.Build(env)
	if err != nil {
		return nil, nil, err
	}

	fee, err := op.FeePolicy().Resolve(op.Overrides())
	if err != nil {
		return nil, nil, err
	}

	spend, err := op.Spend(env)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.CheckAffordable(fee, spend, balance); err != nil {
		return nil, nil, err
	}

	return msgs, fee, nil
}

func (p *Pipeline) result(machine *Machine) Result {
	return Result{
		TransactionHash: machine.TransactionHash(),
		Status:          machine.Status(),
		Error:           machine.Error(),
	}
}
