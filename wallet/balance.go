package wallet

import (
	"context"
	"fmt"
	"sync"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/kisa-team/gonka-wallet/cosmos/lifecycle"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/log"
)

// BalanceTracker caches the fee denom balance of the active account.
type BalanceTracker struct {
	clients tx.ClientProvider
	session *Session
	denom   string

	lock    sync.RWMutex
	balance sdk.Coins

	logger *log.Logger
}

var _ lifecycle.BalanceRefresher = (*BalanceTracker)(nil)

func NewBalanceTracker(clients tx.ClientProvider, session *Session, denom string, logger *log.Logger) *BalanceTracker {
	return &BalanceTracker{
		clients: clients,
		session: session,
		denom:   denom,
		balance: sdk.Coins{},
		logger:  logger.ApplyPrefix("💰 [balance]"),
	}
}

// Refresh fetches the balance of the active account.
func (b *BalanceTracker) Refresh(ctx context.Context) error {
	address, err := b.session.Address()
	if err != nil {
		return err
	}

	client, err := b.clients.Client(ctx)
	if err != nil {
		return err
	}

	coin, err := client.GetBalance(ctx, address, b.denom)
	if err != nil {
		return fmt.Errorf("fetch balance of %s: %w", address, err)
	}

	balance := sdk.Coins{}
	if coin != nil {
		balance = sdk.NewCoins(*coin)
	}

	b.lock.Lock()
	b.balance = balance
	b.lock.Unlock()

	b.logger.Debug("refreshed balance", "address", address, "balance", tx.FormatDisplayAmount(balance.AmountOf(b.denom)))
	return nil
}

// Balance is the last fetched balance. It is empty until the first refresh.
func (b *BalanceTracker) Balance() sdk.Coins {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.balance
}
