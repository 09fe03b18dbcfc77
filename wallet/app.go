package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kisa-team/gonka-wallet/bridge"
	"github.com/kisa-team/gonka-wallet/config"
	"github.com/kisa-team/gonka-wallet/cosmos/lifecycle"
	"github.com/kisa-team/gonka-wallet/cosmos/router"
	"github.com/kisa-team/gonka-wallet/cosmos/rpc"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/kisa-team/gonka-wallet/metrics"
)

// Retries of read only queries on one chain client.
const (
	queryAttempts = 3
	queryDelay    = 500 * time.Millisecond
)

// App is everything the wallet needs, built once at startup.
type App struct {
	Config   *config.WalletConfig
	Logger   *log.Logger
	Encoding tx.EncodingConfig
	Metrics  *metrics.Metrics

	Router      *router.Router
	Signer      *tx.Signer
	Broadcaster tx.TxBroadcaster
	Pipeline    *lifecycle.Pipeline

	Session  *Session
	Balances *BalanceTracker
}

// GrpcClientFactory opens retrying gRPC chain clients.
func GrpcClientFactory(cfg *config.WalletConfig, encoding tx.EncodingConfig, logger *log.Logger) router.ClientFactory {
	return func(target string) (rpc.RpcClient, error) {
		client, err := rpc.NewGrpcClient(target, cfg.DirectRpcTimeout(), encoding.Codec, logger)
		if err != nil {
			return nil, err
		}
		return rpc.NewRetryableRpcClient(queryAttempts, queryDelay, client)
	}
}

// NewApp wires the wallet. factory may be nil, in which case chain clients speak gRPC.
func NewApp(cfg *config.WalletConfig, store SecretStore, factory router.ClientFactory, logger *log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("no secret store given")
	}

	encoding := tx.NewEncodingConfig()
	m := metrics.New()
	if factory == nil {
		factory = GrpcClientFactory(cfg, encoding, logger)
	}

	nodes, err := router.NewRouter(router.Config{
		Hosts:       cfg.NodeHosts,
		GrpcPort:    cfg.GrpcPort,
		RestPort:    cfg.RestPort,
		RestTimeout: cfg.RestTimeout(),
	}, factory, m, logger)
	if err != nil {
		return nil, err
	}

	signingInfo, err := tx.NewSigningInfoProvider(nodes, cfg.ChainID)
	if err != nil {
		return nil, err
	}
	signer := tx.NewSigner(tx.NewEnvelopeBuilder(encoding.TxConfig), signingInfo, cfg.AccountPrefix, logger)

	broadcaster, err := tx.NewDefaultTxBroadcaster(nodes, logger)
	if err != nil {
		return nil, err
	}
	poller, err := tx.NewPoller(uint(cfg.PollAttempts), cfg.PollDelay(), broadcaster, logger)
	if err != nil {
		return nil, err
	}

	session := NewSession(store, crypto.DerivationParams{
		CoinType:      cfg.CoinType,
		AccountPrefix: cfg.AccountPrefix,
	}, logger)
	balances := NewBalanceTracker(nodes, session, cfg.FeeDenom, logger)

	limits := tx.DefaultTransferLimits()
	limits.AccountPrefix = cfg.AccountPrefix
	limits.Denom = cfg.FeeDenom

	pollPolicy := lifecycle.PollDetached
	if cfg.PollPolicy == config.PollPolicyCancelable {
		pollPolicy = lifecycle.PollCancelable
	}

	pipeline, err := lifecycle.NewPipeline(lifecycle.Dependencies{
		Codec:          encoding.Codec,
		Messages:       tx.NewMessageBuilder(cfg.AccountPrefix, cfg.ValidatorPrefix),
		Signer:         signer,
		Broadcaster:    broadcaster,
		Poller:         poller,
		Denom:          cfg.FeeDenom,
		TransferLimits: limits,
		PollPolicy:     pollPolicy,
		Refresher:      balances,
		Metrics:        m,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Encoding: encoding,
		Metrics:  m,

		Router:      nodes,
		Signer:      signer,
		Broadcaster: broadcaster,
		Pipeline:    pipeline,

		Session:  session,
		Balances: balances,
	}, nil
}

// NewTracker starts a fresh view for one intent.
func (a *App) NewTracker() *lifecycle.Tracker {
	return lifecycle.NewTracker()
}

// Execute runs op for the active account against a freshly fetched balance. Failing to get that far
// is reported as an idle result.
func (a *App) Execute(ctx context.Context, op lifecycle.Operation, observers ...lifecycle.StatusObserver) lifecycle.Result {
	account, ok := a.Session.Active()
	if !ok {
		return lifecycle.Result{Status: lifecycle.StatusIdle, Error: ErrNoActiveAccount.Error()}
	}

	if err := a.Balances.Refresh(ctx); err != nil {
		return lifecycle.Result{Status: lifecycle.StatusIdle, Error: fmt.Sprintf("unable to fetch balance: %s", err)}
	}

	return a.Pipeline.Execute(ctx, account, op, a.Balances.Balance(), observers...)
}

// NewBridge serves remote signing requests for the active account over transport.
func (a *App) NewBridge(transport bridge.Transport) (*bridge.Bridge, error) {
	return bridge.NewBridge(transport, a.Session, a.Signer, a.Logger)
}

func (a *App) Close() error {
	return a.Router.Close()
}
