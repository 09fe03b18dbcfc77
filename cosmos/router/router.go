package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kisa-team/gonka-wallet/cosmos/rpc"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/kisa-team/gonka-wallet/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRestTimeout  = 5 * time.Second
	DefaultProbeTimeout = 5 * time.Second

	clientKey = "client"
)

// ClientFactory opens a chain client for host:port.
type ClientFactory func(target string) (rpc.RpcClient, error)

type Config struct {
	Hosts    []string
	GrpcPort string
	RestPort string

	// RestTimeout bounds each host attempt on the REST path.
	RestTimeout time.Duration
	// ProbeTimeout bounds the liveness check made before a gRPC host is adopted.
	ProbeTimeout time.Duration
}

// Router picks node hosts by their track record. It holds one chain client for the life of the process,
// created on first use, and proxies REST calls across hosts.
type Router struct {
	config  Config
	factory ClientFactory

	httpClient *http.Client
	logger     *log.Logger
	metrics    *metrics.Metrics

	tablesLock sync.Mutex
	tables     map[string]*PriorityTable

	group      singleflight.Group
	clientLock sync.RWMutex
	client     rpc.RpcClient
}

var _ tx.ClientProvider = (*Router)(nil)

func NewRouter(config Config, factory ClientFactory, m *metrics.Metrics, logger *log.Logger) (*Router, error) {
	if len(config.Hosts) == 0 {
		return nil, ErrNoHosts
	}
	if factory == nil {
		return nil, errors.New("no client factory given")
	}
	if config.RestTimeout <= 0 {
		config.RestTimeout = DefaultRestTimeout
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultProbeTimeout
	}

	return &Router{
		config:  config,
		factory: factory,

		httpClient: &http.Client{},
		logger:     logger.ApplyPrefix("📡 [router]"),
		metrics:    m,

		tables: map[string]*PriorityTable{},
	}, nil
}

// Table returns the priority table of a port, creating it from the configured hosts on first use.
func (r *Router) Table(port string) *PriorityTable {
	r.tablesLock.Lock()
	defer r.tablesLock.Unlock()

	table, ok := r.tables[port]
	if !ok {
		table = NewPriorityTable(port, r.config.Hosts, r.metrics)
		r.tables[port] = table
	}
	return table
}

func (r *Router) reportSuccess(port, host string) {
	r.Table(port).Increase(host)
	r.metrics.ObserveHostAttempt(port, true)
}

func (r *Router) reportFailure(port, host string) {
	r.Table(port).Decrease(host)
	r.metrics.ObserveHostAttempt(port, false)
}

// Client returns the process wide chain client. Concurrent first callers share one creation.
func (r *Router) Client(ctx context.Context) (rpc.RpcClient, error) {
	r.clientLock.RLock()
	client := r.client
	r.clientLock.RUnlock()
	if client != nil {
		return client, nil
	}

	// Creation outlives any single caller, since its result is shared.
	creationCtx := context.WithoutCancel(ctx)
	resultChan := r.group.DoChan(clientKey, func() (interface{}, error) {
		r.clientLock.RLock()
		existing := r.client
		r.clientLock.RUnlock()
		if existing != nil {
			return existing, nil
		}

		created, err := r.connect(creationCtx)
		if err != nil {
			return nil, err
		}

		r.clientLock.Lock()
		r.client = created
		r.clientLock.Unlock()
		return created, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(rpc.RpcClient), nil
	}
}

func (r *Router) connect(ctx context.Context) (rpc.RpcClient, error) {
	port := r.config.GrpcPort
	errs := []error{}

	for _, host := range r.Table(port).Ordered() {
		target := net.JoinHostPort(host, port)
		logger := r.logger.With("target", target)

		client, err := r.probe(ctx, target)
		if err != nil {
			logger.Warn("host unavailable", "error", err.Error())
			r.reportFailure(port, host)
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			continue
		}

		logger.Info("connected to node")
		r.reportSuccess(port, host)
		return client, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrAllHostsFailed, errors.Join(errs...))
}

func (r *Router) probe(ctx context.Context, target string) (rpc.RpcClient, error) {
	client, err := r.factory(target)
	if err != nil {
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.config.ProbeTimeout)
	defer cancel()

	if _, err := client.ChainID(probeCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Close releases the chain client, if one was created.
func (r *Router) Close() error {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
