package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kisa-team/gonka-wallet/cosmos/router"
	"github.com/kisa-team/gonka-wallet/cosmos/rpc"
	"github.com/kisa-team/gonka-wallet/cosmos/rpc/rpctest"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/kisa-team/gonka-wallet/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFactory hands out fake clients. Targets listed in down fail their liveness probe.
type fakeFactory struct {
	lock    sync.Mutex
	calls   []string
	down    map[string]bool
	release chan struct{}
}

func (f *fakeFactory) create(target string) (rpc.RpcClient, error) {
	f.lock.Lock()
	f.calls = append(f.calls, target)
	down := f.down[target]
	f.lock.Unlock()

	if f.release != nil {
		<-f.release
	}
	if down {
		return rpctest.NewFakeClient(""), nil
	}
	return rpctest.NewFakeClient("gonka-testnet"), nil
}

func (f *fakeFactory) targets() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string{}, f.calls...)
}

func newTestRouter(t *testing.T, hosts []string, factory router.ClientFactory) *router.Router {
	t.Helper()

	r, err := router.NewRouter(router.Config{
		Hosts:       hosts,
		GrpcPort:    "9090",
		RestPort:    "8000",
		RestTimeout: time.Second,
	}, factory, metrics.New(), log.Discard())
	require.NoError(t, err)
	return r
}

func TestRouter_ClientIsCreatedOnce(t *testing.T) {
	factory := &fakeFactory{release: make(chan struct{})}
	r := newTestRouter(t, []string{"node1", "node2"}, factory.create)

	var wg sync.WaitGroup
	clients := make([]rpc.RpcClient, 10)
	errs := make([]error, 10)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = r.Client(context.Background())
		}(i)
	}

	// Let every caller queue up behind the first creation.
	time.Sleep(50 * time.Millisecond)
	close(factory.release)
	wg.Wait()

	require.Equal(t, []string{"node1:9090"}, factory.targets())
	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, client := range clients {
		require.Same(t, clients[0], client)
	}

	again, err := r.Client(context.Background())
	require.NoError(t, err)
	require.Same(t, clients[0], again)
	require.Len(t, factory.targets(), 1)
}

func TestRouter_FailsOverAndReranks(t *testing.T) {
	factory := &fakeFactory{down: map[string]bool{"node1:9090": true}}
	r := newTestRouter(t, []string{"node1", "node2"}, factory.create)

	_, err := r.Client(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"node1:9090", "node2:9090"}, factory.targets())
	require.Equal(t, 1, r.Table("9090").Priority("node2"))
	require.Equal(t, 0, r.Table("9090").Priority("node1"))
	require.Equal(t, []string{"node2", "node1"}, r.Table("9090").Ordered())

	// Ports rank independently.
	require.Equal(t, []string{"node1", "node2"}, r.Table("8000").Ordered())
}

func TestRouter_AllHostsFailed(t *testing.T) {
	factory := &fakeFactory{down: map[string]bool{"node1:9090": true, "node2:9090": true}}
	r := newTestRouter(t, []string{"node1", "node2"}, factory.create)

	_, err := r.Client(context.Background())
	require.ErrorIs(t, err, router.ErrAllHostsFailed)
	require.Contains(t, err.Error(), "node1:9090")
	require.Contains(t, err.Error(), "node2:9090")

	// A failed creation is not remembered.
	_, err = r.Client(context.Background())
	require.ErrorIs(t, err, router.ErrAllHostsFailed)
	require.Len(t, factory.targets(), 4)
}

func TestRouter_ClientHonorsCallerCancel(t *testing.T) {
	factory := &fakeFactory{release: make(chan struct{})}
	defer close(factory.release)
	r := newTestRouter(t, []string{"node1"}, factory.create)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Client(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRouter_RequiresHosts(t *testing.T) {
	_, err := router.NewRouter(router.Config{}, (&fakeFactory{}).create, nil, log.Discard())
	require.ErrorIs(t, err, router.ErrNoHosts)
}

func TestScheme(t *testing.T) {
	require.Equal(t, "https", router.Scheme("8443"))
	require.Equal(t, "http", router.Scheme("8000"))
	require.Equal(t, "http", router.Scheme("443"))
}

func splitServer(t *testing.T, server *httptest.Server) (host, port string) {
	t.Helper()

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, port, err = net.SplitHostPort(parsed.Host)
	require.NoError(t, err)
	return host, port
}

func TestFetch_SkipsFailingHosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, "/cosmos/bank/v1beta1/balances/gonka1abc", req.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))

		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"echo": body})
	}))
	defer server.Close()

	host, port := splitServer(t, server)

	// 127.0.0.2 is loopback too, but nothing listens there.
	r := newTestRouter(t, []string{"127.0.0.2", host}, (&fakeFactory{}).create)

	result, err := r.Fetch(context.Background(), port, http.MethodPost, "/cosmos/bank/v1beta1/balances/gonka1abc", map[string]string{"hello": "world"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, result.Status)
	require.JSONEq(t, `{"echo":{"hello":"world"}}`, string(result.Data))
	require.Equal(t, 2, result.Metadata.Attempts)
	require.Equal(t, "http://"+net.JoinHostPort(host, port), result.Metadata.Provider)

	require.Equal(t, []string{host, "127.0.0.2"}, r.Table(port).Ordered())
	require.Equal(t, 1, r.Table(port).Priority(host))
}

func TestFetch_NonJSONCountsAsFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	host, port := splitServer(t, server)
	r := newTestRouter(t, []string{host}, (&fakeFactory{}).create)
	r.Table(port).Increase(host)

	_, err := r.Fetch(context.Background(), port, http.MethodGet, "status", nil)
	require.ErrorIs(t, err, router.ErrAllHostsFailed)
	require.ErrorIs(t, err, router.ErrInvalidJSON)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, 0, r.Table(port).Priority(host))
}

func TestFetch_AllHostsFailedReportsEveryHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	host, port := splitServer(t, server)
	r := newTestRouter(t, []string{host, "127.0.0.2"}, (&fakeFactory{}).create)

	_, err := r.Fetch(context.Background(), port, http.MethodGet, "status", nil)
	require.ErrorIs(t, err, router.ErrAllHostsFailed)
	// The non JSON answer came from the first host, the refused connection from the second.
	require.ErrorIs(t, err, router.ErrInvalidJSON)
	require.Contains(t, err.Error(), "http://"+net.JoinHostPort(host, port))
	require.Contains(t, err.Error(), "http://"+net.JoinHostPort("127.0.0.2", port))
}

func TestFetch_TimesOutPerHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(time.Second):
		}
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	host, port := splitServer(t, server)
	r, err := router.NewRouter(router.Config{
		Hosts:       []string{host},
		GrpcPort:    "9090",
		RestPort:    port,
		RestTimeout: 50 * time.Millisecond,
	}, (&fakeFactory{}).create, nil, log.Discard())
	require.NoError(t, err)

	start := time.Now()
	_, err = r.Fetch(context.Background(), port, http.MethodGet, "slow", nil)
	require.ErrorIs(t, err, router.ErrAllHostsFailed)
	require.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
	require.Less(t, time.Since(start), 900*time.Millisecond)
}
