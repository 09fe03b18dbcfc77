package metrics_test

import (
	"bytes"
	"testing"

	"github.com/kisa-team/gonka-wallet/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counts(t *testing.T) {
	m := metrics.New()

	m.ObserveTxOutcome("send", "success")
	m.ObserveTxOutcome("send", "success")
	m.ObserveTxOutcome("vote", "error")
	m.ObserveHostAttempt("9090", true)
	m.ObserveHostAttempt("9090", false)
	m.SetHostPriority("9090", "node1.gonka.ai", 4)

	count, err := testutil.GatherAndCount(m.Registry(), "gonka_wallet_tx_outcomes_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry(), "gonka_wallet_host_attempts_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	var out bytes.Buffer
	require.NoError(t, m.Dump(&out))
	require.Contains(t, out.String(), "gonka_wallet_host_priority")
	require.Contains(t, out.String(), "node1.gonka.ai")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *metrics.Metrics

	m.ObserveTxOutcome("send", "success")
	m.ObserveHostAttempt("9090", true)
	m.SetHostPriority("9090", "node1.gonka.ai", 1)
	require.Nil(t, m.Registry())
	require.NoError(t, m.Dump(&bytes.Buffer{}))
}
