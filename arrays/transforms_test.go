package arrays_test

import (
	"strings"
	"testing"

	"github.com/kisa-team/gonka-wallet/arrays"
	"github.com/stretchr/testify/require"
)

type logLine struct {
	msg string
}

func TestMap(t *testing.T) {
	lines := []logLine{{msg: "out of gas"}, {msg: ""}, {msg: "insufficient fee"}}

	messages := arrays.Map(lines, func(l logLine) string { return l.msg })

	require.Equal(t, []string{"out of gas", "", "insufficient fee"}, messages)
	require.Empty(t, arrays.Map([]logLine{}, func(l logLine) string { return l.msg }))
}

func TestFilter(t *testing.T) {
	messages := []string{"out of gas", "", "insufficient fee", "  "}

	kept := arrays.Filter(messages, func(s string) bool { return strings.TrimSpace(s) != "" })

	require.Equal(t, []string{"out of gas", "insufficient fee"}, kept)
}

func TestFilter_NothingKeptIsEmptyNotNil(t *testing.T) {
	kept := arrays.Filter([]int{1, 3, 5}, func(i int) bool { return i%2 == 0 })

	require.NotNil(t, kept)
	require.Empty(t, kept)
}

func TestUnique_KeepsFirstOccurrence(t *testing.T) {
	messages := []string{"out of gas", "insufficient funds", "out of gas", "", "insufficient funds"}

	require.Equal(t, []string{"out of gas", "insufficient funds", ""}, arrays.Unique(messages))
	require.Empty(t, arrays.Unique([]int{}))
}
