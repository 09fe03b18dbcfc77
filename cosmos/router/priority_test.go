package router_test

import (
	"testing"

	"github.com/kisa-team/gonka-wallet/cosmos/router"
	"github.com/stretchr/testify/require"
)

func TestPriorityTable_Bounds(t *testing.T) {
	table := router.NewPriorityTable("9090", []string{"a", "b"}, nil)

	for i := 0; i < 10; i++ {
		table.Increase("a")
	}
	require.Equal(t, router.MaxHostPriority, table.Priority("a"))

	for i := 0; i < 10; i++ {
		table.Decrease("b")
	}
	require.Equal(t, 0, table.Priority("b"))
	require.Equal(t, 0, table.Priority("never-seen"))
}

func TestPriorityTable_OrderIsStable(t *testing.T) {
	table := router.NewPriorityTable("9090", []string{"a", "b", "c", "a"}, nil)
	require.Equal(t, []string{"a", "b", "c"}, table.Ordered())

	table.Increase("c")
	require.Equal(t, []string{"c", "a", "b"}, table.Ordered())

	table.Increase("b")
	require.Equal(t, []string{"b", "c", "a"}, table.Ordered())

	table.Decrease("c")
	require.Equal(t, []string{"b", "a", "c"}, table.Ordered())
}

func TestPriorityTable_UnknownHostJoinsOnSuccess(t *testing.T) {
	table := router.NewPriorityTable("9090", []string{"a"}, nil)

	table.Decrease("z")
	require.Equal(t, []string{"a"}, table.Ordered())

	table.Increase("z")
	require.Equal(t, 1, table.Priority("z"))
	require.Equal(t, []string{"z", "a"}, table.Ordered())
}

func TestPriorityTable_OrderedReturnsCopy(t *testing.T) {
	table := router.NewPriorityTable("9090", []string{"a", "b"}, nil)

	ordered := table.Ordered()
	ordered[0] = "tampered"
	require.Equal(t, []string{"a", "b"}, table.Ordered())
}
