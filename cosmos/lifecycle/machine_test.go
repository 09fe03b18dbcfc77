package lifecycle_test

import (
	"testing"

	"github.com/kisa-team/gonka-wallet/cosmos/lifecycle"
	"github.com/stretchr/testify/require"
)

func TestMachine_ForwardOnly(t *testing.T) {
	var seen []lifecycle.Status
	machine := lifecycle.NewMachine(lifecycle.StatusObserverFunc(func(transition lifecycle.Transition) {
		seen = append(seen, transition.To)
	}))
	require.Equal(t, lifecycle.StatusIdle, machine.Status())

	require.ErrorIs(t, machine.Advance(lifecycle.StatusBroadcasting), lifecycle.ErrInvalidTransition)
	require.NoError(t, machine.Advance(lifecycle.StatusSigning))
	require.ErrorIs(t, machine.Advance(lifecycle.StatusIdle), lifecycle.ErrInvalidTransition)
	require.ErrorIs(t, machine.Advance(lifecycle.StatusSigning), lifecycle.ErrInvalidTransition)
	require.NoError(t, machine.Advance(lifecycle.StatusBroadcasting))
	require.ErrorIs(t, machine.Advance(lifecycle.StatusSuccess), lifecycle.ErrInvalidTransition)
	require.NoError(t, machine.Advance(lifecycle.StatusPending))
	require.NoError(t, machine.Advance(lifecycle.StatusSuccess))

	require.ErrorIs(t, machine.Advance(lifecycle.StatusError), lifecycle.ErrInvalidTransition)
	require.ErrorIs(t, machine.Fail("too late"), lifecycle.ErrInvalidTransition)
	require.Equal(t, lifecycle.StatusSuccess, machine.Status())

	require.Equal(t, []lifecycle.Status{
		lifecycle.StatusSigning,
		lifecycle.StatusBroadcasting,
		lifecycle.StatusPending,
		lifecycle.StatusSuccess,
	}, seen)
}

func TestMachine_FailFromAnyNonTerminalStatus(t *testing.T) {
	steps := []lifecycle.Status{lifecycle.StatusSigning, lifecycle.StatusBroadcasting, lifecycle.StatusPending}

	for advanced := 0; advanced <= len(steps); advanced++ {
		machine := lifecycle.NewMachine()
		for _, step := range steps[:advanced] {
			require.NoError(t, machine.Advance(step))
		}

		require.NoError(t, machine.Fail("boom"))
		require.Equal(t, lifecycle.StatusError, machine.Status())
		require.Equal(t, "boom", machine.Error())
		require.True(t, machine.Status().IsTerminal())

		require.ErrorIs(t, machine.Fail("again"), lifecycle.ErrInvalidTransition)
		require.Equal(t, "boom", machine.Error())
	}
}

func TestTracker(t *testing.T) {
	tracker := lifecycle.NewTracker()
	machine := lifecycle.NewMachine(tracker)

	require.NoError(t, machine.Advance(lifecycle.StatusSigning))
	require.NoError(t, machine.Advance(lifecycle.StatusBroadcasting))
	machine.SetTransactionHash("ABC")
	require.NoError(t, machine.Advance(lifecycle.StatusPending))
	require.Equal(t, lifecycle.StatusPending, tracker.Status())
	require.Equal(t, "ABC", tracker.TransactionHash())

	require.NoError(t, machine.Fail("gone"))
	require.Equal(t, lifecycle.StatusError, tracker.Status())
	require.Equal(t, "gone", tracker.Error())

	tracker.Reset()
	require.Equal(t, lifecycle.StatusIdle, tracker.Status())
	require.Empty(t, tracker.TransactionHash())
	require.Empty(t, tracker.Error())

	tracker.Record(lifecycle.Result{Status: lifecycle.StatusIdle, Error: "insufficient balance"})
	require.Equal(t, "insufficient balance", tracker.Error())
}
