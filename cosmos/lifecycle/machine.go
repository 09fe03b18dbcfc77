package lifecycle

import (
	"errors"
	"fmt"
	"sync"
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusSigning      Status = "signing"
	StatusBroadcasting Status = "broadcasting"
	StatusPending      Status = "pending"
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// forward lists the only status that may follow each non-terminal status, other than error.
var forward = map[Status]Status{
	StatusIdle:         StatusSigning,
	StatusSigning:      StatusBroadcasting,
	StatusBroadcasting: StatusPending,
	StatusPending:      StatusSuccess,
}

func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Transition is reported to observers on every status change.
type Transition struct {
	From            Status
	To              Status
	TransactionHash string
	Error           string
}

type StatusObserver interface {
	OnTransition(Transition)
}

// StatusObserverFunc adapts a function to a StatusObserver.
type StatusObserverFunc func(Transition)

func (f StatusObserverFunc) OnTransition(transition Transition) {
	f(transition)
}

// Machine walks idle → signing → broadcasting → pending → success, one step at a time. Any non-terminal
// status may fail into error. Terminal statuses accept no transition.
type Machine struct {
	lock sync.Mutex

	status          Status
	transactionHash string
	err             string

	observers []StatusObserver
}

func NewMachine(observers ...StatusObserver) *Machine {
	return &Machine{
		status:    StatusIdle,
		observers: observers,
	}
}

func (m *Machine) Status() Status {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.status
}

func (m *Machine) TransactionHash() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.transactionHash
}

func (m *Machine) Error() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.err
}

// Advance moves to the next status. Skipping a status or going back is an error.
func (m *Machine) Advance(next Status) error {
	return m.transition(func(current Status) error {
		if expected, ok := forward[current]; !ok || expected != next {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
		}
		return nil
	}, next, "")
}

// SetTransactionHash records the hash once it is known. It does not notify observers.
func (m *Machine) SetTransactionHash(hash string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.transactionHash = hash
}

// Fail moves to error with a displayable reason.
func (m *Machine) Fail(reason string) error {
	return m.transition(func(current Status) error {
		if current.IsTerminal() {
			return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, current)
		}
		return nil
	}, StatusError, reason)
}

func (m *Machine) transition(check func(Status) error, next Status, reason string) error {
	m.lock.Lock()
	current := m.status
	if err := check(current); err != nil {
		m.lock.Unlock()
		return err
	}
	m.status = next
	if reason != "" {
		m.err = reason
	}
	transition := Transition{
		From:            current,
		To:              next,
		TransactionHash: m.transactionHash,
		Error:           m.err,
	}
	observers := m.observers
	m.lock.Unlock()

	// Observers run outside the lock so they may read the machine.
	for _, observer := range observers {
		observer.OnTransition(transition)
	}
	return nil
}
