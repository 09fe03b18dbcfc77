package lifecycle

import "sync"

// Tracker keeps the latest view of one intent for display. A fresh intent starts after Reset.
type Tracker struct {
	lock sync.RWMutex

	status          Status
	transactionHash string
	err             string
}

var _ StatusObserver = (*Tracker)(nil)

func NewTracker() *Tracker {
	return &Tracker{status: StatusIdle}
}

func (t *Tracker) OnTransition(transition Transition) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.status = transition.To
	t.transactionHash = transition.TransactionHash
	t.err = transition.Error
}

// Record applies a result, including results that never left idle.
func (t *Tracker) Record(result Result) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.status = result.Status
	t.transactionHash = result.TransactionHash
	t.err = result.Error
}

func (t *Tracker) Status() Status {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.status
}

func (t *Tracker) TransactionHash() string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.transactionHash
}

func (t *Tracker) Error() string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.err
}

func (t *Tracker) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.status = StatusIdle
	t.transactionHash = ""
	t.err = ""
}
