package router

import (
	"slices"
	"sync"

	"github.com/kisa-team/gonka-wallet/metrics"
)

// MaxHostPriority bounds how much trust a host can build up.
const MaxHostPriority = 5

// PriorityTable ranks the hosts serving one port. Hosts start at 0, gain a point per success and lose
// one per failure, within [0, MaxHostPriority].
type PriorityTable struct {
	lock sync.Mutex

	port       string
	hosts      []string
	priorities map[string]int

	// nil when a priority changed since the last sort
	ordered []string

	metrics *metrics.Metrics
}

func NewPriorityTable(port string, hosts []string, m *metrics.Metrics) *PriorityTable {
	table := &PriorityTable{
		port:       port,
		hosts:      []string{},
		priorities: map[string]int{},
		metrics:    m,
	}
	for _, host := range hosts {
		if _, ok := table.priorities[host]; ok {
			continue
		}
		table.hosts = append(table.hosts, host)
		table.priorities[host] = 0
	}
	return table
}

func (t *PriorityTable) Priority(host string) int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.priorities[host]
}

// Increase adds a point to a host. A host not seen before joins the table.
func (t *PriorityTable) Increase(host string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	current, known := t.priorities[host]
	if !known {
		t.hosts = append(t.hosts, host)
	}
	if current >= MaxHostPriority {
		return
	}
	t.set(host, current+1)
}

func (t *PriorityTable) Decrease(host string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	current, known := t.priorities[host]
	if !known || current <= 0 {
		return
	}
	t.set(host, current-1)
}

// Ordered returns hosts by descending priority. Ties keep the configured order.
func (t *PriorityTable) Ordered() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.ordered == nil {
		ordered := slices.Clone(t.hosts)
		slices.SortStableFunc(ordered, func(a, b string) int {
			return t.priorities[b] - t.priorities[a]
		})
		t.ordered = ordered
	}
	return slices.Clone(t.ordered)
}

// set must be called with the lock held
func (t *PriorityTable) set(host string, priority int) {
	t.priorities[host] = priority
	t.ordered = nil
	t.metrics.SetHostPriority(t.port, host, priority)
}
