package store

import "sync"

// subscriber receives a level-triggered "something changed" signal.
// The channel holds at most one pending signal, so bursts of commits
// coalesce into a single refresh.
type subscriber struct {
	signal chan struct{}
}

// hub fans committed table changes out to watchers.
type hub struct {
	mu   sync.Mutex
	subs map[Table]map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[Table]map[*subscriber]struct{})}
}

func (h *hub) subscribe(table Table) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{signal: make(chan struct{}, 1)}
	if h.subs[table] == nil {
		h.subs[table] = make(map[*subscriber]struct{})
	}
	h.subs[table][sub] = struct{}{}
	return sub
}

func (h *hub) unsubscribe(table Table, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[table], sub)
}

// publish signals every subscriber of the given tables without blocking.
func (h *hub) publish(tables map[Table]bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for table, changed := range tables {
		if !changed {
			continue
		}
		for sub := range h.subs[table] {
			select {
			case sub.signal <- struct{}{}:
			default:
				// A refresh is already pending.
			}
		}
	}
}

// count returns the number of live subscribers on a table.
func (h *hub) count(table Table) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[table])
}
