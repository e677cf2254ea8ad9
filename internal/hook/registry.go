package hook

import (
	"sync/atomic"

	"activitymon/internal/input"
)

type entry struct {
	id       SubscriptionID
	listener Listener
}

// registry maps each event kind to its listeners in subscription order.
// Writers must be serialized by the caller. Readers load an immutable
// snapshot and never block.
type registry struct {
	lists [input.EventKindCount]atomic.Pointer[[]entry]
}

func (r *registry) snapshot(kind input.EventKind) []entry {
	if p := r.lists[kind].Load(); p != nil {
		return *p
	}
	return nil
}

func (r *registry) add(kind input.EventKind, e entry) {
	old := r.snapshot(kind)
	next := make([]entry, len(old), len(old)+1)
	copy(next, old)
	next = append(next, e)
	r.lists[kind].Store(&next)
}

func (r *registry) remove(kind input.EventKind, id SubscriptionID) bool {
	old := r.snapshot(kind)
	for i, e := range old {
		if e.id != id {
			continue
		}
		next := make([]entry, 0, len(old)-1)
		next = append(next, old[:i]...)
		next = append(next, old[i+1:]...)
		r.lists[kind].Store(&next)
		return true
	}
	return false
}

func (r *registry) count(kind input.EventKind) int {
	return len(r.snapshot(kind))
}

// countHook sums listeners over every event kind served by hook.
func (r *registry) countHook(hook input.HookKind) int {
	n := 0
	for k := 0; k < input.EventKindCount; k++ {
		if input.EventKind(k).Hook() == hook {
			n += r.count(input.EventKind(k))
		}
	}
	return n
}
