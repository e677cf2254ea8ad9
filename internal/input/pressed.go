package input

import "sync"

// PressedKeys is the ordered set of keys currently held down. It is safe for
// concurrent use; the hook goroutine writes while application code reads.
type PressedKeys struct {
	mu   sync.RWMutex
	keys []Key
}

// Add inserts k if absent and reports whether it was added.
func (p *PressedKeys) Add(k Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.keys {
		if existing == k {
			return false
		}
	}
	p.keys = append(p.keys, k)
	return true
}

// Remove deletes k and reports whether it was present.
func (p *PressedKeys) Remove(k Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.keys {
		if existing == k {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether k is held down.
func (p *PressedKeys) Contains(k Key) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, existing := range p.keys {
		if existing == k {
			return true
		}
	}
	return false
}

// Keys returns a copy of the held keys in press order.
func (p *PressedKeys) Keys() []Key {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Key, len(p.keys))
	copy(out, p.keys)
	return out
}

// Modifiers returns the modifier bits of the held keys.
func (p *PressedKeys) Modifiers() Modifiers {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ModifiersOf(p.keys)
}

// Len returns the number of held keys.
func (p *PressedKeys) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

// Clear forgets every held key.
func (p *PressedKeys) Clear() {
	p.mu.Lock()
	p.keys = nil
	p.mu.Unlock()
}
