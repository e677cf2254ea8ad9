package region

import (
	"sync"

	"go.uber.org/zap"

	"activitymon/internal/hook"
	"activitymon/internal/input"
)

// CallbackID identifies an Enter or Leave callback.
type CallbackID uint64

type callback struct {
	id CallbackID
	fn func(*input.MouseEvent)
}

// Tracker follows the cursor relative to one window. It holds a single
// MouseMove subscription while at least one Enter or Leave callback is
// registered.
type Tracker struct {
	sub    hook.Subscriber
	src    WindowSource
	win    WindowID
	logger *zap.Logger

	mu         sync.Mutex
	state      Tristate
	enter      []callback
	leave      []callback
	nextID     CallbackID
	moveSub    hook.SubscriptionID
	subscribed bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker creates a tracker for win. A window that is maximized at
// construction covers the screen, so the cursor starts out Inside.
func NewTracker(sub hook.Subscriber, src WindowSource, win WindowID, opts ...Option) *Tracker {
	t := &Tracker{
		sub:    sub,
		src:    src,
		win:    win,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if snap, ok := src.Snapshot(win); ok && snap.State == Maximized {
		t.state = Inside
	}
	return t
}

// Window returns the tracked window.
func (t *Tracker) Window() WindowID {
	return t.win
}

// IsMouseOverWindow returns the last observed cursor state.
func (t *Tracker) IsMouseOverWindow() Tristate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// OnEnter registers fn to run when the cursor moves onto the window.
func (t *Tracker) OnEnter(fn func(*input.MouseEvent)) (CallbackID, error) {
	return t.add(&t.enter, fn)
}

// OnLeave registers fn to run when the cursor moves off the window.
func (t *Tracker) OnLeave(fn func(*input.MouseEvent)) (CallbackID, error) {
	return t.add(&t.leave, fn)
}

func (t *Tracker) add(list *[]callback, fn func(*input.MouseEvent)) (CallbackID, error) {
	if fn == nil {
		return 0, hook.ErrNilListener
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.subscribed {
		id, err := t.sub.Subscribe(input.MouseMove, hook.OnMouse(t.HandleMove))
		if err != nil {
			return 0, err
		}
		t.moveSub = id
		t.subscribed = true
		t.logger.Debug("region tracking started", zap.Stringer("window", t.win))
	}

	t.nextID++
	id := t.nextID
	// Copy so HandleMove can iterate a published slice without the lock.
	next := make([]callback, len(*list), len(*list)+1)
	copy(next, *list)
	*list = append(next, callback{id: id, fn: fn})
	return id, nil
}

// Remove unregisters an Enter or Leave callback. Removing the last one
// releases the MouseMove subscription.
func (t *Tracker) Remove(id CallbackID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !removeCallback(&t.enter, id) && !removeCallback(&t.leave, id) {
		return ErrCallbackNotFound
	}
	if len(t.enter) > 0 || len(t.leave) > 0 || !t.subscribed {
		return nil
	}

	t.subscribed = false
	t.logger.Debug("region tracking stopped", zap.Stringer("window", t.win))
	return t.sub.Unsubscribe(t.moveSub)
}

func removeCallback(list *[]callback, id CallbackID) bool {
	for i, c := range *list {
		if c.id != id {
			continue
		}
		next := make([]callback, 0, len(*list)-1)
		next = append(next, (*list)[:i]...)
		*list = append(next, (*list)[i+1:]...)
		return true
	}
	return false
}

// HandleMove updates the cursor state from a MouseMove event and fires Enter
// or Leave on a transition. An unavailable window leaves the state alone; a
// minimized one counts as Outside.
func (t *Tracker) HandleMove(e *input.MouseEvent) {
	snap, ok := t.src.Snapshot(t.win)
	if !ok {
		return
	}

	next := Outside
	switch {
	case snap.State == Minimized:
	case snap.State == Maximized, snap.Rect.Contains(e.Position()):
		next = Inside
	}

	t.mu.Lock()
	if next == t.state {
		t.mu.Unlock()
		return
	}
	t.state = next
	fire := t.leave
	if next == Inside {
		fire = t.enter
	}
	t.mu.Unlock()

	t.logger.Debug("cursor crossed window boundary",
		zap.Stringer("window", t.win),
		zap.Stringer("state", next),
		zap.Int32("x", e.X),
		zap.Int32("y", e.Y))
	for _, c := range fire {
		c.fn(e)
	}
}
