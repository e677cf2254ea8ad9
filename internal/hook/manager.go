package hook

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"activitymon/internal/input"
)

const hookKinds = 2

// Manager reference-counts listeners per hook kind and dispatches decoded
// events. It is safe for concurrent use, including Subscribe and Unsubscribe
// calls made from inside a listener.
type Manager struct {
	// mu serializes registry writes and hook install/uninstall.
	mu      sync.Mutex
	backend Backend
	hooks   [hookKinds]Hook
	byID    map[SubscriptionID]input.EventKind
	nextID  SubscriptionID

	reg       registry
	installed [hookKinds]atomic.Bool

	pressed input.PressedKeys
	posMu   sync.Mutex
	lastPos input.LastPosition

	keyboard input.KeyboardState
	logger   *zap.Logger
	policy   ErrorPolicy
	onError  func(*ListenerError)
}

// New creates a manager on top of backend. No hook is installed until the
// first Subscribe.
func New(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		byID:    make(map[SubscriptionID]input.EventKind),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewSystem creates a manager backed by the platform's low-level hooks.
func NewSystem(opts ...Option) *Manager {
	base := []Option{WithKeyboardState(SystemKeyboard())}
	return New(SystemBackend(), append(base, opts...)...)
}

// Subscribe registers l for kind. If this is the first listener for the
// kind's hook the backend hook is installed first; an install failure is
// returned as *HookInstallError and nothing is registered.
func (m *Manager) Subscribe(kind input.EventKind, l Listener) (SubscriptionID, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidEventKind, int(kind))
	}
	if l == nil {
		return 0, ErrNilListener
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureInstalled(kind.Hook()); err != nil {
		return 0, err
	}

	m.nextID++
	id := m.nextID
	m.reg.add(kind, entry{id: id, listener: l})
	m.byID[id] = kind

	m.logger.Debug("listener subscribed",
		zap.Uint64("subscription", uint64(id)),
		zap.Stringer("event", kind))
	return id, nil
}

// Unsubscribe removes a listener. Removing the last listener of a hook kind
// uninstalls the backend hook; an uninstall failure is returned as
// *HookUninstallError but the hook is forgotten either way.
func (m *Manager) Unsubscribe(id SubscriptionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kind, ok := m.byID[id]
	if !ok {
		return ErrSubscriptionNotFound
	}
	delete(m.byID, id)
	m.reg.remove(kind, id)

	m.logger.Debug("listener unsubscribed",
		zap.Uint64("subscription", uint64(id)),
		zap.Stringer("event", kind))
	return m.releaseIfIdle(kind.Hook())
}

// Close removes every listener and uninstalls both hooks.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, kind := range m.byID {
		m.reg.remove(kind, id)
		delete(m.byID, id)
	}
	var errs []error
	for hk := input.HookKind(0); hk < hookKinds; hk++ {
		if err := m.releaseIfIdle(hk); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Installed reports whether the backend hook of kind hk is installed.
func (m *Manager) Installed(hk input.HookKind) bool {
	return m.installed[hk].Load()
}

// ListenerCount returns the number of listeners registered for kind.
func (m *Manager) ListenerCount(kind input.EventKind) int {
	if !kind.Valid() {
		return 0
	}
	return m.reg.count(kind)
}

// PressedKeys returns the keys currently held down, in press order.
func (m *Manager) PressedKeys() []input.Key {
	return m.pressed.Keys()
}

// IsKeyDown reports whether k is currently held down.
func (m *Manager) IsKeyDown(k input.Key) bool {
	return m.pressed.Contains(k)
}

// ensureInstalled must be called with mu held.
func (m *Manager) ensureInstalled(hk input.HookKind) error {
	if m.hooks[hk] != nil {
		return nil
	}

	// State from a previous session may be stale: keys released while no
	// hook was installed were never observed.
	switch hk {
	case input.Keyboard:
		m.pressed.Clear()
	case input.Mouse:
		m.posMu.Lock()
		m.lastPos = input.LastPosition{}
		m.posMu.Unlock()
	}

	m.installed[hk].Store(true)
	h, err := m.backend.Install(hk, m.Deliver)
	if err != nil {
		m.installed[hk].Store(false)
		m.logger.Error("hook install failed", zap.Stringer("hook", hk), zap.Error(err))
		return &HookInstallError{Kind: hk, Code: errorCode(err), Err: err}
	}
	m.hooks[hk] = h
	m.logger.Info("hook installed", zap.Stringer("hook", hk))
	return nil
}

// releaseIfIdle must be called with mu held.
func (m *Manager) releaseIfIdle(hk input.HookKind) error {
	if m.hooks[hk] == nil || m.reg.countHook(hk) > 0 {
		return nil
	}

	h := m.hooks[hk]
	m.hooks[hk] = nil
	m.installed[hk].Store(false)

	if err := h.Unhook(); err != nil {
		m.logger.Error("hook uninstall failed", zap.Stringer("hook", hk), zap.Error(err))
		return &HookUninstallError{Kind: hk, Code: errorCode(err), Err: err}
	}
	m.logger.Info("hook uninstalled", zap.Stringer("hook", hk))
	return nil
}

// Deliver decodes a raw message, updates the pressed-key set and mouse
// position cache, and invokes listeners. It is the Proc handed to the
// backend and may also be called directly. Messages for a hook kind that
// is not installed are forwarded untouched.
func (m *Manager) Deliver(raw RawMessage) Decision {
	if raw.Kind < 0 || raw.Kind >= hookKinds || !m.installed[raw.Kind].Load() {
		return Forward
	}
	switch raw.Kind {
	case input.Keyboard:
		return m.deliverKeyboard(raw.Keyboard)
	default:
		return m.deliverMouse(raw.Mouse)
	}
}

func (m *Manager) deliverKeyboard(msg input.KeyboardMessage) Decision {
	d := input.DecodeKeyboard(msg, m.keyboard)
	if d.Empty() {
		return Forward
	}
	dp := dispatch{m: m}

	if d.Down != nil {
		m.pressed.Add(d.Down.Key)
		d.Down.Modifiers = m.pressed.Modifiers()
		dp.run(input.KeyDown, d.Down)
	}
	if d.Press != nil {
		dp.run(input.KeyPress, d.Press)
	}
	if d.Up != nil {
		d.Up.Modifiers = m.pressed.Modifiers()
		m.pressed.Remove(d.Up.Key)
		dp.run(input.KeyUp, d.Up)
	}
	return dp.decision()
}

func (m *Manager) deliverMouse(msg input.MouseMessage) Decision {
	m.posMu.Lock()
	d := input.DecodeMouse(msg, m.lastPos)
	if d.Moved {
		m.lastPos = input.LastPosition{Point: d.Event.Position(), Valid: true}
	}
	m.posMu.Unlock()

	dp := dispatch{m: m}
	for _, kind := range d.Kinds() {
		dp.run(kind, d.Event)
	}
	return dp.decision()
}

// dispatch accumulates the outcome of one raw message.
type dispatch struct {
	m        *Manager
	handled  bool
	failures int
}

func (dp *dispatch) run(kind input.EventKind, ev input.Event) {
	for _, e := range dp.m.reg.snapshot(kind) {
		if err := dp.m.invoke(kind, e, ev); err != nil {
			dp.failures++
			dp.m.reportListenerError(err)
		}
		if ev.Handled() {
			dp.handled = true
		}
	}
}

func (dp *dispatch) decision() Decision {
	if dp.failures > 0 && dp.m.policy == ForwardOnError {
		return Forward
	}
	if dp.handled {
		return Suppress
	}
	return Forward
}

func (m *Manager) invoke(kind input.EventKind, e entry, ev input.Event) (lerr *ListenerError) {
	defer func() {
		if r := recover(); r != nil {
			lerr = &ListenerError{
				Kind:         kind,
				Subscription: e.id,
				Err:          fmt.Errorf("%w: %v", ErrListenerPanic, r),
				Stack:        debug.Stack(),
			}
		}
	}()
	if err := e.listener.HandleEvent(kind, ev); err != nil {
		return &ListenerError{Kind: kind, Subscription: e.id, Err: err}
	}
	return nil
}

func (m *Manager) reportListenerError(err *ListenerError) {
	m.logger.Warn("listener failed",
		zap.Uint64("subscription", uint64(err.Subscription)),
		zap.Stringer("event", err.Kind),
		zap.Error(err.Err))
	if m.onError != nil {
		m.onError(err)
	}
}
