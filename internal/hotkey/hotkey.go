// Package hotkey matches global key and mouse button combinations on top of
// the hook manager's event stream.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"activitymon/internal/hook"
	"activitymon/internal/input"
)

var (
	// ErrUnknownKey is returned when a combination names a key that does
	// not exist.
	ErrUnknownKey = errors.New("unknown key")

	// ErrAlreadyStarted is returned by Start on a running manager.
	ErrAlreadyStarted = errors.New("hotkey manager already started")
)

// mouseButtons maps buttons to combination names. Middle is MOUSE2 and right
// is MOUSE3.
var mouseButtons = map[input.MouseButton]string{
	input.ButtonLeft:   "MOUSE1",
	input.ButtonMiddle: "MOUSE2",
	input.ButtonRight:  "MOUSE3",
	input.ButtonX1:     "MOUSE4",
	input.ButtonX2:     "MOUSE5",
}

// Manager handles global hotkey and mouse button registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // concrete keys/buttons pressed, e.g. LCONTROLKEY
	swallowed    map[string]bool // pressed keys whose events are being suppressed

	logger   *zap.Logger
	suppress bool

	// lifeMu guards the subscriptions below.
	lifeMu sync.Mutex
	sub    hook.Subscriber
	subs   []hook.SubscriptionID
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "MOUSE4"]
	original string
	callback func()
}

func (hk *registeredHotkey) usesMouse() bool {
	for _, p := range hk.parts {
		if strings.HasPrefix(p, "MOUSE") {
			return true
		}
	}
	return false
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSuppress makes the key or button press completing a combination
// invisible to the rest of the system.
func WithSuppress(suppress bool) Option {
	return func(m *Manager) {
		m.suppress = suppress
	}
}

// NewManager creates a new hotkey manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		currentState: make(map[string]bool),
		swallowed:    make(map[string]bool),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register registers a hotkey string (e.g. "Ctrl+Alt+1", "Mouse2+Mouse3") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if hotkeyStr == "" {
		return 0, nil
	}
	if callback == nil {
		return 0, hook.ErrNilListener
	}

	parts, err := ParseCombo(hotkeyStr)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// ParseCombo splits a combination into normalized part names. Modifiers of
// either side collapse to CTRL, ALT, SHIFT and WIN.
func ParseCombo(combo string) ([]string, error) {
	fields := strings.Split(combo, "+")
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToUpper(strings.TrimSpace(f))
		if isMouseName(f) {
			parts = append(parts, f)
			continue
		}
		k, ok := input.ParseKey(f)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %q", ErrUnknownKey, f, combo)
		}
		parts = append(parts, keyName(k))
	}
	return parts, nil
}

func isMouseName(s string) bool {
	for _, name := range mouseButtons {
		if s == name {
			return true
		}
	}
	return false
}

func keyName(k input.Key) string {
	switch k.Modifier() {
	case input.ModControl:
		return "CTRL"
	case input.ModAlt:
		return "ALT"
	case input.ModShift:
		return "SHIFT"
	case input.ModWin:
		return "WIN"
	}
	return strings.ToUpper(k.String())
}

// partName maps a pressed key or button to the name combinations use, so
// both LCONTROLKEY and RCONTROLKEY satisfy CTRL.
func partName(name string) string {
	if isMouseName(name) {
		return name
	}
	if k, ok := input.ParseKey(name); ok {
		return keyName(k)
	}
	return name
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState updates the internal state of a key or button and checks for
// matches. key is either a concrete key ("LControlKey") or a combination
// part ("Ctrl"). It reports whether the press completed at least one hotkey.
// Auto-repeated presses of a key already down never match again.
func (m *Manager) UpdateState(key string, isDown bool) bool {
	m.mu.Lock()
	key = strings.ToUpper(key)
	wasDown := m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown && !wasDown {
		return m.checkMatches(partName(key))
	}
	return false
}

func (m *Manager) checkMatches(trigger string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	held := make(map[string]bool, len(m.currentState))
	for key := range m.currentState {
		held[partName(key)] = true
	}

	matched := false
	for _, hk := range m.hotkeys {
		match, completes := true, false
		// All parts of the hotkey must be held
		for _, part := range hk.parts {
			if !held[part] {
				match = false
				break
			}
			if part == trigger {
				completes = true
			}
		}

		if match && completes {
			m.logger.Info("hotkey triggered", zap.String("hotkey", hk.original))
			matched = true
			go hk.callback()
		}
	}
	return matched
}

// Start subscribes to key events, and to mouse button events if any
// registered hotkey uses a mouse button. Hotkeys registered later that add
// mouse buttons need a Stop and Start to be seen.
func (m *Manager) Start(sub hook.Subscriber) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.sub != nil {
		return ErrAlreadyStarted
	}

	m.mu.Lock()
	m.currentState = make(map[string]bool)
	m.swallowed = make(map[string]bool)
	usesMouse := false
	for _, hk := range m.hotkeys {
		usesMouse = usesMouse || hk.usesMouse()
	}
	m.mu.Unlock()

	kinds := []input.EventKind{input.KeyDown, input.KeyUp}
	if usesMouse {
		kinds = append(kinds, input.MouseDown, input.MouseUp)
	}

	var subs []hook.SubscriptionID
	for _, kind := range kinds {
		id, err := sub.Subscribe(kind, hook.ListenerFunc(m.handleEvent))
		if err != nil {
			for _, done := range subs {
				sub.Unsubscribe(done)
			}
			return fmt.Errorf("subscribe %s: %w", kind, err)
		}
		subs = append(subs, id)
	}

	m.sub, m.subs = sub, subs
	m.logger.Info("hotkey engine started", zap.Bool("mouse", usesMouse))
	return nil
}

// Stop releases the subscriptions made by Start.
func (m *Manager) Stop() error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.sub == nil {
		return nil
	}
	var errs []error
	for _, id := range m.subs {
		if err := m.sub.Unsubscribe(id); err != nil {
			errs = append(errs, err)
		}
	}
	m.sub, m.subs = nil, nil
	m.logger.Info("hotkey engine stopped")
	return errors.Join(errs...)
}

func (m *Manager) handleEvent(kind input.EventKind, ev input.Event) error {
	var name string
	switch e := ev.(type) {
	case *input.KeyEvent:
		name = strings.ToUpper(e.Key.String())
	case *input.MouseEvent:
		name = mouseButtons[e.Button]
	}
	if name == "" {
		return nil
	}

	isDown := kind == input.KeyDown || kind == input.MouseDown
	matched := m.UpdateState(name, isDown)
	if !m.suppress {
		return nil
	}

	// A swallowed press stays swallowed through its repeats and release.
	m.mu.Lock()
	swallow := matched || m.swallowed[name]
	if matched {
		m.swallowed[name] = true
	}
	if !isDown {
		delete(m.swallowed, name)
	}
	m.mu.Unlock()

	if swallow {
		ev.SetHandled(true)
	}
	return nil
}
