package hook

import (
	"go.uber.org/zap"

	"activitymon/internal/input"
)

// ErrorPolicy decides how listener failures affect the forwarding decision.
type ErrorPolicy int

const (
	// ContinueOnError reports the failure and keeps the decision the other
	// listeners produced.
	ContinueOnError ErrorPolicy = iota
	// ForwardOnError forwards a raw message whenever any of its listeners
	// failed, so a broken listener can never swallow input.
	ForwardOnError
)

func (p ErrorPolicy) String() string {
	if p == ForwardOnError {
		return "forward"
	}
	return "continue"
}

// ParseErrorPolicy resolves "continue" or "forward". The empty string means
// ContinueOnError.
func ParseErrorPolicy(s string) (ErrorPolicy, bool) {
	switch s {
	case "", "continue":
		return ContinueOnError, true
	case "forward":
		return ForwardOnError, true
	}
	return ContinueOnError, false
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

// WithKeyboardState sets the collaborator used to translate key downs into
// KeyPress characters. Without one, KeyPress is never raised.
func WithKeyboardState(ks input.KeyboardState) Option {
	return func(m *Manager) {
		m.keyboard = ks
	}
}

// WithErrorPolicy sets the listener failure policy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// OnListenerError registers a callback for listener failures. It runs on the
// dispatch goroutine and must not block.
func OnListenerError(fn func(*ListenerError)) Option {
	return func(m *Manager) {
		m.onError = fn
	}
}
