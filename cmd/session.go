package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"activitymon/internal/hook"
	"activitymon/internal/input"
)

// printer writes event lines from a goroutine so listeners never block the
// hook thread on I/O. Lines that do not fit the buffer are dropped.
type printer struct {
	out     io.Writer
	lines   chan string
	dropped atomic.Uint64
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newPrinter(out io.Writer, buffer int) *printer {
	p := &printer{
		out:   out,
		lines: make(chan string, buffer),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *printer) run() {
	defer close(p.done)
	for line := range p.lines {
		fmt.Fprintln(p.out, line)
	}
}

// Print queues a line. Lines printed after Close are discarded.
func (p *printer) Print(line string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.lines <- line:
	default:
		p.dropped.Add(1)
	}
}

// Close flushes pending lines and returns how many were dropped.
func (p *printer) Close() uint64 {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.lines)
	}
	p.mu.Unlock()
	<-p.done
	return p.dropped.Load()
}

// session owns the printing subscriptions. Keyboard and mouse printing can be
// toggled independently.
type session struct {
	hooks  hook.Subscriber
	out    *printer
	logger *zap.Logger
	kinds  []input.EventKind

	mu   sync.Mutex
	subs map[input.HookKind][]hook.SubscriptionID
}

func newSession(hooks hook.Subscriber, out *printer, logger *zap.Logger, kinds []input.EventKind) *session {
	return &session{
		hooks:  hooks,
		out:    out,
		logger: logger,
		kinds:  kinds,
		subs:   make(map[input.HookKind][]hook.SubscriptionID),
	}
}

// Enabled reports whether events of hk are being printed.
func (s *session) Enabled(hk input.HookKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[hk]) > 0
}

// Configured reports whether any configured event belongs to hk.
func (s *session) Configured(hk input.HookKind) bool {
	for _, k := range s.kinds {
		if k.Hook() == hk {
			return true
		}
	}
	return false
}

// Enable subscribes printers for the configured events of hk.
func (s *session) Enable(hk input.HookKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subs[hk]) > 0 {
		return nil
	}
	var ids []hook.SubscriptionID
	for _, kind := range s.kinds {
		if kind.Hook() != hk {
			continue
		}
		id, err := s.hooks.Subscribe(kind, hook.ListenerFunc(s.print))
		if err != nil {
			for _, done := range ids {
				s.hooks.Unsubscribe(done)
			}
			return err
		}
		ids = append(ids, id)
	}
	s.subs[hk] = ids
	s.logger.Info("printing enabled", zap.Stringer("hook", hk), zap.Int("events", len(ids)))
	return nil
}

// Disable removes the printers of hk.
func (s *session) Disable(hk input.HookKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, id := range s.subs[hk] {
		if err := s.hooks.Unsubscribe(id); err != nil {
			errs = append(errs, err)
		}
	}
	delete(s.subs, hk)
	s.logger.Info("printing disabled", zap.Stringer("hook", hk))
	return errors.Join(errs...)
}

// Toggle flips printing for hk and returns the new state.
func (s *session) Toggle(hk input.HookKind) (bool, error) {
	if s.Enabled(hk) {
		return false, s.Disable(hk)
	}
	if err := s.Enable(hk); err != nil {
		return false, err
	}
	return true, nil
}

// Close removes every printer.
func (s *session) Close() error {
	return errors.Join(s.Disable(input.Keyboard), s.Disable(input.Mouse))
}

func (s *session) print(kind input.EventKind, ev input.Event) error {
	s.out.Print(formatEvent(kind, ev))
	return nil
}

// Status summarizes which hooks are being printed.
func (s *session) Status() string {
	state := func(hk input.HookKind) string {
		if s.Enabled(hk) {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf("Keyboard: %s | Mouse: %s", state(input.Keyboard), state(input.Mouse))
}

func formatEvent(kind input.EventKind, ev input.Event) string {
	switch e := ev.(type) {
	case *input.KeyEvent:
		line := fmt.Sprintf("%-16s KeyCode: %s | Modifiers: %s", kind, e.Key, e.Modifiers)
		if e.Injected {
			line += " | injected"
		}
		return line
	case *input.KeyPressEvent:
		return fmt.Sprintf("%-16s Char: %q", kind, e.Char)
	case *input.MouseEvent:
		var b strings.Builder
		fmt.Fprintf(&b, "%-16s X: %d | Y: %d", kind, e.X, e.Y)
		if e.Button != input.ButtonNone {
			fmt.Fprintf(&b, " | Button: %s | Clicks: %d", e.Button, e.Clicks)
		}
		if e.Delta != 0 {
			axis := "vertical"
			if e.Horizontal {
				axis = "horizontal"
			}
			fmt.Fprintf(&b, " | Delta: %d (%s)", e.Delta, axis)
		}
		return b.String()
	}
	return fmt.Sprintf("%-16s %T", kind, ev)
}

// formatPressed lists the keys currently held down.
func formatPressed(keys []input.Key) string {
	if len(keys) == 0 {
		return "Pressed: none"
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return "Pressed: " + strings.Join(names, ", ")
}
