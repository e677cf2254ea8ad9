package hook

import (
	"errors"
	"reflect"
	"sync"
	"syscall"
	"testing"

	"activitymon/internal/input"
)

type fakeBackend struct {
	mu           sync.Mutex
	installs     [hookKinds]int
	uninstalls   [hookKinds]int
	procs        [hookKinds]Proc
	installErr   error
	uninstallErr error
}

func (b *fakeBackend) Install(kind input.HookKind, proc Proc) (Hook, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.installErr != nil {
		return nil, b.installErr
	}
	b.installs[kind]++
	b.procs[kind] = proc
	return &fakeHook{b: b, kind: kind}, nil
}

func (b *fakeBackend) deliver(raw RawMessage) Decision {
	b.mu.Lock()
	p := b.procs[raw.Kind]
	b.mu.Unlock()
	if p == nil {
		return Forward
	}
	return p(raw)
}

func (b *fakeBackend) counts(kind input.HookKind) (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.installs[kind], b.uninstalls[kind]
}

type fakeHook struct {
	b    *fakeBackend
	kind input.HookKind
}

func (h *fakeHook) Unhook() error {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	h.b.uninstalls[h.kind]++
	h.b.procs[h.kind] = nil
	return h.b.uninstallErr
}

type fakeKeyboard struct {
	chars map[uint32]rune
}

func (fakeKeyboard) ShiftDown() bool  { return false }
func (fakeKeyboard) CapsLockOn() bool { return false }
func (f fakeKeyboard) ToChar(vk, scan, flags uint32) (rune, bool) {
	ch, ok := f.chars[vk]
	return ch, ok
}

func keyMsg(message uint32, k input.Key) RawMessage {
	return RawMessage{Kind: input.Keyboard, Keyboard: input.KeyboardMessage{Message: message, VKCode: uint32(k)}}
}

func mouseMsg(message uint32, x, y int32, data uint32) RawMessage {
	return RawMessage{Kind: input.Mouse, Mouse: input.MouseMessage{Message: message, X: x, Y: y, MouseData: data}}
}

func nop() Listener {
	return ListenerFunc(func(input.EventKind, input.Event) error { return nil })
}

func mustSubscribe(t *testing.T, m *Manager, kind input.EventKind, l Listener) SubscriptionID {
	t.Helper()
	id, err := m.Subscribe(kind, l)
	if err != nil {
		t.Fatalf("subscribe %s: %v", kind, err)
	}
	return id
}

func TestSubscribeInstallsHookOnce(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	var ids []SubscriptionID
	for i := 0; i < 5; i++ {
		ids = append(ids, mustSubscribe(t, m, input.KeyDown, nop()))
	}
	if !m.Installed(input.Keyboard) {
		t.Fatal("Expected keyboard hook to be installed")
	}
	if m.Installed(input.Mouse) {
		t.Error("Expected mouse hook to stay uninstalled")
	}

	for _, id := range ids[:4] {
		if err := m.Unsubscribe(id); err != nil {
			t.Fatalf("unsubscribe: %v", err)
		}
	}
	if !m.Installed(input.Keyboard) {
		t.Fatal("Expected hook to stay installed while a listener remains")
	}

	if err := m.Unsubscribe(ids[4]); err != nil {
		t.Fatalf("unsubscribe last: %v", err)
	}
	if m.Installed(input.Keyboard) {
		t.Error("Expected hook to be uninstalled after the last listener left")
	}
	if installs, uninstalls := b.counts(input.Keyboard); installs != 1 || uninstalls != 1 {
		t.Errorf("Expected 1 install and 1 uninstall, got %d and %d", installs, uninstalls)
	}
}

func TestHookKindsAreIndependent(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	key := mustSubscribe(t, m, input.KeyUp, nop())
	press := mustSubscribe(t, m, input.KeyPress, nop())
	move := mustSubscribe(t, m, input.MouseMove, nop())
	wheel := mustSubscribe(t, m, input.MouseWheel, nop())

	if err := m.Unsubscribe(move); err != nil {
		t.Fatal(err)
	}
	if !m.Installed(input.Mouse) {
		t.Error("Expected mouse hook to remain for the wheel listener")
	}
	if err := m.Unsubscribe(wheel); err != nil {
		t.Fatal(err)
	}
	if m.Installed(input.Mouse) || !m.Installed(input.Keyboard) {
		t.Error("Expected only the keyboard hook to remain")
	}
	if err := m.Unsubscribe(key); err != nil {
		t.Fatal(err)
	}
	if !m.Installed(input.Keyboard) {
		t.Error("Expected keyboard hook to remain for the KeyPress listener")
	}
	if err := m.Unsubscribe(press); err != nil {
		t.Fatal(err)
	}
	if m.Installed(input.Keyboard) {
		t.Error("Expected keyboard hook to be removed")
	}
}

func TestInstallFailure(t *testing.T) {
	b := &fakeBackend{installErr: syscall.Errno(5)}
	m := New(b)

	_, err := m.Subscribe(input.MouseClick, nop())
	var installErr *HookInstallError
	if !errors.As(err, &installErr) {
		t.Fatalf("Expected HookInstallError, got %v", err)
	}
	if installErr.Code != 5 || installErr.Kind != input.Mouse {
		t.Errorf("Unexpected error fields: %+v", installErr)
	}
	if m.Installed(input.Mouse) || m.ListenerCount(input.MouseClick) != 0 {
		t.Error("Expected no hook and no listener after a failed install")
	}

	b.mu.Lock()
	b.installErr = nil
	b.mu.Unlock()
	mustSubscribe(t, m, input.MouseClick, nop())
	if !m.Installed(input.Mouse) {
		t.Error("Expected a later subscribe to install the hook")
	}
}

func TestUninstallFailureForgetsHook(t *testing.T) {
	b := &fakeBackend{uninstallErr: errors.New("boom")}
	m := New(b)

	id := mustSubscribe(t, m, input.KeyDown, nop())
	err := m.Unsubscribe(id)
	var uninstallErr *HookUninstallError
	if !errors.As(err, &uninstallErr) {
		t.Fatalf("Expected HookUninstallError, got %v", err)
	}
	if uninstallErr.Code != -1 {
		t.Errorf("Expected code -1 for a non-errno error, got %d", uninstallErr.Code)
	}
	if m.Installed(input.Keyboard) {
		t.Error("Expected the hook to be forgotten")
	}

	mustSubscribe(t, m, input.KeyDown, nop())
	if installs, _ := b.counts(input.Keyboard); installs != 2 {
		t.Errorf("Expected a fresh install, got %d installs", installs)
	}
}

func TestUnsubscribeUnknown(t *testing.T) {
	m := New(&fakeBackend{})
	if err := m.Unsubscribe(42); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("Expected ErrSubscriptionNotFound, got %v", err)
	}

	id := mustSubscribe(t, m, input.KeyDown, nop())
	if err := m.Unsubscribe(id); err != nil {
		t.Fatal(err)
	}
	if err := m.Unsubscribe(id); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("Expected ErrSubscriptionNotFound on double unsubscribe, got %v", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	m := New(&fakeBackend{})
	if _, err := m.Subscribe(input.EventKind(99), nop()); !errors.Is(err, ErrInvalidEventKind) {
		t.Errorf("Expected ErrInvalidEventKind, got %v", err)
	}
	if _, err := m.Subscribe(input.KeyDown, nil); !errors.Is(err, ErrNilListener) {
		t.Errorf("Expected ErrNilListener, got %v", err)
	}
}

func TestPressedKeysTracking(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)
	mustSubscribe(t, m, input.KeyUp, nop())

	b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA))
	b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA))
	b.deliver(keyMsg(input.WM_SYSKEYDOWN, input.KeyZ))
	if got := m.PressedKeys(); !reflect.DeepEqual(got, []input.Key{input.KeyA, input.KeyZ}) {
		t.Fatalf("Unexpected pressed keys %v", got)
	}

	b.deliver(keyMsg(input.WM_KEYUP, input.KeyA))
	b.deliver(keyMsg(input.WM_KEYUP, input.KeyEscape))
	if got := m.PressedKeys(); !reflect.DeepEqual(got, []input.Key{input.KeyZ}) {
		t.Fatalf("Unexpected pressed keys %v", got)
	}
	if !m.IsKeyDown(input.KeyZ) || m.IsKeyDown(input.KeyA) {
		t.Error("IsKeyDown disagrees with PressedKeys")
	}
}

func TestStateClearedOnReinstall(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	key := mustSubscribe(t, m, input.KeyDown, nop())
	moves := 0
	move := mustSubscribe(t, m, input.MouseMove, OnMouse(func(*input.MouseEvent) { moves++ }))

	b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA))
	b.deliver(mouseMsg(input.WM_MOUSEMOVE, 5, 5, 0))
	if moves != 1 {
		t.Fatalf("Expected 1 move, got %d", moves)
	}

	if err := m.Unsubscribe(key); err != nil {
		t.Fatal(err)
	}
	if err := m.Unsubscribe(move); err != nil {
		t.Fatal(err)
	}

	mustSubscribe(t, m, input.KeyDown, nop())
	mustSubscribe(t, m, input.MouseMove, OnMouse(func(*input.MouseEvent) { moves++ }))

	if got := m.PressedKeys(); len(got) != 0 {
		t.Errorf("Expected pressed keys to be cleared, got %v", got)
	}
	b.deliver(mouseMsg(input.WM_MOUSEMOVE, 5, 5, 0))
	if moves != 2 {
		t.Errorf("Expected the first move after reinstall to fire, got %d moves", moves)
	}
}

func TestHandledSuppressesButRunsAllListeners(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	var calls []string
	mustSubscribe(t, m, input.KeyDown, OnKey(func(e *input.KeyEvent) {
		calls = append(calls, "first")
		e.SetHandled(true)
	}))
	mustSubscribe(t, m, input.KeyDown, OnKey(func(e *input.KeyEvent) {
		calls = append(calls, "second")
	}))

	if d := b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA)); d != Suppress {
		t.Errorf("Expected Suppress, got %v", d)
	}
	if !reflect.DeepEqual(calls, []string{"first", "second"}) {
		t.Errorf("Expected both listeners in order, got %v", calls)
	}
	if d := b.deliver(keyMsg(input.WM_KEYUP, input.KeyA)); d != Forward {
		t.Errorf("Expected Forward for an unhandled KeyUp, got %v", d)
	}
}

func TestHandledIsStickyAcrossKinds(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	mustSubscribe(t, m, input.MouseClick, OnMouse(func(e *input.MouseEvent) { e.SetHandled(true) }))
	mustSubscribe(t, m, input.MouseDoubleClick, OnMouse(func(e *input.MouseEvent) { e.SetHandled(false) }))

	if d := b.deliver(mouseMsg(input.WM_LBUTTONDBLCLK, 0, 0, 0)); d != Suppress {
		t.Errorf("Expected Suppress once any listener handled the message, got %v", d)
	}
}

func TestDoubleClickRaisesClickThenDoubleClick(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	type call struct {
		kind   input.EventKind
		clicks int
	}
	var calls []call
	record := ListenerFunc(func(kind input.EventKind, ev input.Event) error {
		calls = append(calls, call{kind, ev.(*input.MouseEvent).Clicks})
		return nil
	})
	mustSubscribe(t, m, input.MouseDoubleClick, record)
	mustSubscribe(t, m, input.MouseClick, record)

	b.deliver(mouseMsg(input.WM_LBUTTONDBLCLK, 0, 0, 0))

	want := []call{{input.MouseClick, 2}, {input.MouseDoubleClick, 2}}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("Expected %v, got %v", want, calls)
	}
}

func TestMouseDispatchOrder(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	var kinds []input.EventKind
	record := ListenerFunc(func(kind input.EventKind, ev input.Event) error {
		kinds = append(kinds, kind)
		return nil
	})
	for k := input.MouseMove; k <= input.MouseWheel; k++ {
		mustSubscribe(t, m, k, record)
	}

	b.deliver(mouseMsg(input.WM_RBUTTONUP, 3, 4, 0))
	want := []input.EventKind{input.MouseUp, input.MouseClick, input.MouseClickExt, input.MouseMove, input.MouseMoveExt}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("Expected %v, got %v", want, kinds)
	}

	kinds = nil
	b.deliver(mouseMsg(input.WM_MOUSEWHEEL, 3, 4, 0xFF880000))
	if !reflect.DeepEqual(kinds, []input.EventKind{input.MouseWheel}) {
		t.Errorf("Expected only MouseWheel, got %v", kinds)
	}
}

func TestRedundantMoveIsDropped(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	var positions []input.Point
	mustSubscribe(t, m, input.MouseMove, OnMouse(func(e *input.MouseEvent) {
		positions = append(positions, e.Position())
	}))

	b.deliver(mouseMsg(input.WM_MOUSEMOVE, 10, 10, 0))
	b.deliver(mouseMsg(input.WM_MOUSEMOVE, 10, 10, 0))
	b.deliver(mouseMsg(input.WM_MOUSEMOVE, 11, 10, 0))

	want := []input.Point{{X: 10, Y: 10}, {X: 11, Y: 10}}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("Expected %v, got %v", want, positions)
	}
}

func TestModifiersAndKeyPress(t *testing.T) {
	b := &fakeBackend{}
	m := New(b, WithKeyboardState(fakeKeyboard{chars: map[uint32]rune{uint32(input.KeyA): 'a'}}))

	var downs []*input.KeyEvent
	var presses []rune
	mustSubscribe(t, m, input.KeyDown, OnKey(func(e *input.KeyEvent) { downs = append(downs, e) }))
	mustSubscribe(t, m, input.KeyPress, OnKeyPress(func(e *input.KeyPressEvent) { presses = append(presses, e.Char) }))

	b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyLControl))
	b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA))

	if len(downs) != 2 {
		t.Fatalf("Expected 2 KeyDown events, got %d", len(downs))
	}
	if downs[1].Modifiers != input.ModControl {
		t.Errorf("Expected Control modifier, got %v", downs[1].Modifiers)
	}
	if !reflect.DeepEqual(presses, []rune{'a'}) {
		t.Errorf("Expected one KeyPress 'a', got %q", presses)
	}
}

func TestListenerPanicIsIsolated(t *testing.T) {
	b := &fakeBackend{}
	var reported []*ListenerError
	m := New(b, OnListenerError(func(err *ListenerError) { reported = append(reported, err) }))

	ran := false
	mustSubscribe(t, m, input.KeyDown, OnKey(func(*input.KeyEvent) { panic("bad listener") }))
	mustSubscribe(t, m, input.KeyDown, OnKey(func(e *input.KeyEvent) {
		ran = true
		e.SetHandled(true)
	}))

	if d := b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA)); d != Suppress {
		t.Errorf("Expected Suppress from the healthy listener, got %v", d)
	}
	if !ran {
		t.Error("Expected the second listener to run")
	}
	if !m.IsKeyDown(input.KeyA) {
		t.Error("Expected pressed keys to be updated despite the panic")
	}
	if len(reported) != 1 || !errors.Is(reported[0], ErrListenerPanic) {
		t.Fatalf("Expected one panic report, got %v", reported)
	}
	if reported[0].Kind != input.KeyDown || len(reported[0].Stack) == 0 {
		t.Errorf("Unexpected report %+v", reported[0])
	}
}

func TestForwardOnErrorPolicy(t *testing.T) {
	b := &fakeBackend{}
	m := New(b, WithErrorPolicy(ForwardOnError))

	failure := errors.New("listener failed")
	mustSubscribe(t, m, input.KeyDown, ListenerFunc(func(_ input.EventKind, ev input.Event) error {
		ev.SetHandled(true)
		return failure
	}))

	if d := b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA)); d != Forward {
		t.Errorf("Expected Forward under ForwardOnError, got %v", d)
	}
}

func TestTypedAdapterMismatch(t *testing.T) {
	b := &fakeBackend{}
	var reported []*ListenerError
	m := New(b, OnListenerError(func(err *ListenerError) { reported = append(reported, err) }))

	mustSubscribe(t, m, input.MouseMove, OnKey(func(*input.KeyEvent) {}))
	b.deliver(mouseMsg(input.WM_MOUSEMOVE, 1, 1, 0))

	if len(reported) != 1 || !errors.Is(reported[0], ErrEventType) {
		t.Errorf("Expected an ErrEventType report, got %v", reported)
	}
}

func TestSubscribeFromInsideListener(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	lateCalls := 0
	late := OnKey(func(*input.KeyEvent) { lateCalls++ })

	var self SubscriptionID
	self = mustSubscribe(t, m, input.KeyDown, OnKey(func(*input.KeyEvent) {
		if _, err := m.Subscribe(input.KeyDown, late); err != nil {
			t.Errorf("nested subscribe: %v", err)
		}
		if err := m.Unsubscribe(self); err != nil {
			t.Errorf("nested unsubscribe: %v", err)
		}
	}))

	b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA))
	if lateCalls != 0 {
		t.Errorf("Expected the late listener to miss the in-flight dispatch, got %d calls", lateCalls)
	}

	b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA+1))
	if lateCalls != 1 {
		t.Errorf("Expected the late listener on the next message, got %d calls", lateCalls)
	}
	if m.ListenerCount(input.KeyDown) != 1 {
		t.Errorf("Expected 1 listener, got %d", m.ListenerCount(input.KeyDown))
	}
}

func TestLastUnsubscribeFromInsideListener(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	var self SubscriptionID
	self = mustSubscribe(t, m, input.MouseDown, OnMouse(func(*input.MouseEvent) {
		if err := m.Unsubscribe(self); err != nil {
			t.Errorf("nested unsubscribe: %v", err)
		}
	}))

	b.deliver(mouseMsg(input.WM_LBUTTONDOWN, 0, 0, 0))
	if m.Installed(input.Mouse) {
		t.Error("Expected the hook to be removed")
	}
	if _, uninstalls := b.counts(input.Mouse); uninstalls != 1 {
		t.Errorf("Expected 1 uninstall, got %d", uninstalls)
	}
}

func TestConcurrentSubscribeInstallsOnce(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)

	const n = 50
	ids := make([]SubscriptionID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.Subscribe(input.KeyDown, nop())
			if err != nil {
				t.Errorf("subscribe: %v", err)
				return
			}
			ids[i] = id
		}(i)
	}

	stop := make(chan struct{})
	var deliveries sync.WaitGroup
	deliveries.Add(1)
	go func() {
		defer deliveries.Done()
		for {
			select {
			case <-stop:
				return
			default:
				b.deliver(keyMsg(input.WM_KEYDOWN, input.KeyA))
				b.deliver(keyMsg(input.WM_KEYUP, input.KeyA))
			}
		}
	}()

	wg.Wait()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id SubscriptionID) {
			defer wg.Done()
			if err := m.Unsubscribe(id); err != nil {
				t.Errorf("unsubscribe: %v", err)
			}
		}(ids[i])
	}
	wg.Wait()
	close(stop)
	deliveries.Wait()

	if installs, uninstalls := b.counts(input.Keyboard); installs != 1 || uninstalls != 1 {
		t.Errorf("Expected 1 install and 1 uninstall, got %d and %d", installs, uninstalls)
	}
}

func TestDeliverWithoutHookForwards(t *testing.T) {
	m := New(&fakeBackend{})
	if d := m.Deliver(keyMsg(input.WM_KEYDOWN, input.KeyA)); d != Forward {
		t.Errorf("Expected Forward, got %v", d)
	}
	if len(m.PressedKeys()) != 0 {
		t.Error("Expected no bookkeeping without an installed hook")
	}
}

func TestClose(t *testing.T) {
	b := &fakeBackend{}
	m := New(b)
	mustSubscribe(t, m, input.KeyDown, nop())
	mustSubscribe(t, m, input.MouseMove, nop())

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if m.Installed(input.Keyboard) || m.Installed(input.Mouse) {
		t.Error("Expected both hooks to be removed")
	}
	if m.ListenerCount(input.KeyDown) != 0 || m.ListenerCount(input.MouseMove) != 0 {
		t.Error("Expected no listeners after close")
	}
}

func TestParseErrorPolicy(t *testing.T) {
	if p, ok := ParseErrorPolicy("forward"); !ok || p != ForwardOnError {
		t.Errorf("Unexpected result %v, %v", p, ok)
	}
	if p, ok := ParseErrorPolicy(""); !ok || p != ContinueOnError {
		t.Errorf("Unexpected result %v, %v", p, ok)
	}
	if _, ok := ParseErrorPolicy("explode"); ok {
		t.Error("Expected unknown policy to fail")
	}
}
