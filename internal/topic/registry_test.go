package topic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockPublisher records channel publishes and can inject failures.
type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

type publishCall struct {
	channel string
	value   string
}

func (m *mockPublisher) PublishChannel(channel, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, publishCall{channel: channel, value: value})
	return nil
}

func (m *mockPublisher) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockPublisher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockPublisher) lastCall() (publishCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.calls) == 0 {
		return publishCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// staticGetter returns a fixed value.
func staticGetter(value string) Getter {
	return GetterFunc(func() (string, error) {
		return value, nil
	})
}

// =============================================================================
// Registration Tests
// =============================================================================

func TestRegister(t *testing.T) {
	r := NewRegistry(&mockPublisher{})

	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("shell", staticGetter(">_"), SetterFunc(func(string) error { return nil })); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if r.ChannelCount() != 2 {
		t.Errorf("ChannelCount() = %d, want 2", r.ChannelCount())
	}

	channels := r.Channels()
	want := []string{"backlight", "shell"}
	for i, name := range want {
		if channels[i] != name {
			t.Errorf("Channels()[%d] = %q, want %q", i, channels[i], name)
		}
	}
}

func TestRegisterEmptyName(t *testing.T) {
	r := NewRegistry(&mockPublisher{})

	err := r.Register("", staticGetter("x"), nil)
	if !errors.Is(err, ErrEmptyChannel) {
		t.Errorf("Register() error = %v, want ErrEmptyChannel", err)
	}
}

func TestRegisterNoHandlers(t *testing.T) {
	r := NewRegistry(&mockPublisher{})

	err := r.Register("backlight", nil, nil)
	if !errors.Is(err, ErrNoHandler) {
		t.Errorf("Register() error = %v, want ErrNoHandler", err)
	}
}

func TestRegisterLastWins(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	if err := r.Register("panel", staticGetter("old"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("url", staticGetter("http://a"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Re-register panel with a new getter.
	if err := r.Register("panel", staticGetter("new"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if r.ChannelCount() != 2 {
		t.Errorf("ChannelCount() = %d, want 2 after re-registration", r.ChannelCount())
	}

	// Original pass order position is kept.
	channels := r.Channels()
	if channels[0] != "panel" || channels[1] != "url" {
		t.Errorf("Channels() = %v, want [panel url]", channels)
	}

	r.PublishAll()

	if pub.calls[0].value != "new" {
		t.Errorf("published value = %q, want %q from replacement getter", pub.calls[0].value, "new")
	}
}

// =============================================================================
// Publish Pass Tests
// =============================================================================

func TestPublishAllDiffSuppression(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.PublishAll()
	r.PublishAll()

	// Two passes over an unchanged value produce exactly one publish.
	if pub.callCount() != 1 {
		t.Errorf("publish count = %d, want 1", pub.callCount())
	}
}

func TestPublishAllValueChange(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	value := "ON"
	getter := GetterFunc(func() (string, error) { return value, nil })

	if err := r.Register("backlight", getter, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.PublishAll()
	value = "OFF"
	r.PublishAll()

	if pub.callCount() != 2 {
		t.Fatalf("publish count = %d, want 2", pub.callCount())
	}
	last, _ := pub.lastCall()
	if last.value != "OFF" {
		t.Errorf("last published value = %q, want %q", last.value, "OFF")
	}
}

func TestPublishAllForceResync(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.PublishAll()
	r.ForceResync()
	r.PublishAll()

	// Resync republishes the unchanged value once.
	if pub.callCount() != 2 {
		t.Errorf("publish count = %d, want 2 after resync", pub.callCount())
	}

	// The resync was consumed; the next pass suppresses again.
	r.PublishAll()
	if pub.callCount() != 2 {
		t.Errorf("publish count = %d, want 2 after resync consumed", pub.callCount())
	}
}

func TestPublishAllFailedPublishRetries(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	pub.setErr(errors.New("broker unreachable"))
	r.PublishAll()

	if pub.callCount() != 0 {
		t.Fatalf("publish count = %d, want 0 while transport failing", pub.callCount())
	}

	// Transport recovers: the unchanged value is retried because the
	// failed publish never advanced lastPublished.
	pub.setErr(nil)
	r.PublishAll()

	if pub.callCount() != 1 {
		t.Fatalf("publish count = %d, want 1 after recovery", pub.callCount())
	}

	// And once delivered, it is suppressed again.
	r.PublishAll()
	if pub.callCount() != 1 {
		t.Errorf("publish count = %d, want 1 after delivery", pub.callCount())
	}
}

func TestPublishAllGetterError(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	getter := GetterFunc(func() (string, error) {
		return "", errors.New("hardware read failed")
	})

	if err := r.Register("brightness_percent", getter, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.PublishAll()

	// The failing channel is skipped; the healthy one still publishes.
	if pub.callCount() != 1 {
		t.Fatalf("publish count = %d, want 1", pub.callCount())
	}
	if pub.calls[0].channel != "backlight" {
		t.Errorf("published channel = %q, want %q", pub.calls[0].channel, "backlight")
	}
}

func TestPublishAllEmptyValue(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	if err := r.Register("url", staticGetter(""), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.PublishAll()
	r.PublishAll()

	// An initial empty value is still a value: published once.
	if pub.callCount() != 1 {
		t.Errorf("publish count = %d, want 1", pub.callCount())
	}
}

func TestPublishAllOrder(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	names := []string{"shell", "backlight", "brightness_percent", "system"}
	for _, name := range names {
		if err := r.Register(name, staticGetter(name), nil); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	r.PublishAll()

	if pub.callCount() != len(names) {
		t.Fatalf("publish count = %d, want %d", pub.callCount(), len(names))
	}
	for i, name := range names {
		if pub.calls[i].channel != name {
			t.Errorf("publish[%d] channel = %q, want %q", i, pub.calls[i].channel, name)
		}
	}
}

func TestPublishSingleChannel(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	if err := r.Register("ld2450", staticGetter(`{"occupied":true}`), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.Publish("ld2450")

	if pub.callCount() != 1 {
		t.Fatalf("publish count = %d, want 1", pub.callCount())
	}
	if pub.calls[0].channel != "ld2450" {
		t.Errorf("published channel = %q, want %q", pub.calls[0].channel, "ld2450")
	}

	// Diff rules apply to nudges too.
	r.Publish("ld2450")
	if pub.callCount() != 1 {
		t.Errorf("publish count = %d, want 1 after unchanged nudge", pub.callCount())
	}
}

func TestPublishUnknownChannel(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	// Must not panic or publish.
	r.Publish("nonexistent")

	if pub.callCount() != 0 {
		t.Errorf("publish count = %d, want 0", pub.callCount())
	}
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestDispatch(t *testing.T) {
	r := NewRegistry(&mockPublisher{})

	var got string
	setter := SetterFunc(func(value string) error {
		got = value
		return nil
	})

	if err := r.Register("shell", staticGetter(">_"), setter); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.Dispatch("shell", "reboot")

	if got != "reboot" {
		t.Errorf("setter received %q, want %q", got, "reboot")
	}
}

func TestDispatchUnknownChannel(t *testing.T) {
	r := NewRegistry(&mockPublisher{})

	// Must not panic.
	r.Dispatch("nonexistent", "value")
}

func TestDispatchReadOnlyChannel(t *testing.T) {
	r := NewRegistry(&mockPublisher{})

	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Must not panic; the command is dropped.
	r.Dispatch("backlight", "OFF")
}

func TestDispatchSetterError(t *testing.T) {
	r := NewRegistry(&mockPublisher{})

	setter := SetterFunc(func(string) error {
		return errors.New("command failed")
	})

	if err := r.Register("panel", nil, setter); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Handler failure is swallowed, never propagated.
	r.Dispatch("panel", "Kitchen")
}

func TestDispatchDoesNotBlockPublish(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	release := make(chan struct{})
	entered := make(chan struct{})
	setter := SetterFunc(func(string) error {
		close(entered)
		<-release
		return nil
	})

	if err := r.Register("shell", staticGetter(">_"), setter); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	go r.Dispatch("shell", "reboot")
	<-entered

	// The publish pass must complete while the setter is still running.
	done := make(chan struct{})
	go func() {
		r.PublishAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishAll blocked by an in-flight setter")
	}

	close(release)
}

// =============================================================================
// Run Tests
// =============================================================================

func TestRunImmediatePass(t *testing.T) {
	pub := &mockPublisher{}
	r := NewRegistry(pub)

	if err := r.Register("backlight", staticGetter("ON"), nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Hour)
		close(done)
	}()

	// The first pass runs on entry, not one interval later.
	deadline := time.After(2 * time.Second)
	for pub.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no publish before first interval")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
