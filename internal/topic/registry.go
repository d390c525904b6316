package topic

import (
	"context"
	"sync"
	"time"
)

// Getter computes the current value of a channel.
//
// Getters must be cheap enough to call on every publish pass; expensive
// sources (hardware reads, subprocess output) should be cached by the
// component and returned from memory here.
type Getter interface {
	Get() (string, error)
}

// GetterFunc adapts a plain function to the Getter interface.
type GetterFunc func() (string, error)

// Get calls f.
func (f GetterFunc) Get() (string, error) { return f() }

// Setter applies an inbound command payload to a channel.
type Setter interface {
	Set(value string) error
}

// SetterFunc adapts a plain function to the Setter interface.
type SetterFunc func(value string) error

// Set calls f.
func (f SetterFunc) Set(value string) error { return f(value) }

// Publisher sends a channel's value to the bus. The MQTT client satisfies
// this through a thin adapter that maps channel names to topics.
type Publisher interface {
	PublishChannel(channel, value string) error
}

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// entry is the registry's record for one channel.
type entry struct {
	name   string
	getter Getter
	setter Setter

	// lastPublished is the most recent value the transport confirmed.
	// published distinguishes "never published" from "published empty".
	lastPublished string
	published     bool
}

// Registry maps channel names to their handlers and owns the diff-publish
// bookkeeping.
//
// Channels are registered once at startup; after that the registry only
// reads the handler set, so registration is not expected concurrently
// with publishing (though it is safe).
//
// All public methods are thread-safe.
type Registry struct {
	pub Publisher

	mu      sync.Mutex
	entries map[string]*entry
	order   []string // registration order, drives publish pass order
	resync  bool     // next pass publishes everything

	logger Logger
}

// NewRegistry creates a channel registry publishing through pub.
func NewRegistry(pub Publisher) *Registry {
	return &Registry{
		pub:     pub,
		entries: make(map[string]*entry),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds a channel to the registry. Either handler may be nil for a
// publish-only or command-only channel, but not both.
//
// Registering an existing name replaces its handlers and resets its
// publish state; the channel keeps its original position in the pass
// order.
func (r *Registry) Register(name string, getter Getter, setter Setter) error {
	if name == "" {
		return ErrEmptyChannel
	}
	if getter == nil && setter == nil {
		return ErrNoHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = &entry{
		name:   name,
		getter: getter,
		setter: setter,
	}

	r.logger.Debug("channel registered",
		"channel", name,
		"get", getter != nil,
		"set", setter != nil,
	)
	return nil
}

// Dispatch routes an inbound command payload to the channel's setter.
//
// Bad input never propagates: unknown channels, read-only channels, and
// handler failures are logged and swallowed so a malformed bus message
// cannot take the process down.
func (r *Registry) Dispatch(channel, payload string) {
	r.mu.Lock()
	e, ok := r.entries[channel]
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("command for unknown channel", "channel", channel)
		return
	}
	if e.setter == nil {
		r.logger.Warn("command for read-only channel", "channel", channel)
		return
	}

	// Setter runs outside the registry lock so a slow handler cannot
	// stall the publish pass.
	if err := e.setter.Set(payload); err != nil {
		r.logger.Warn("command handler failed",
			"channel", channel,
			"payload", payload,
			"error", err,
		)
		return
	}

	r.logger.Debug("command dispatched", "channel", channel, "payload", payload)
}

// Publish computes and publishes a single channel now, applying the usual
// diff rules. Components call this when their state changes between
// passes (radar snapshot transitions, command completion).
func (r *Registry) Publish(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		r.logger.Warn("publish for unknown channel", "channel", name)
		return
	}
	r.publishEntry(e, false)
}

// PublishAll runs one publish pass over every registered channel in
// registration order. A pending resync makes this pass unconditional and
// is consumed by it.
func (r *Registry) PublishAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	force := r.resync
	r.resync = false

	for _, name := range r.order {
		r.publishEntry(r.entries[name], force)
	}
}

// ForceResync marks every channel for unconditional publish on the next
// pass. Called from the MQTT on-connect hook so a broker that restarted
// (and lost non-retained state) is brought back up to date.
func (r *Registry) ForceResync() {
	r.mu.Lock()
	r.resync = true
	r.mu.Unlock()

	r.logger.Info("full channel resync scheduled")
}

// publishEntry publishes one channel if its value changed (or force is
// set). lastPublished advances only after the transport confirms the
// publish, so failures retry on the next pass.
//
// Caller must hold r.mu.
func (r *Registry) publishEntry(e *entry, force bool) {
	if e.getter == nil {
		return
	}

	value, err := e.getter.Get()
	if err != nil {
		r.logger.Warn("channel read failed", "channel", e.name, "error", err)
		return
	}

	if e.published && value == e.lastPublished && !force {
		return
	}

	if err := r.pub.PublishChannel(e.name, value); err != nil {
		r.logger.Warn("channel publish failed, will retry",
			"channel", e.name,
			"error", err,
		)
		return
	}

	e.lastPublished = value
	e.published = true
	r.logger.Debug("channel published", "channel", e.name, "value", value)
}

// ChannelCount returns the number of registered channels.
func (r *Registry) ChannelCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Channels returns the registered channel names in registration order.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Run drives periodic publish passes until ctx is cancelled. An immediate
// pass runs on entry so subscribers see state at startup rather than one
// interval later.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	r.logger.Info("channel publisher started",
		"interval", interval,
		"channels", r.ChannelCount(),
	)

	r.PublishAll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("channel publisher stopped")
			return
		case <-ticker.C:
			r.PublishAll()
		}
	}
}
