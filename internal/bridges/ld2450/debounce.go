package ld2450

import (
	"encoding/json"
	"sync"
	"time"
)

// Clock abstracts timer creation so tests can drive the off-delay without
// real waiting.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the cancellable handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// systemClock is the production Clock backed by the time package.
type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is the debounce position of one sensor.
type State int

const (
	// StateIdle: not occupied, no pending timer.
	StateIdle State = iota

	// StateOccupied: occupancy reported, debounced value true.
	StateOccupied

	// StatePendingOff: raw occupancy dropped, debounced value still true
	// while the off-delay counts down.
	StatePendingOff
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOccupied:
		return "occupied"
	case StatePendingOff:
		return "pending_off"
	default:
		return "unknown"
	}
}

// Snapshot is the published view of one sensor.
//
// occupied reflects the latest frame directly; occupied_delayed is the
// debounced value that holds true through brief dropouts.
type Snapshot struct {
	Occupied        bool     `json:"occupied"`
	OccupiedDelayed bool     `json:"occupied_delayed"`
	TargetCount     int      `json:"target_count"`
	Targets         []Target `json:"targets"`
}

// Debouncer turns the per-frame target stream of one sensor into a stable
// occupancy signal.
//
// Raw occupancy follows every frame; the debounced value only falls back
// to false after offDelay has elapsed with no target seen. A change in
// target count alone updates the snapshot without touching the debounce
// state.
//
// The reader goroutine (Observe) and the pending-off timer (expiry) both
// mutate the same state and serialise through one mutex. A generation
// counter guards against a stale timer firing after it was superseded:
// Stop cannot win the race against a timer already running, but the
// generation check makes that firing a no-op.
type Debouncer struct {
	mu sync.Mutex

	state       State
	raw         bool
	targets     []Target
	targetCount int

	offDelay   time.Duration
	clock      Clock
	timer      Timer
	generation uint64

	// lastPayload is the serialised snapshot at the last significant
	// change; identical re-serialisations are not forwarded.
	lastPayload string

	// onChange fires after a significant change produced a new payload.
	// onRaw fires on every raw occupancy flip. Both are invoked without
	// the lock held.
	onChange func()
	onRaw    func(occupied bool)
}

// NewDebouncer creates a debouncer with the given off-delay.
func NewDebouncer(offDelay time.Duration) *Debouncer {
	return &Debouncer{
		state:    StateIdle,
		targets:  []Target{},
		offDelay: offDelay,
		clock:    systemClock{},
	}
}

// SetClock replaces the timer source. Tests use this to simulate time.
func (d *Debouncer) SetClock(clock Clock) {
	d.mu.Lock()
	d.clock = clock
	d.mu.Unlock()
}

// SetOnChange sets the callback fired when a significant change produced
// a new snapshot payload.
func (d *Debouncer) SetOnChange(fn func()) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// SetOnRaw sets the callback fired when raw occupancy flips.
func (d *Debouncer) SetOnRaw(fn func(occupied bool)) {
	d.mu.Lock()
	d.onRaw = fn
	d.mu.Unlock()
}

// Observe feeds one decoded frame into the state machine.
//
// Significant changes (occupancy transitions or a target-count change)
// rebuild the published payload and fire the change callback; frames
// that only move existing targets update internal state silently.
func (d *Debouncer) Observe(targets []Target) {
	if targets == nil {
		// Keep the snapshot serialising as an empty list, never null.
		targets = []Target{}
	}
	raw := len(targets) > 0

	d.mu.Lock()

	countChanged := len(targets) != d.targetCount
	rawChanged := raw != d.raw

	d.targets = targets
	d.targetCount = len(targets)
	d.raw = raw

	if raw && d.state != StateOccupied {
		// Idle or PendingOff: occupancy is (back), cancel any countdown.
		d.cancelTimerLocked()
		d.state = StateOccupied
	} else if !raw && d.state == StateOccupied {
		// Occupancy dropped: hold the debounced value through offDelay.
		d.state = StatePendingOff
		d.generation++
		gen := d.generation
		d.timer = d.clock.AfterFunc(d.offDelay, func() {
			d.expire(gen)
		})
	}

	var fireChange func()
	if countChanged {
		fireChange = d.refreshPayloadLocked()
	}
	fireRaw := d.onRaw

	d.mu.Unlock()

	if rawChanged && fireRaw != nil {
		fireRaw(raw)
	}
	if fireChange != nil {
		fireChange()
	}
}

// expire is the pending-off timer callback. A superseded timer (stale
// generation) or a state the timer no longer matches is ignored.
func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()

	if gen != d.generation || d.state != StatePendingOff {
		d.mu.Unlock()
		return
	}

	d.state = StateIdle
	d.timer = nil

	fireChange := d.refreshPayloadLocked()
	d.mu.Unlock()

	if fireChange != nil {
		fireChange()
	}
}

// Stop cancels any pending timer. Called on shutdown.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.cancelTimerLocked()
	d.mu.Unlock()
}

// cancelTimerLocked stops and clears the pending-off timer, bumping the
// generation so an already-fired callback is ignored.
//
// Caller must hold d.mu.
func (d *Debouncer) cancelTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
}

// refreshPayloadLocked reserialises the snapshot and, when it differs
// from the last forwarded payload, stores it and returns the change
// callback for the caller to fire after unlocking. Returns nil when
// nothing new needs forwarding.
//
// Caller must hold d.mu.
func (d *Debouncer) refreshPayloadLocked() func() {
	payload, err := json.Marshal(d.snapshotLocked())
	if err != nil {
		return nil
	}

	if string(payload) == d.lastPayload {
		return nil
	}

	d.lastPayload = string(payload)
	return d.onChange
}

// snapshotLocked builds the current Snapshot.
//
// Caller must hold d.mu.
func (d *Debouncer) snapshotLocked() Snapshot {
	return Snapshot{
		Occupied:        d.raw,
		OccupiedDelayed: d.state != StateIdle,
		TargetCount:     d.targetCount,
		Targets:         d.targets,
	}
}

// Payload returns the serialised snapshot as last forwarded. Before any
// frame arrives this is the all-clear snapshot, so the channel has a
// value to publish at startup.
func (d *Debouncer) Payload() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastPayload == "" {
		payload, err := json.Marshal(d.snapshotLocked())
		if err != nil {
			return "", err
		}
		d.lastPayload = string(payload)
	}
	return d.lastPayload, nil
}

// RawOccupied reports the latest frame's occupancy without debounce.
func (d *Debouncer) RawOccupied() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// CurrentState returns the debounce state, for logging and tests.
func (d *Debouncer) CurrentState() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
