package ld2450

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
)

// fakePort is an in-memory SerialPort. Reads drain queued chunks and
// otherwise behave like a timed-out serial read (0, nil); writes are
// recorded and, when respond is set, answered with a control-frame ACK
// so directive exchanges complete without waiting for the timeout.
type fakePort struct {
	mu      sync.Mutex
	pending [][]byte
	writes  [][]byte
	closed  bool
	respond bool
}

var fakeAck = []byte{0xFD, 0xFC, 0xFB, 0xFA, 0x01, 0x00, 0x04, 0x03, 0x02, 0x01}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(p.pending) > 0 {
		chunk := p.pending[0]
		p.pending = p.pending[1:]
		n := copy(b, chunk)
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	// Pace the reader loop like a real read timeout would.
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writes = append(p.writes, bytes.Clone(b))
	if p.respond {
		p.pending = append(p.pending, bytes.Clone(fakeAck))
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, bytes.Clone(data))
}

func (p *fakePort) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func (p *fakePort) writtenFrames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		out[i] = bytes.Clone(w)
	}
	return out
}

// radarConfig builds a config with one sensor per name. The long
// off-delay keeps debounce timers from expiring mid-test, so power
// intents are driven purely by raw occupancy flips.
func radarConfig(names ...string) config.RadarConfig {
	cfg := config.RadarConfig{Enabled: true, OffDelay: 300}
	for _, n := range names {
		cfg.Sensors = append(cfg.Sensors, config.RadarSensorConfig{
			Name: n,
			Port: "/dev/fake-" + n,
			Baud: 256000,
		})
	}
	return cfg
}

// newTestManager wires a manager to fake ports, keyed by sensor name.
func newTestManager(t *testing.T, names ...string) (*Manager, map[string]*fakePort) {
	t.Helper()

	ports := make(map[string]*fakePort, len(names))
	for _, n := range names {
		ports[n] = &fakePort{respond: true}
	}

	m := NewManager(radarConfig(names...))
	m.openPort = func(port string, baud int) (SerialPort, error) {
		for _, n := range names {
			if port == "/dev/fake-"+n {
				return ports[n], nil
			}
		}
		return nil, fmt.Errorf("no fake port for %s", port)
	}
	t.Cleanup(m.Stop)
	return m, ports
}

func recvString(t *testing.T, ch <-chan string, what string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func recvBool(t *testing.T, ch <-chan bool, what string) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return false
	}
}

func expectSilent(t *testing.T, ch <-chan bool, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s: %v", what, v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManagerEndToEndSnapshot(t *testing.T) {
	m, ports := newTestManager(t, "ld2450")

	snapshots := make(chan string, 8)
	m.SetOnSnapshot(func(name string) { snapshots <- name })
	m.Start()

	// Deliver the frame split across two reads to exercise the
	// accumulator.
	frame := telemetryFrame(slot(100, 200))
	ports["ld2450"].feed(frame[:11])
	ports["ld2450"].feed(frame[11:])

	if name := recvString(t, snapshots, "snapshot"); name != "ld2450" {
		t.Fatalf("snapshot sensor = %q, want %q", name, "ld2450")
	}

	got, err := m.Payload("ld2450")
	if err != nil {
		t.Fatalf("Payload() error: %v", err)
	}
	want := `{"occupied":true,"occupied_delayed":true,"target_count":1,"targets":[{"id":1,"x_mm":100,"y_mm":200,"dist_mm":223.6}]}`
	if got != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestManagerInitialPayloadAllClear(t *testing.T) {
	m, _ := newTestManager(t, "ld2450")

	got, err := m.Payload("ld2450")
	if err != nil {
		t.Fatalf("Payload() error: %v", err)
	}
	want := `{"occupied":false,"occupied_delayed":false,"target_count":0,"targets":[]}`
	if got != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestManagerAggregatePowerIntent(t *testing.T) {
	m, ports := newTestManager(t, "ld2450", "ld2450_2")

	intents := make(chan bool, 8)
	snapshots := make(chan string, 16)
	m.SetOnPowerIntent(func(on bool) { intents <- on })
	m.SetOnSnapshot(func(name string) { snapshots <- name })
	m.Start()

	occupied := telemetryFrame(slot(100, 200))
	cleared := telemetryFrame()

	// First sensor sees a target: aggregate flips on.
	ports["ld2450"].feed(occupied)
	if on := recvBool(t, intents, "power intent"); !on {
		t.Fatal("first intent = off, want on")
	}

	// Second sensor also sees a target: aggregate already on, no intent.
	ports["ld2450_2"].feed(occupied)
	recvString(t, snapshots, "second sensor snapshot")
	expectSilent(t, intents, "intent while aggregate unchanged")

	// Second sensor clears while the first still holds: no intent.
	ports["ld2450_2"].feed(cleared)
	recvString(t, snapshots, "second sensor clear snapshot")
	expectSilent(t, intents, "intent while first sensor occupied")

	// First sensor clears too: aggregate flips off, exactly one intent.
	ports["ld2450"].feed(cleared)
	if on := recvBool(t, intents, "power intent"); on {
		t.Fatal("intent after all clear = on, want off")
	}
	expectSilent(t, intents, "duplicate off intent")

	// Either sensor turning occupied again flips the aggregate back on.
	ports["ld2450_2"].feed(occupied)
	if on := recvBool(t, intents, "power intent"); !on {
		t.Fatal("intent after reoccupancy = off, want on")
	}
	expectSilent(t, intents, "duplicate on intent")
}

func TestManagerDirectiveExchange(t *testing.T) {
	m, ports := newTestManager(t, "ld2450")
	m.Start()

	if err := m.Command("ld2450", "VERSION"); err != nil {
		t.Fatalf("Command() error: %v", err)
	}

	// The reader brackets the operation with enable/disable config.
	deadline := time.Now().Add(2 * time.Second)
	for ports["ld2450"].writeCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	writes := ports["ld2450"].writtenFrames()
	if len(writes) != 3 {
		t.Fatalf("writes = %d frames, want 3", len(writes))
	}

	version := []byte{0xFD, 0xFC, 0xFB, 0xFA, 0x00, 0xA0, 0x04, 0x03, 0x02, 0x01}
	want := [][]byte{enableConfigFrame, version, disableConfigFrame}
	for i := range want {
		if !bytes.Equal(writes[i], want[i]) {
			t.Errorf("write %d = % X, want % X", i, writes[i], want[i])
		}
	}
}

func TestManagerCommandErrors(t *testing.T) {
	m, _ := newTestManager(t, "ld2450")
	m.Start()

	if err := m.Command("nope", "VERSION"); !errors.Is(err, ErrSensorUnknown) {
		t.Errorf("unknown sensor err = %v, want %v", err, ErrSensorUnknown)
	}
	if err := m.Command("ld2450", "SELF_DESTRUCT"); !errors.Is(err, ErrUnknownDirective) {
		t.Errorf("bad directive err = %v, want %v", err, ErrUnknownDirective)
	}
	if _, err := m.Payload("nope"); !errors.Is(err, ErrSensorUnknown) {
		t.Errorf("unknown sensor payload err = %v, want %v", err, ErrSensorUnknown)
	}
}

func TestManagerDisabledSensor(t *testing.T) {
	m := NewManager(radarConfig("ld2450"))
	m.openPort = func(port string, baud int) (SerialPort, error) {
		return nil, errors.New("no such device")
	}
	t.Cleanup(m.Stop)
	m.Start()

	// Commands fail, but the channel still has an all-clear payload.
	if err := m.Command("ld2450", "VERSION"); !errors.Is(err, ErrSensorDisabled) {
		t.Errorf("disabled sensor err = %v, want %v", err, ErrSensorDisabled)
	}

	got, err := m.Payload("ld2450")
	if err != nil {
		t.Fatalf("Payload() error: %v", err)
	}
	if !strings.Contains(got, `"occupied":false`) {
		t.Errorf("disabled sensor payload = %s, want all-clear", got)
	}
}

func TestManagerSensors(t *testing.T) {
	m, _ := newTestManager(t, "ld2450", "ld2450_2")

	got := m.Sensors()
	want := []string{"ld2450", "ld2450_2"}
	if len(got) != len(want) {
		t.Fatalf("Sensors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sensors() = %v, want %v", got, want)
		}
	}
}

func TestSensorDirectiveQueueFull(t *testing.T) {
	// No reader loop draining the queue: the second directive must be
	// rejected rather than block the bus handler.
	s := &sensor{name: "ld2450", directives: make(chan directive, 1)}

	if err := s.command("VERSION"); err != nil {
		t.Fatalf("first command error: %v", err)
	}
	if err := s.command("REBOOT"); !errors.Is(err, ErrDirectivePending) {
		t.Errorf("second command err = %v, want %v", err, ErrDirectivePending)
	}
}
