package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// The tests in this file run without a broker: they cover topic building
// and the validation paths that fail before any network I/O. End-to-end
// pub/sub behaviour lives in integration_test.go behind the integration
// build tag.

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{Root: "fullpageos/kitchen"}

	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "State",
			builder: func() string {
				return topics.State("ld2450")
			},
			expected: "fullpageos/kitchen/ld2450",
		},
		{
			name: "Set",
			builder: func() string {
				return topics.Set("brightness_percent")
			},
			expected: "fullpageos/kitchen/brightness_percent/set",
		},
		{
			name: "Status",
			builder: func() string {
				return topics.Status()
			},
			expected: "fullpageos/kitchen/status",
		},
		{
			name: "SetWildcard",
			builder: func() string {
				return topics.SetWildcard()
			},
			expected: "fullpageos/kitchen/+/set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestChannelFromSet(t *testing.T) {
	topics := Topics{Root: "fullpageos/kitchen"}

	tests := []struct {
		name        string
		topic       string
		wantChannel string
		wantOK      bool
	}{
		{
			name:        "valid channel",
			topic:       "fullpageos/kitchen/backlight/set",
			wantChannel: "backlight",
			wantOK:      true,
		},
		{
			name:        "valid channel with underscore",
			topic:       "fullpageos/kitchen/brightness_percent/set",
			wantChannel: "brightness_percent",
			wantOK:      true,
		},
		{
			name:   "wrong root",
			topic:  "fullpageos/hallway/backlight/set",
			wantOK: false,
		},
		{
			name:   "missing set suffix",
			topic:  "fullpageos/kitchen/backlight",
			wantOK: false,
		},
		{
			name:   "empty channel segment",
			topic:  "fullpageos/kitchen//set",
			wantOK: false,
		},
		{
			name:   "nested segments",
			topic:  "fullpageos/kitchen/a/b/set",
			wantOK: false,
		},
		{
			name:   "bare root",
			topic:  "fullpageos/kitchen",
			wantOK: false,
		},
		{
			name:   "set suffix only",
			topic:  "fullpageos/kitchen/set",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel, ok := topics.ChannelFromSet(tt.topic)
			if ok != tt.wantOK {
				t.Fatalf("ChannelFromSet(%q) ok = %v, want %v", tt.topic, ok, tt.wantOK)
			}
			if ok && channel != tt.wantChannel {
				t.Errorf("ChannelFromSet(%q) = %q, want %q", tt.topic, channel, tt.wantChannel)
			}
		})
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Publish("", []byte("test"), 0, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizePayload(t *testing.T) {
	client := &Client{}

	payload := make([]byte, maxPayloadSize+1)
	err := client.Publish("test/topic", payload, 0, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", []byte("test"), 0, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("", 0, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("test/topic", 3, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("test/topic", 0, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribeDisconnected(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("test/topic", 0, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// State Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.HealthCheck(ctx)
	if err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	client := &Client{}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestHasSubscription_NotSubscribed(t *testing.T) {
	client := &Client{}

	if client.HasSubscription("nonexistent/topic") {
		t.Error("HasSubscription() should be false for unsubscribed topic")
	}
}

func TestSetLogger(t *testing.T) {
	client := &Client{}

	logger := &mockLogger{}
	client.SetLogger(logger)

	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)

	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
