package mqtt

import (
	"fmt"
	"strings"
)

// setSuffix marks a channel's inbound command topic.
const setSuffix = "/set"

// Topics provides builders for kioskd's MQTT topic layout.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Every channel lives directly under the configured topic root:
//
//	<root>/<channel>        device → bus state
//	<root>/<channel>/set    bus → device commands
//	<root>/status           ONLINE/OFFLINE availability (retained, LWT)
//
// Example:
//
//	topics := mqtt.Topics{Root: "fullpageos/kitchen"}
//	stateTopic := topics.State("shell")
//	// Returns: "fullpageos/kitchen/shell"
type Topics struct {
	Root string
}

// State returns the publish topic for a channel.
//
// Example: fullpageos/kitchen/ld2450
func (t Topics) State(channel string) string {
	return fmt.Sprintf("%s/%s", t.Root, channel)
}

// Set returns the inbound command topic for a channel.
//
// Example: fullpageos/kitchen/shell/set
func (t Topics) Set(channel string) string {
	return fmt.Sprintf("%s/%s%s", t.Root, channel, setSuffix)
}

// Status returns the availability topic carrying ONLINE/OFFLINE.
//
// Example: fullpageos/kitchen/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.Root)
}

// SetWildcard returns the subscription filter matching every channel's
// command topic under the root.
//
// Example: fullpageos/kitchen/+/set
func (t Topics) SetWildcard() string {
	return fmt.Sprintf("%s/+%s", t.Root, setSuffix)
}

// ChannelFromSet extracts the channel name from an inbound command topic.
//
// Parameters:
//   - topic: The full topic the message arrived on
//
// Returns:
//   - string: The channel name
//   - bool: false when the topic is not a <root>/<channel>/set topic
func (t Topics) ChannelFromSet(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Root+"/")
	if !ok {
		return "", false
	}
	channel, ok := strings.CutSuffix(rest, setSuffix)
	if !ok || channel == "" || strings.Contains(channel, "/") {
		return "", false
	}
	return channel, true
}
