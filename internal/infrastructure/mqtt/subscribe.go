package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages matching a topic filter.
//
// kioskd holds exactly one subscription for its whole lifetime: the
// command wildcard (Topics.SetWildcard) covering every channel's /set
// topic. The filter is tracked internally and re-subscribed after a
// reconnect, so a broker restart does not leave the kiosk deaf to
// commands.
//
// The handler runs on a paho goroutine per message, wrapped with panic
// recovery; a handler that blocks stalls delivery of later messages on
// the same filter.
//
// Parameters:
//   - topic: The topic filter, usually Topics.SetWildcard()
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback function invoked for each message
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	err := client.Subscribe(client.Topics().SetWildcard(), 0,
//	    func(topic string, payload []byte) error {
//	        channel, ok := client.Topics().ChannelFromSet(topic)
//	        ...
//	    })
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Track first so a reconnect that races the broker's SUBACK still
	// restores the filter.
	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.dropSubscription(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.dropSubscription(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// dropSubscription removes a filter from reconnect tracking after a
// failed subscribe.
func (c *Client) dropSubscription(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// SubscriptionCount returns the number of tracked topic filters.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether the exact filter string is tracked for
// reconnect restoration. No pattern matching is applied.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[topic]
	return exists
}
