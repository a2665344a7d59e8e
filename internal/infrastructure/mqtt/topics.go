package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes shared with the rest of the Gray Logic installation.
const (
	// TopicPrefix is the root of every Gray Logic topic.
	TopicPrefix = "graylogic"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the Gray Logic topics this service uses.
// The Z-Wave gateway's own request and event topics live in zwavemqtt.
type Topics struct{}

// ClientStatus returns the retained online/offline topic for one MQTT client.
// Each service gets its own topic so the controller never overwrites Core's
// retained status.
//
// Example: graylogic/system/status/graylogic-zwave
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// AllClientStatuses matches every client status topic.
//
// Pattern: graylogic/system/status/+
func (Topics) AllClientStatuses() string {
	return fmt.Sprintf("%s/status/+", TopicPrefixSystem)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/zwave
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocol)
}

// validatePublishTopic rejects empty topics and topics containing wildcards.
func validatePublishTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards not allowed in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}

// validateFilter checks wildcard placement in a subscription filter:
// "+" must fill a whole level and "#" must be the whole last level.
func validateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return fmt.Errorf("%w: misplaced '#' in %q", ErrInvalidTopic, filter)
		}
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: misplaced '+' in %q", ErrInvalidTopic, filter)
		}
	}
	return nil
}
