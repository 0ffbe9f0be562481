// Package msgs defines the messages exchanged with the world, visual and
// camera services, the channels they travel on, and their JSON codec.
package msgs

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the namespace the simulator services listen under.
const DefaultTopicPrefix = "~/gazebo-utils"

// Channel identifies one request/response topic pair.
type Channel int

const (
	World Channel = iota
	Visual
	Camera
)

var channelNames = []string{"world", "visual", "camera"}

// Channels lists every channel in a fixed order.
func Channels() []Channel {
	return []Channel{World, Visual, Camera}
}

func (c Channel) String() string { return enumName(c, channelNames) }

// ParseChannel maps a channel name back to a Channel.
func ParseChannel(s string) (Channel, error) {
	return enumParse[Channel](strings.ToLower(s), channelNames, "channel")
}

// Topics names the request and response topic of each channel.
type Topics struct {
	prefix string
}

// NewTopics returns the topic set rooted at prefix. An empty prefix selects
// DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: strings.TrimSuffix(prefix, "/")}
}

// Request returns the topic requests on c are published to.
func (t Topics) Request(c Channel) string {
	return fmt.Sprintf("%s/%s_utils", t.prefix, c)
}

// Response returns the topic the service behind c answers on.
func (t Topics) Response(c Channel) string {
	return t.Request(c) + "/response"
}
