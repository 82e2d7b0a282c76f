package enums

import "fmt"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

var validChannels = []Channel{
	ChannelEmail,
	ChannelSMS,
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Channel.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannel converts raw input into a Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}
