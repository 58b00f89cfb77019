package domain

import "fmt"

// Channel is a delivery medium. The set is closed; the dispatcher switches
// exhaustively over it so a new channel cannot be half-wired.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
	ChannelInApp    Channel = "inapp"
)

// AllChannels lists every known channel in a stable order.
var AllChannels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush, ChannelInApp}

// ParseChannel validates a raw channel name.
func ParseChannel(raw string) (Channel, error) {
	ch := Channel(raw)
	switch ch {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush, ChannelInApp:
		return ch, nil
	default:
		return "", fmt.Errorf("unknown channel: %q", raw)
	}
}

func (c Channel) String() string {
	return string(c)
}
