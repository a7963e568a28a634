package messaging

import (
	"fmt"
	"strings"

	"github.com/sarkhq/console/pkg/isotime"
)

// Platform is the channel a conversation runs on.
type Platform string

const (
	PlatformDefault   Platform = "default"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformMessenger Platform = "messenger"
)

// Presence is a contact's online state.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderMe      Sender = "me"
	SenderContact Sender = "contact"
)

// Conversation is a thread with one contact on one platform.
type Conversation struct {
	ID          int64        `json:"id"`
	ContactID   int64        `json:"contactId"`
	ContactName string       `json:"contactName"`
	AvatarURL   string       `json:"avatarUrl"`
	LastMessage string       `json:"lastMessage"`
	Timestamp   isotime.Time `json:"timestamp"`
	UnreadCount int          `json:"unreadCount"`
	Platform    Platform     `json:"platform"`
	Status      Presence     `json:"status"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
}

// Message belongs to exactly one conversation.
type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversationId"`
	Text           string       `json:"text"`
	Timestamp      isotime.Time `json:"timestamp"`
	Sender         Sender       `json:"sender"`
	Platform       Platform     `json:"platform"`
}

// ParsePlatform validates a platform, defaulting blank input to default.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case "", PlatformDefault:
		return PlatformDefault, nil
	case PlatformWhatsApp:
		return PlatformWhatsApp, nil
	case PlatformMessenger:
		return PlatformMessenger, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}
