package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/timers"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

// Presence is the session state messaging reads and drives.
type Presence interface {
	ActivePlatform() messaging.Platform
	SetTyping(conversationID int64, typing bool)
}

// Options tunes the simulated contact.
type Options struct {
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration
	Replies       []string
}

// DefaultOptions mirrors the console's stock timings.
func DefaultOptions() Options {
	return Options{
		ReplyDelayMin: 1500 * time.Millisecond,
		ReplyDelayMax: 2500 * time.Millisecond,
		Replies: []string{
			"Thanks, I'll take a look.",
			"Got it!",
			"Sounds good to me.",
			"Can we talk about this later today?",
			"On it.",
		},
	}
}

// Service manages conversations. Every message sent by the operator gets
// exactly one simulated reply from the contact.
type Service struct {
	store    storage.MessagingStore
	contacts storage.AdminStore
	presence Presence
	timers   *timers.Scheduler
	rand     chance.Source
	opts     Options
	log      *logger.Logger
}

// New constructs a messaging service. Contacts are administrators.
func New(store storage.MessagingStore, contacts storage.AdminStore, presence Presence, scheduler *timers.Scheduler, src chance.Source, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("messaging")
	}
	if scheduler == nil {
		scheduler = timers.New(log)
	}
	if src == nil {
		src = chance.Default()
	}
	def := DefaultOptions()
	if opts.ReplyDelayMin <= 0 {
		opts.ReplyDelayMin = def.ReplyDelayMin
	}
	if opts.ReplyDelayMax < opts.ReplyDelayMin {
		opts.ReplyDelayMax = opts.ReplyDelayMin
	}
	if len(opts.Replies) == 0 {
		opts.Replies = def.Replies
	}
	return &Service{
		store:    store,
		contacts: contacts,
		presence: presence,
		timers:   scheduler,
		rand:     src,
		opts:     opts,
		log:      log,
	}
}

func key(id int64) string { return timers.Key("conversation", id) }

// SendMessage appends an operator message and schedules the contact's reply.
// A blank platform uses the conversation's own.
func (s *Service) SendMessage(ctx context.Context, text string, conversationID int64, platform messaging.Platform) (messaging.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return messaging.Message{}, fmt.Errorf("text is required")
	}
	if platform != "" {
		parsed, err := messaging.ParsePlatform(string(platform))
		if err != nil {
			return messaging.Message{}, err
		}
		platform = parsed
	}

	msg, conv, err := s.store.AppendMessage(ctx, messaging.Message{
		ConversationID: conversationID,
		Text:           text,
		Timestamp:      isotime.Now(),
		Sender:         messaging.SenderMe,
		Platform:       platform,
	})
	if err != nil {
		return messaging.Message{}, err
	}

	if s.presence != nil {
		s.presence.SetTyping(conv.ID, true)
	}
	delay := s.opts.ReplyDelayMin + time.Duration(chance.Uniform(s.rand, 0, float64(s.opts.ReplyDelayMax-s.opts.ReplyDelayMin)))
	reply := s.opts.Replies[chance.Pick(s.rand, len(s.opts.Replies))]
	s.timers.After(key(conv.ID), delay, func(ctx context.Context) {
		s.reply(ctx, conv.ID, msg.Platform, reply)
	})
	s.log.WithField("conversation_id", conv.ID).
		WithField("message_id", msg.ID).
		Debug("message sent")
	return msg, nil
}

func (s *Service) reply(ctx context.Context, conversationID int64, platform messaging.Platform, text string) {
	if s.presence != nil {
		defer s.presence.SetTyping(conversationID, false)
	}
	_, _, err := s.store.AppendMessage(ctx, messaging.Message{
		ConversationID: conversationID,
		Text:           text,
		Timestamp:      isotime.Now(),
		Sender:         messaging.SenderContact,
		Platform:       platform,
	})
	if err != nil {
		s.log.WithField("conversation_id", conversationID).WithError(err).Warn("append reply")
	}
}

// StartConversation sends text to a contact on the session's active
// platform, reusing the conversation for that contact and platform when one
// exists. It returns the conversation id.
func (s *Service) StartConversation(ctx context.Context, contactID int64, text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("text is required")
	}
	contact, err := s.contacts.GetAdmin(ctx, contactID)
	if err != nil {
		return 0, err
	}
	platform := messaging.PlatformDefault
	if s.presence != nil {
		platform = s.presence.ActivePlatform()
	}

	conv, err := s.store.FindConversation(ctx, contactID, platform)
	if errors.Is(err, storage.ErrNotFound) {
		conv, err = s.store.CreateConversation(ctx, messaging.Conversation{
			ContactID:   contact.ID,
			ContactName: contact.Name,
			AvatarURL:   contact.AvatarURL,
			Timestamp:   isotime.Now(),
			Platform:    platform,
			Status:      messaging.PresenceOnline,
			Email:       contact.Email,
		})
		if err == nil {
			s.log.WithField("conversation_id", conv.ID).
				WithField("contact_id", contactID).
				WithField("platform", platform).
				Info("conversation started")
		}
	}
	if err != nil {
		return 0, err
	}

	if _, err := s.SendMessage(ctx, text, conv.ID, platform); err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// Conversations returns every conversation.
func (s *Service) Conversations(ctx context.Context) ([]messaging.Conversation, error) {
	return s.store.ListConversations(ctx)
}

// Conversation returns one conversation.
func (s *Service) Conversation(ctx context.Context, id int64) (messaging.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// Messages returns a conversation's messages, oldest first.
func (s *Service) Messages(ctx context.Context, conversationID int64) ([]messaging.Message, error) {
	return s.store.ListMessages(ctx, conversationID)
}

// MarkRead clears a conversation's unread counter.
func (s *Service) MarkRead(ctx context.Context, conversationID int64) (messaging.Conversation, error) {
	return s.store.MarkConversationRead(ctx, conversationID)
}
