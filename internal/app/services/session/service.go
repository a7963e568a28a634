// Package session holds the signed-in operator's profile and the transient
// UI-facing flags (loading, typing, active messaging platform).
package session

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/domain/session"
	"github.com/sarkhq/console/internal/app/storage/persist"
	"github.com/sarkhq/console/pkg/logger"
)

// Service owns the current user and session flags. Only the user is
// persisted.
type Service struct {
	user *persist.Binding[session.User]
	log  *logger.Logger

	mu       sync.RWMutex
	loading  bool
	typing   map[int64]bool
	platform messaging.Platform
}

// New constructs a session service around a bound user value.
func New(user *persist.Binding[session.User], log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Service{
		user:     user,
		log:      log,
		typing:   make(map[int64]bool),
		platform: messaging.PlatformDefault,
	}
}

// CurrentUser returns the signed-in operator.
func (s *Service) CurrentUser() session.User {
	return s.user.Get()
}

// UpdateProfile replaces the profile. The admin link cannot be changed.
func (s *Service) UpdateProfile(_ context.Context, u session.User) (session.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if u.Name == "" {
		return session.User{}, fmt.Errorf("name is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return session.User{}, fmt.Errorf("email is invalid: %w", err)
	}
	updated := s.user.Update(func(cur session.User) session.User {
		u.AdminID = cur.AdminID
		return u
	})
	s.log.WithField("admin_id", updated.AdminID).Info("profile updated")
	return updated, nil
}

// Reload re-reads the persisted user and clears transient flags.
func (s *Service) Reload(ctx context.Context) session.User {
	u := s.user.Reload(ctx)
	s.mu.Lock()
	s.typing = make(map[int64]bool)
	s.platform = messaging.PlatformDefault
	s.mu.Unlock()
	return u
}

func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Service) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// Typing reports whether the contact of a conversation is composing a reply.
func (s *Service) Typing(conversationID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing[conversationID]
}

func (s *Service) SetTyping(conversationID int64, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if typing {
		s.typing[conversationID] = true
		return
	}
	delete(s.typing, conversationID)
}

// ActivePlatform is the platform new conversations are started on.
func (s *Service) ActivePlatform() messaging.Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.platform
}

func (s *Service) SetActivePlatform(p messaging.Platform) error {
	parsed, err := messaging.ParsePlatform(string(p))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platform = parsed
	return nil
}
