package admins

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/session"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

// CurrentUser exposes the signed-in operator.
type CurrentUser interface {
	CurrentUser() session.User
}

// Service manages administrator records.
type Service struct {
	store   storage.AdminStore
	current CurrentUser
	log     *logger.Logger
}

// New constructs an administrator service. current may be nil, in which case
// no administrator is protected from deletion.
func New(store storage.AdminStore, current CurrentUser, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("admins")
	}
	return &Service{store: store, current: current, log: log}
}

// Add creates an active administrator with no permissions and the role's
// default storage quota.
func (s *Service) Add(ctx context.Context, in admin.Input) (admin.Administrator, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return admin.Administrator{}, fmt.Errorf("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return admin.Administrator{}, err
	}
	role, err := admin.ParseRole(string(in.Role))
	if err != nil {
		return admin.Administrator{}, err
	}

	created, err := s.store.CreateAdmin(ctx, admin.Administrator{
		Name:         name,
		Email:        email,
		AvatarURL:    strings.TrimSpace(in.AvatarURL),
		Role:         role,
		Status:       admin.StatusActive,
		Permissions:  []admin.Permission{},
		ActivityLogs: []admin.ActivityLog{},
		StorageUsage: admin.StorageUsage{Used: 0, Total: admin.DefaultStorageQuota(role)},
	})
	if err != nil {
		return admin.Administrator{}, err
	}
	s.log.WithField("admin_id", created.ID).
		WithField("role", created.Role).
		Info("administrator added")
	return created, nil
}

// Update replaces an administrator wholesale after validating it.
func (s *Service) Update(ctx context.Context, a admin.Administrator) (admin.Administrator, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return admin.Administrator{}, fmt.Errorf("name is required")
	}
	email, err := normalizeEmail(a.Email)
	if err != nil {
		return admin.Administrator{}, err
	}
	a.Email = email
	if a.Role, err = admin.ParseRole(string(a.Role)); err != nil {
		return admin.Administrator{}, err
	}
	if !admin.ValidStatus(a.Status) {
		return admin.Administrator{}, fmt.Errorf("unknown status %q", a.Status)
	}
	if a.Permissions, err = admin.NormalizePermissions(a.Permissions); err != nil {
		return admin.Administrator{}, err
	}
	if a.ActivityLogs == nil {
		a.ActivityLogs = []admin.ActivityLog{}
	}

	updated, err := s.store.UpdateAdmin(ctx, a)
	if err != nil {
		return admin.Administrator{}, err
	}
	s.log.WithField("admin_id", updated.ID).Info("administrator updated")
	return updated, nil
}

// Delete removes an administrator. The signed-in operator cannot delete
// themselves. Conversations keep their contact details.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.current != nil && s.current.CurrentUser().AdminID == id {
		return fmt.Errorf("%w: administrator %d is signed in", storage.ErrInUse, id)
	}
	if err := s.store.DeleteAdmin(ctx, id); err != nil {
		return err
	}
	s.log.WithField("admin_id", id).Info("administrator deleted")
	return nil
}

// Get returns one administrator.
func (s *Service) Get(ctx context.Context, id int64) (admin.Administrator, error) {
	return s.store.GetAdmin(ctx, id)
}

// List returns all administrators.
func (s *Service) List(ctx context.Context) ([]admin.Administrator, error) {
	return s.store.ListAdmins(ctx)
}

// RecordActivity prepends an entry to the administrator's activity log.
func (s *Service) RecordActivity(ctx context.Context, id int64, action, detail string) (admin.Administrator, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return admin.Administrator{}, fmt.Errorf("action is required")
	}
	return s.store.PrependActivity(ctx, id, admin.ActivityLog{
		ID:        uuid.NewString(),
		Action:    action,
		Detail:    strings.TrimSpace(detail),
		Timestamp: isotime.Now(),
	})
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("email is invalid: %w", err)
	}
	return strings.ToLower(addr.Address), nil
}
