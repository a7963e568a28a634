package apikeys

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sarkhq/console/internal/app/domain/apikey"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// displayChars is how many secret characters after the prefix stay visible.
const displayChars = 4

// ErrInvalidKey is returned by Authenticate for unknown or revoked secrets.
var ErrInvalidKey = errors.New("invalid api key")

// Service issues and manages API keys. Secrets are returned once and only
// their bcrypt hash is kept.
type Service struct {
	store storage.APIKeyStore
	cost  int
	log   *logger.Logger
	now   func() time.Time
}

// New constructs an API key service. A zero cost selects bcrypt.DefaultCost.
func New(store storage.APIKeyStore, cost int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("apikeys")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: cost, log: log, now: time.Now}
}

// Create issues a new active key. The returned secret is not retrievable
// afterwards.
func (s *Service) Create(ctx context.Context, name string, scopes []apikey.Scope) (apikey.Created, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return apikey.Created{}, fmt.Errorf("name is required")
	}
	normalized, err := apikey.NormalizeScopes(scopes)
	if err != nil {
		return apikey.Created{}, err
	}

	secret, err := generateSecret()
	if err != nil {
		return apikey.Created{}, fmt.Errorf("generate secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return apikey.Created{}, fmt.Errorf("hash secret: %w", err)
	}

	now := s.now()
	key := apikey.APIKey{
		Name:      name,
		Prefix:    secret[:len(apikey.SecretPrefix)+displayChars],
		Hash:      string(hash),
		Status:    apikey.StatusActive,
		Scopes:    normalized,
		CreatedAt: isotime.From(now),
	}
	for millis := now.UnixMilli(); ; millis++ {
		key.ID = fmt.Sprintf("key-%d", millis)
		created, err := s.store.CreateAPIKey(ctx, key)
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if err != nil {
			return apikey.Created{}, err
		}
		s.log.WithField("key_id", created.ID).
			WithField("scopes", len(created.Scopes)).
			Info("api key created")
		return apikey.Created{Key: created, Secret: secret}, nil
	}
}

// Revoke soft-disables a key.
func (s *Service) Revoke(ctx context.Context, id string) (apikey.APIKey, error) {
	key, err := s.store.GetAPIKey(ctx, id)
	if err != nil {
		return apikey.APIKey{}, err
	}
	if key.Status == apikey.StatusRevoked {
		return key, nil
	}
	key.Status = apikey.StatusRevoked
	updated, err := s.store.UpdateAPIKey(ctx, key)
	if err != nil {
		return apikey.APIKey{}, err
	}
	s.log.WithField("key_id", id).Info("api key revoked")
	return updated, nil
}

// Delete removes a key permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAPIKey(ctx, id); err != nil {
		return err
	}
	s.log.WithField("key_id", id).Info("api key deleted")
	return nil
}

// List returns every key, newest first.
func (s *Service) List(ctx context.Context) ([]apikey.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}

// Authenticate resolves an active key from its secret and stamps LastUsed.
func (s *Service) Authenticate(ctx context.Context, secret string) (apikey.APIKey, error) {
	if !strings.HasPrefix(secret, apikey.SecretPrefix) || len(secret) < len(apikey.SecretPrefix)+displayChars {
		return apikey.APIKey{}, ErrInvalidKey
	}
	keys, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return apikey.APIKey{}, err
	}
	prefix := secret[:len(apikey.SecretPrefix)+displayChars]
	for _, key := range keys {
		if key.Status != apikey.StatusActive || key.Prefix != prefix {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(secret)) != nil {
			continue
		}
		key.LastUsed = isotime.Ptr(s.now())
		return s.store.UpdateAPIKey(ctx, key)
	}
	return apikey.APIKey{}, ErrInvalidKey
}

func generateSecret() (string, error) {
	var b strings.Builder
	b.Grow(len(apikey.SecretPrefix) + apikey.SecretLength)
	b.WriteString(apikey.SecretPrefix)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < apikey.SecretLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
