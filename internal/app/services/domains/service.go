package domains

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/customdomain"
	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/services/notifications"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/timers"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

// ErrVerificationState is returned when Verify is called on a domain that is
// already verified or being verified.
var ErrVerificationState = errors.New("domain cannot be verified in its current state")

// Options tunes the simulated DNS check.
type Options struct {
	VerifyDelay time.Duration
	SuccessRate float64
}

// DefaultOptions mirrors the console's stock timings.
func DefaultOptions() Options {
	return Options{VerifyDelay: 2500 * time.Millisecond, SuccessRate: 0.7}
}

// Service manages custom domains and their simulated verification.
type Service struct {
	store    storage.DomainStore
	timers   *timers.Scheduler
	notifier notifications.Notifier
	rand     chance.Source
	opts     Options
	log      *logger.Logger
}

// New constructs a domain service. notifier may be nil.
func New(store storage.DomainStore, scheduler *timers.Scheduler, notifier notifications.Notifier, src chance.Source, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("domains")
	}
	if scheduler == nil {
		scheduler = timers.New(log)
	}
	if src == nil {
		src = chance.Default()
	}
	if opts.VerifyDelay <= 0 {
		opts.VerifyDelay = DefaultOptions().VerifyDelay
	}
	return &Service{store: store, timers: scheduler, notifier: notifier, rand: src, opts: opts, log: log}
}

func key(id int64) string { return timers.Key("domain", id) }

// Add registers a domain in Pending with its ownership TXT record.
func (s *Service) Add(ctx context.Context, name string) (customdomain.CustomDomain, error) {
	name, err := customdomain.NormalizeName(name)
	if err != nil {
		return customdomain.CustomDomain{}, err
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	created, err := s.store.CreateDomain(ctx, customdomain.CustomDomain{
		DomainName: name,
		Status:     customdomain.StatusPending,
		DNSRecords: []customdomain.DNSRecord{customdomain.VerificationRecord(name, token)},
		CreatedAt:  isotime.Now(),
	})
	if err != nil {
		return customdomain.CustomDomain{}, err
	}
	s.log.WithField("domain_id", created.ID).WithField("domain", name).Info("domain added")
	return created, nil
}

// Verify moves a pending domain to Verifying and schedules the outcome:
// Verified with probability SuccessRate, otherwise back to Pending. Exactly
// one notification reports the outcome.
func (s *Service) Verify(ctx context.Context, id int64) (customdomain.CustomDomain, error) {
	d, swapped, err := s.store.SwapDomainStatus(ctx, id, customdomain.StatusPending, customdomain.StatusVerifying)
	if err != nil {
		return customdomain.CustomDomain{}, err
	}
	if !swapped {
		return customdomain.CustomDomain{}, fmt.Errorf("%w: %s is %s", ErrVerificationState, d.DomainName, d.Status)
	}
	s.timers.After(key(id), s.opts.VerifyDelay, func(ctx context.Context) {
		s.resolve(ctx, id)
	})
	s.log.WithField("domain_id", id).Info("domain verification started")
	return d, nil
}

func (s *Service) resolve(ctx context.Context, id int64) {
	next := customdomain.StatusPending
	if chance.Bernoulli(s.rand, s.opts.SuccessRate) {
		next = customdomain.StatusVerified
	}
	d, swapped, err := s.store.SwapDomainStatus(ctx, id, customdomain.StatusVerifying, next)
	if err != nil {
		s.log.WithField("domain_id", id).WithError(err).Warn("resolve verification")
		return
	}
	if !swapped {
		return
	}

	n := notification.Notification{
		Title:       "Domain verified",
		Description: fmt.Sprintf("%s is now serving the console", d.DomainName),
		Tone:        notification.ToneSuccess,
		Icon:        "globe",
	}
	if next == customdomain.StatusPending {
		n = notification.Notification{
			Title:       "Domain verification failed",
			Description: fmt.Sprintf("TXT record for %s was not found", d.DomainName),
			Tone:        notification.ToneError,
			Icon:        "globe",
		}
	}
	s.log.WithField("domain_id", id).WithField("status", next).Info("domain verification finished")
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Add(ctx, n); err != nil {
		s.log.WithError(err).Warn("add notification")
	}
}

// Delete removes a domain and cancels a pending verification.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteDomain(ctx, id); err != nil {
		return err
	}
	s.timers.Cancel(key(id))
	s.log.WithField("domain_id", id).Info("domain deleted")
	return nil
}

// Get returns one domain.
func (s *Service) Get(ctx context.Context, id int64) (customdomain.CustomDomain, error) {
	return s.store.GetDomain(ctx, id)
}

// List returns every domain.
func (s *Service) List(ctx context.Context) ([]customdomain.CustomDomain, error) {
	return s.store.ListDomains(ctx)
}
