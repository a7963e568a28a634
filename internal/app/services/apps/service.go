package apps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/services/notifications"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/timers"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

// ErrDeploying is returned for operations that cannot run while a deploy or
// flap holds the app in Deploying.
var ErrDeploying = errors.New("app is deploying")

// Options tunes the simulated lifecycle.
type Options struct {
	DeployDuration time.Duration
}

// DefaultOptions mirrors the console's stock timings.
func DefaultOptions() Options {
	return Options{DeployDuration: 4 * time.Second}
}

// Service manages apps and their simulated lifecycle. Deferred transitions
// are registered with the scheduler under the app's key so deleting the app
// cancels them.
type Service struct {
	store    storage.AppStore
	timers   *timers.Scheduler
	notifier notifications.Notifier
	rand     chance.Source
	opts     Options
	log      *logger.Logger
}

// New constructs an app service. notifier may be nil.
func New(store storage.AppStore, scheduler *timers.Scheduler, notifier notifications.Notifier, src chance.Source, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("apps")
	}
	if scheduler == nil {
		scheduler = timers.New(log)
	}
	if src == nil {
		src = chance.Default()
	}
	if opts.DeployDuration <= 0 {
		opts.DeployDuration = DefaultOptions().DeployDuration
	}
	return &Service{store: store, timers: scheduler, notifier: notifier, rand: src, opts: opts, log: log}
}

func key(id int64) string { return timers.Key("app", id) }

// Add creates a stopped app with a freshly seeded resource history.
func (s *Service) Add(ctx context.Context, in managedapp.Input) (managedapp.ManagedApp, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return managedapp.ManagedApp{}, fmt.Errorf("name is required")
	}
	platform, err := managedapp.ParsePlatform(string(in.Platform))
	if err != nil {
		return managedapp.ManagedApp{}, err
	}

	cpu := make([]float64, managedapp.HistoryLength)
	memory := make([]float64, managedapp.HistoryLength)
	for i := range cpu {
		cpu[i] = chance.Uniform(s.rand, 10, 40)
		memory[i] = chance.Uniform(s.rand, 30, 60)
	}

	created, err := s.store.CreateApp(ctx, managedapp.ManagedApp{
		Name:       name,
		Platform:   platform,
		Status:     managedapp.StatusStopped,
		Repository: strings.TrimSpace(in.Repository),
		Resources: managedapp.Resources{
			CPU:     cpu,
			Memory:  memory,
			Storage: managedapp.StorageUsage{Used: 0, Total: managedapp.DefaultStorageQuota(platform)},
		},
		EnvironmentVariables: map[string]string{},
		Deployments:          []managedapp.Deployment{},
		Logs:                 []managedapp.LogEntry{},
	})
	if err != nil {
		return managedapp.ManagedApp{}, err
	}
	s.log.WithField("app_id", created.ID).
		WithField("platform", created.Platform).
		Info("app added")
	return created, nil
}

// Update replaces an app wholesale. Resource windows are normalized to the
// fixed history length.
func (s *Service) Update(ctx context.Context, app managedapp.ManagedApp) (managedapp.ManagedApp, error) {
	app.Name = strings.TrimSpace(app.Name)
	if app.Name == "" {
		return managedapp.ManagedApp{}, fmt.Errorf("name is required")
	}
	var err error
	if app.Platform, err = managedapp.ParsePlatform(string(app.Platform)); err != nil {
		return managedapp.ManagedApp{}, err
	}
	if !managedapp.ValidStatus(app.Status) {
		return managedapp.ManagedApp{}, fmt.Errorf("unknown status %q", app.Status)
	}
	for k := range app.EnvironmentVariables {
		if err := managedapp.ValidateEnvKey(k); err != nil {
			return managedapp.ManagedApp{}, err
		}
	}
	if app.EnvironmentVariables == nil {
		app.EnvironmentVariables = map[string]string{}
	}
	app.Resources.CPU = managedapp.NormalizeWindow(app.Resources.CPU)
	app.Resources.Memory = managedapp.NormalizeWindow(app.Resources.Memory)

	updated, err := s.store.UpdateApp(ctx, app)
	if err != nil {
		return managedapp.ManagedApp{}, err
	}
	s.log.WithField("app_id", updated.ID).Info("app updated")
	return updated, nil
}

// Delete removes an app and cancels anything still scheduled for it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteApp(ctx, id); err != nil {
		return err
	}
	cancelled := s.timers.Cancel(key(id))
	s.log.WithField("app_id", id).
		WithField("cancelled_tasks", cancelled).
		Info("app deleted")
	return nil
}

// Get returns one app.
func (s *Service) Get(ctx context.Context, id int64) (managedapp.ManagedApp, error) {
	return s.store.GetApp(ctx, id)
}

// List returns all apps.
func (s *Service) List(ctx context.Context) ([]managedapp.ManagedApp, error) {
	return s.store.ListApps(ctx)
}

// Start moves a stopped or failed app to Running.
func (s *Service) Start(ctx context.Context, id int64) (managedapp.ManagedApp, error) {
	return s.transition(ctx, id, managedapp.StatusRunning, "App started")
}

// Stop moves an app to Stopped. A pending deploy is abandoned.
func (s *Service) Stop(ctx context.Context, id int64) (managedapp.ManagedApp, error) {
	s.timers.Cancel(key(id))
	return s.transition(ctx, id, managedapp.StatusStopped, "App stopped")
}

func (s *Service) transition(ctx context.Context, id int64, next managedapp.Status, line string) (managedapp.ManagedApp, error) {
	updated, err := s.store.ModifyApp(ctx, id, func(app *managedapp.ManagedApp) error {
		if app.Status == managedapp.StatusDeploying && next != managedapp.StatusStopped {
			return fmt.Errorf("%w: app %d", ErrDeploying, id)
		}
		app.Status = next
		app.Logs = append(app.Logs, managedapp.LogEntry{Timestamp: isotime.Now(), Level: "info", Message: line})
		return nil
	})
	if err != nil {
		return managedapp.ManagedApp{}, err
	}
	s.log.WithField("app_id", id).WithField("status", next).Info("app status changed")
	return updated, nil
}

// Deploy puts the app into Deploying and schedules its completion.
func (s *Service) Deploy(ctx context.Context, id int64, version string) (managedapp.ManagedApp, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return managedapp.ManagedApp{}, fmt.Errorf("version is required")
	}
	deploymentID := uuid.NewString()
	updated, err := s.store.ModifyApp(ctx, id, func(app *managedapp.ManagedApp) error {
		if app.Status == managedapp.StatusDeploying {
			return fmt.Errorf("%w: app %d", ErrDeploying, id)
		}
		now := isotime.Now()
		app.Status = managedapp.StatusDeploying
		app.Deployments = append([]managedapp.Deployment{{ID: deploymentID, Version: version, Status: "In Progress", Timestamp: now}}, app.Deployments...)
		app.Logs = append(app.Logs, managedapp.LogEntry{Timestamp: now, Level: "info", Message: "Deploying " + version})
		return nil
	})
	if err != nil {
		return managedapp.ManagedApp{}, err
	}

	s.timers.After(key(id), s.opts.DeployDuration, func(ctx context.Context) {
		s.finishDeploy(ctx, id, deploymentID, version)
	})
	s.log.WithField("app_id", id).WithField("version", version).Info("deploy started")
	return updated, nil
}

func (s *Service) finishDeploy(ctx context.Context, id int64, deploymentID, version string) {
	var finished bool
	app, err := s.store.ModifyApp(ctx, id, func(app *managedapp.ManagedApp) error {
		if app.Status != managedapp.StatusDeploying {
			return nil
		}
		now := isotime.Now()
		app.Status = managedapp.StatusRunning
		app.LastDeployed = &now
		for i := range app.Deployments {
			if app.Deployments[i].ID == deploymentID {
				app.Deployments[i].Status = "Success"
			}
		}
		app.Logs = append(app.Logs, managedapp.LogEntry{Timestamp: now, Level: "info", Message: "Deployed " + version})
		finished = true
		return nil
	})
	if err != nil {
		s.log.WithField("app_id", id).WithError(err).Warn("finish deploy")
		return
	}
	if !finished {
		return
	}
	s.log.WithField("app_id", id).WithField("version", version).Info("deploy finished")
	s.notify(ctx, notification.Notification{
		Title:       "Deployment succeeded",
		Description: fmt.Sprintf("%s %s is live", app.Name, version),
		Tone:        notification.ToneSuccess,
		Icon:        "rocket",
	})
}

// SetEnvVar sets one environment variable. Keys must be upper-case shell
// identifiers.
func (s *Service) SetEnvVar(ctx context.Context, id int64, k, v string) (managedapp.ManagedApp, error) {
	k = strings.TrimSpace(k)
	if err := managedapp.ValidateEnvKey(k); err != nil {
		return managedapp.ManagedApp{}, err
	}
	return s.store.ModifyApp(ctx, id, func(app *managedapp.ManagedApp) error {
		if app.EnvironmentVariables == nil {
			app.EnvironmentVariables = map[string]string{}
		}
		app.EnvironmentVariables[k] = v
		return nil
	})
}

// UnsetEnvVar removes one environment variable.
func (s *Service) UnsetEnvVar(ctx context.Context, id int64, k string) (managedapp.ManagedApp, error) {
	return s.store.ModifyApp(ctx, id, func(app *managedapp.ManagedApp) error {
		if _, ok := app.EnvironmentVariables[k]; !ok {
			return fmt.Errorf("%w: environment variable %s", storage.ErrNotFound, k)
		}
		delete(app.EnvironmentVariables, k)
		return nil
	})
}

// PushSample appends one CPU and memory sample to the app's windows.
func (s *Service) PushSample(ctx context.Context, id int64, cpu, memory float64) (managedapp.ManagedApp, error) {
	return s.store.PushResourceSample(ctx, id, cpu, memory)
}

// Flap pushes a Running or Error app into Deploying and schedules a revert
// to its original status after revertAfter. The revert only applies if the
// app is still Deploying by then. It reports whether the app flapped.
func (s *Service) Flap(ctx context.Context, id int64, revertAfter time.Duration) (bool, error) {
	current, err := s.store.GetApp(ctx, id)
	if err != nil {
		return false, err
	}
	original := current.Status
	if original != managedapp.StatusRunning && original != managedapp.StatusError {
		return false, nil
	}
	app, swapped, err := s.store.SwapAppStatus(ctx, id, original, managedapp.StatusDeploying)
	if err != nil || !swapped {
		return false, err
	}

	if original == managedapp.StatusError {
		s.notify(ctx, notification.Notification{
			Title:       "App recovering",
			Description: fmt.Sprintf("%s is attempting to recover", app.Name),
			Tone:        notification.ToneWarning,
			Icon:        "refresh",
		})
	}
	s.timers.After(key(id), revertAfter, func(ctx context.Context) {
		if _, _, err := s.store.SwapAppStatus(ctx, id, managedapp.StatusDeploying, original); err != nil {
			s.log.WithField("app_id", id).WithError(err).Warn("revert flap")
		}
	})
	s.log.WithField("app_id", id).WithField("from", original).Debug("app flapped")
	return true, nil
}

func (s *Service) notify(ctx context.Context, n notification.Notification) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Add(ctx, n); err != nil {
		s.log.WithError(err).Warn("add notification")
	}
}
