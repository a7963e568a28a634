package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/sarkhq/console/internal/app/domain/task"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/pkg/logger"
)

// Service manages to-do items.
type Service struct {
	store storage.TaskStore
	log   *logger.Logger
}

// New constructs a task service.
func New(store storage.TaskStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &Service{store: store, log: log}
}

// Add creates an open task.
func (s *Service) Add(ctx context.Context, in task.Input) (task.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return task.Task{}, fmt.Errorf("title is required")
	}
	if in.DueDate.IsZero() {
		return task.Task{}, fmt.Errorf("due date is required")
	}
	priority, err := task.ParsePriority(string(in.Priority))
	if err != nil {
		return task.Task{}, err
	}
	created, err := s.store.CreateTask(ctx, task.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
		Priority:    priority,
	})
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", created.ID).Info("task added")
	return created, nil
}

// Toggle flips the completed flag.
func (s *Service) Toggle(ctx context.Context, id int64) (task.Task, error) {
	return s.store.ToggleTask(ctx, id)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteTask(ctx, id)
}

// List returns all tasks.
func (s *Service) List(ctx context.Context) ([]task.Task, error) {
	return s.store.ListTasks(ctx)
}
