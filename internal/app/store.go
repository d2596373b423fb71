package app

import (
	"context"
	"fmt"

	"github.com/evanschultz/todoterm/internal/domain"
)

// Store is a task list bound to the repository it loads from and saves to.
type Store struct {
	*domain.TaskList
	repo Repository
}

// NewStore constructs an empty store backed by repo.
func NewStore(repo Repository) *Store {
	return &Store{
		TaskList: domain.NewTaskList(),
		repo:     repo,
	}
}

// Load replaces both lists with the persisted snapshot. On failure the
// in-memory lists are left as they were.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("%w: load tasks: %w", ErrPersistence, ErrNoRepository)
	}
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load tasks: %w", ErrPersistence, err)
	}
	s.Replace(snap)
	return nil
}

// Save persists the current lists.
func (s *Store) Save(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("%w: save tasks: %w", ErrPersistence, ErrNoRepository)
	}
	if err := s.repo.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("%w: save tasks: %w", ErrPersistence, err)
	}
	return nil
}
