package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure TaskStore implements the interface
var _ repositories.TaskRepository = (*TaskStore)(nil)

// TaskStore is the in-memory task catalog.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[primitive.ObjectID]*models.Task
	seq   map[primitive.ObjectID]int
	next  int
}

// NewTaskStore creates an empty TaskStore
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[primitive.ObjectID]*models.Task),
		seq:   make(map[primitive.ObjectID]int),
	}
}

// Create inserts a new task definition
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	s.next++
	s.seq[task.ID] = s.next
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// FindByID finds a task by ID
func (s *TaskStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneTask(task), nil
}

// FindAll finds tasks matching the filter with pagination
func (s *TaskStore) FindAll(ctx context.Context, filter repositories.TaskFilter, page, limit int) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Task
	for _, task := range s.tasks {
		if filter.Type != nil && task.Type != *filter.Type {
			continue
		}
		if filter.Active != nil && task.Active != *filter.Active {
			continue
		}
		matched = append(matched, cloneTask(task))
	}
	s.sortNewestFirst(matched)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return paginateTasks(matched, page, limit), nil
}

// FindActiveByType finds all active tasks rewarding the given behavior type
func (s *TaskStore) FindActiveByType(ctx context.Context, taskType models.TaskType) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*models.Task{}
	for _, task := range s.tasks {
		if task.Active && task.Type == taskType {
			matched = append(matched, cloneTask(task))
		}
	}
	s.sortNewestFirst(matched)
	return matched, nil
}

// FindEnded finds tasks whose window closed before now
func (s *TaskStore) FindEnded(ctx context.Context, now time.Time) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*models.Task{}
	for _, task := range s.tasks {
		if task.EndAt != nil && !now.Before(*task.EndAt) {
			matched = append(matched, cloneTask(task))
		}
	}
	s.sortNewestFirst(matched)
	return matched, nil
}

// Update replaces a task definition, preserving the running debit total
func (s *TaskStore) Update(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		return models.ErrNotFound
	}
	task.UpdatedAt = time.Now()
	task.CreatedAt = existing.CreatedAt
	task.BudgetDebited = existing.BudgetDebited
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// SetActive flips the active gate on a task
func (s *TaskStore) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	task.Active = active
	task.UpdatedAt = time.Now()
	return nil
}

// Delete removes a task definition
func (s *TaskStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.seq, id)
	return nil
}

// Count counts all tasks
func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tasks)), nil
}

func (s *TaskStore) sortNewestFirst(tasks []*models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return s.seq[tasks[i].ID] > s.seq[tasks[j].ID]
	})
}

func paginateTasks(tasks []*models.Task, page, limit int) []*models.Task {
	start := (page - 1) * limit
	if start >= len(tasks) {
		return []*models.Task{}
	}
	end := start + limit
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end]
}
