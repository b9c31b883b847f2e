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

// Compile-time check to ensure ProgressStore implements the interface
var _ repositories.ProgressRepository = (*ProgressStore)(nil)

// ProgressStore is the in-memory progress ledger. The store mutex
// serializes every mutation, which gives the same per-record atomicity
// the MongoDB implementation gets from single-document updates.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[primitive.ObjectID]*models.Progress
	seq     map[primitive.ObjectID]int
	next    int
}

// NewProgressStore creates an empty ProgressStore
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		records: make(map[primitive.ObjectID]*models.Progress),
		seq:     make(map[primitive.ObjectID]int),
	}
}

// Create inserts a new progress record. The existence check and the
// insert share one critical section, matching the uniqueness the
// MongoDB implementation gets from its partial index.
func (s *ProgressStore) Create(ctx context.Context, progress *models.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.records {
		if p.UserID == progress.UserID && p.TaskID == progress.TaskID && !p.Status.Terminal() {
			return models.ErrDuplicateInstance
		}
	}

	progress.ID = primitive.NewObjectID()
	progress.CreatedAt = time.Now()
	progress.UpdatedAt = progress.CreatedAt
	s.next++
	s.seq[progress.ID] = s.next
	s.records[progress.ID] = cloneProgress(progress)
	return nil
}

// FindByID finds a progress record by ID
func (s *ProgressStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneProgress(p), nil
}

// FindOpenByUserAndTask finds the non-terminal instance for the pair
func (s *ProgressStore) FindOpenByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.records {
		if p.UserID == userID && p.TaskID == taskID && !p.Status.Terminal() {
			return cloneProgress(p), nil
		}
	}
	return nil, models.ErrNotFound
}

// FindLatestByUserAndTask finds the most recently created instance for
// the pair regardless of status
func (s *ProgressStore) FindLatestByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Progress
	for _, p := range s.records {
		if p.UserID != userID || p.TaskID != taskID {
			continue
		}
		if latest == nil || s.seq[p.ID] > s.seq[latest.ID] {
			latest = p
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return cloneProgress(latest), nil
}

// CountByUserAndTask counts every instance ever created for the pair
func (s *ProgressStore) CountByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.records {
		if p.UserID == userID && p.TaskID == taskID {
			n++
		}
	}
	return n, nil
}

// FindAll finds progress records matching the filter with pagination
func (s *ProgressStore) FindAll(ctx context.Context, filter repositories.ProgressFilter, page, limit int) ([]*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Progress
	for _, p := range s.records {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.TaskID != nil && p.TaskID != *filter.TaskID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		matched = append(matched, cloneProgress(p))
	}
	s.sortNewestFirst(matched)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []*models.Progress{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// FindByUser finds all progress records for a user
func (s *ProgressStore) FindByUser(ctx context.Context, userID string) ([]*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*models.Progress{}
	for _, p := range s.records {
		if p.UserID == userID {
			matched = append(matched, cloneProgress(p))
		}
	}
	s.sortNewestFirst(matched)
	return matched, nil
}

// IncrementProgress atomically advances the counter clamped to goal
func (s *ProgressStore) IncrementProgress(ctx context.Context, id primitive.ObjectID, quantity, goal int) (*models.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if p.Status != models.ProgressStatusInProgress {
		return nil, models.ErrWrongState
	}

	p.Progress += quantity
	if p.Progress >= goal {
		p.Progress = goal
		p.Status = models.ProgressStatusCompleted
	}
	p.UpdatedAt = time.Now()
	return cloneProgress(p), nil
}

// TransitionStatus compare-and-swaps the lifecycle status
func (s *ProgressStore) TransitionStatus(ctx context.Context, id primitive.ObjectID, from []models.ProgressStatus, to models.ProgressStatus) (*models.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !statusIn(p.Status, from) {
		return nil, models.ErrWrongState
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	return cloneProgress(p), nil
}

// Reset performs the administrator restart
func (s *ProgressStore) Reset(ctx context.Context, id primitive.ObjectID, from []models.ProgressStatus) (*models.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !statusIn(p.Status, from) {
		return nil, models.ErrWrongState
	}
	p.Progress = 0
	p.Status = models.ProgressStatusInProgress
	p.ClaimedAt = nil
	p.Attempts++
	p.UpdatedAt = time.Now()
	return cloneProgress(p), nil
}

// RecordAttempt bumps the claim-attempt counter
func (s *ProgressStore) RecordAttempt(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Attempts++
	return nil
}

// ExpireByTask bulk-expires instances of a task
func (s *ProgressStore) ExpireByTask(ctx context.Context, taskID primitive.ObjectID, from []models.ProgressStatus, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, p := range s.records {
		if p.TaskID == taskID && statusIn(p.Status, from) {
			p.Status = models.ProgressStatusExpired
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// HasOpenByTask reports whether live instances still reference the task
func (s *ProgressStore) HasOpenByTask(ctx context.Context, taskID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.records {
		if p.TaskID == taskID && !p.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a progress record
func (s *ProgressStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.records, id)
	delete(s.seq, id)
	return nil
}

// DeleteByTask removes every progress record referencing the task
func (s *ProgressStore) DeleteByTask(ctx context.Context, taskID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, p := range s.records {
		if p.TaskID == taskID {
			delete(s.records, id)
			delete(s.seq, id)
			n++
		}
	}
	return n, nil
}

func (s *ProgressStore) sortNewestFirst(records []*models.Progress) {
	sort.Slice(records, func(i, j int) bool {
		return s.seq[records[i].ID] > s.seq[records[j].ID]
	})
}
