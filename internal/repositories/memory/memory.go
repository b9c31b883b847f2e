// Package memory provides in-memory implementations of the repository
// interfaces. They back the service tests and local development without
// a MongoDB instance, and uphold the same atomicity guarantees via
// store-level mutexes.
package memory

import (
	"time"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
)

func cloneTask(t *models.Task) *models.Task {
	if t == nil {
		return nil
	}
	c := *t
	c.StartAt = cloneTime(t.StartAt)
	c.EndAt = cloneTime(t.EndAt)
	if t.MaxPerUser != nil {
		v := *t.MaxPerUser
		c.MaxPerUser = &v
	}
	if t.TotalBudget != nil {
		v := *t.TotalBudget
		c.TotalBudget = &v
	}
	return &c
}

func cloneProgress(p *models.Progress) *models.Progress {
	if p == nil {
		return nil
	}
	c := *p
	c.ClaimedAt = cloneTime(p.ClaimedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func statusIn(status models.ProgressStatus, set []models.ProgressStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
