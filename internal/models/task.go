package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskType identifies the behavior a task rewards. The set is closed:
// event routing switches on it, so adding a behavior means adding a
// constant here.
type TaskType string

const (
	TaskTypeRide     TaskType = "ride"
	TaskTypeDelivery TaskType = "delivery"
	TaskTypeStreak   TaskType = "streak"
	TaskTypeReferral TaskType = "referral"
	TaskTypeCustom   TaskType = "custom"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeRide, TaskTypeDelivery, TaskTypeStreak, TaskTypeReferral, TaskTypeCustom:
		return true
	}
	return false
}

// Task represents an administrator-defined reward campaign.
// Goal and reward are always read live from this record; progress
// instances do not snapshot them at enrollment.
type Task struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Type          TaskType           `bson:"type" json:"type"`
	GoalCount     int                `bson:"goalCount" json:"goalCount"`
	RewardAmount  float64            `bson:"rewardAmount" json:"rewardAmount"`
	Active        bool               `bson:"active" json:"active"`
	StartAt       *time.Time         `bson:"startAt,omitempty" json:"startAt,omitempty"`
	EndAt         *time.Time         `bson:"endAt,omitempty" json:"endAt,omitempty"`
	MaxPerUser    *int               `bson:"maxPerUser,omitempty" json:"maxPerUser,omitempty"`
	TotalBudget   *float64           `bson:"totalBudget,omitempty" json:"totalBudget,omitempty"`
	BudgetDebited float64            `bson:"budgetDebited" json:"budgetDebited"`
	Terms         string             `bson:"terms,omitempty" json:"terms,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the invariants of a task definition. All violations
// are reported as ErrInvalidDefinition.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDefinition)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown task type %q", ErrInvalidDefinition, t.Type)
	}
	if t.GoalCount < 1 {
		return fmt.Errorf("%w: goalCount must be at least 1, got %d", ErrInvalidDefinition, t.GoalCount)
	}
	if t.RewardAmount < 0 {
		return fmt.Errorf("%w: rewardAmount must not be negative, got %v", ErrInvalidDefinition, t.RewardAmount)
	}
	if t.MaxPerUser != nil && *t.MaxPerUser < 1 {
		return fmt.Errorf("%w: maxPerUser must be at least 1, got %d", ErrInvalidDefinition, *t.MaxPerUser)
	}
	if t.TotalBudget != nil && *t.TotalBudget < 0 {
		return fmt.Errorf("%w: totalBudget must not be negative, got %v", ErrInvalidDefinition, *t.TotalBudget)
	}
	if t.StartAt != nil && t.EndAt != nil && !t.StartAt.Before(*t.EndAt) {
		return fmt.Errorf("%w: startAt must be before endAt", ErrInvalidDefinition)
	}
	return nil
}

// WindowContains reports whether ts falls inside the task's eligibility
// window. A nil bound is unbounded on that side.
func (t *Task) WindowContains(ts time.Time) bool {
	if t.StartAt != nil && ts.Before(*t.StartAt) {
		return false
	}
	if t.EndAt != nil && !ts.Before(*t.EndAt) {
		return false
	}
	return true
}

// WindowClosed reports whether the task's window has already ended at now.
func (t *Task) WindowClosed(now time.Time) bool {
	return t.EndAt != nil && !now.Before(*t.EndAt)
}

// WindowOpened reports whether the task's window has started at now.
func (t *Task) WindowOpened(now time.Time) bool {
	return t.StartAt == nil || !now.Before(*t.StartAt)
}

// RemainingBudget returns how much of the total budget is still
// undisbursed. The second return value is false when the budget is
// unlimited.
func (t *Task) RemainingBudget() (float64, bool) {
	if t.TotalBudget == nil {
		return 0, false
	}
	return *t.TotalBudget - t.BudgetDebited, true
}
