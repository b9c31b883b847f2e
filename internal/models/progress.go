package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressStatus is the lifecycle state of a progress record.
//
//	locked      -> in_progress           (task became eligible)
//	in_progress -> completed             (counter reached the goal)
//	in_progress -> expired               (window closed, goal unmet)
//	completed   -> claimed               (successful claim, terminal)
//	completed   -> expired               (window closed before claim)
//	any non-terminal -> in_progress      (administrator restart)
type ProgressStatus string

const (
	ProgressStatusLocked     ProgressStatus = "locked"
	ProgressStatusInProgress ProgressStatus = "in_progress"
	ProgressStatusCompleted  ProgressStatus = "completed"
	ProgressStatusClaimed    ProgressStatus = "claimed"
	ProgressStatusExpired    ProgressStatus = "expired"
)

// Valid reports whether s is a known progress status.
func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressStatusLocked, ProgressStatusInProgress, ProgressStatusCompleted,
		ProgressStatusClaimed, ProgressStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether s is an end state. Terminal records never
// advance again except through an administrator restart.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressStatusClaimed || s == ProgressStatusExpired
}

// NonTerminalStatuses lists the statuses a live progress record can hold.
func NonTerminalStatuses() []ProgressStatus {
	return []ProgressStatus{ProgressStatusLocked, ProgressStatusInProgress, ProgressStatusCompleted}
}

// Progress tracks one user's advancement toward one task's goal.
// The counter is clamped to the task's goalCount and only ever
// decreases on an administrator restart.
type Progress struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"userId" json:"userId"`
	TaskID    primitive.ObjectID `bson:"taskId" json:"taskId"`
	Progress  int                `bson:"progress" json:"progress"`
	Status    ProgressStatus     `bson:"status" json:"status"`
	ClaimedAt *time.Time         `bson:"claimedAt,omitempty" json:"claimedAt,omitempty"`
	Attempts  int                `bson:"attempts" json:"attempts"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
