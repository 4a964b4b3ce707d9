// Package models holds the read shapes of the community records this
// subsystem aggregates and searches. The records are owned by the CRUD
// layer; everything here is consumed read-only.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus tracks a task through its lifecycle.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// User is a registered community member with an optional position.
type User struct {
	ID        uuid.UUID
	Names     string
	Email     string
	Phone     string
	Role      string
	CellID    *uuid.UUID
	VillageID *uuid.UUID
	IsiboID   *uuid.UUID
	HouseID   *uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Activity is a community undertaking organized at village level.
type Activity struct {
	ID          uuid.UUID
	Title       string
	Description string
	VillageID   uuid.UUID
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Task is a unit of work within an activity, assigned to one isibo.
type Task struct {
	ID                   uuid.UUID
	Title                string
	Description          string
	ActivityID           uuid.UUID
	IsiboID              uuid.UUID
	Status               TaskStatus
	EstimatedCost        float64
	ActualCost           float64
	ExpectedParticipants int
	ActualParticipants   int
	CreatedAt            time.Time
	UpdatedAt            *time.Time
	CompletedAt          *time.Time
}

// Report captures the outcome of a task: attendance, narrative fields, and
// the actual figures against the task's estimates.
type Report struct {
	ID                   uuid.UUID
	ActivityID           uuid.UUID
	TaskID               uuid.UUID
	IsiboID              uuid.UUID
	VillageID            uuid.UUID
	Attendance           int
	Comment              string
	Suggestions          string
	ChallengesFaced      string
	EvidenceURLs         []string
	EstimatedCost        float64
	ActualCost           float64
	ExpectedParticipants int
	ActualParticipants   int
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// HasEvidence reports whether the report carries at least one evidence URL.
func (r Report) HasEvidence() bool {
	return len(r.EvidenceURLs) > 0
}

// VillagePerformance is a per-village activity/task rollup used by the
// location-performance and engagement views.
type VillagePerformance struct {
	VillageID      uuid.UUID
	Activities     int
	TotalTasks     int
	CompletedTasks int
}
