package models

import (
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ProfessorID uuid.UUID `json:"professor_id"`
}

// Session lifecycle: scheduled -> active -> ended -> released. Questions
// are only accepted while active; students see the class report once
// released.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	CourseID  uuid.UUID  `json:"course_id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusActive    = "active"
	SessionStatusEnded     = "ended"
	SessionStatusReleased  = "released"
)

// SessionDocument links a document into a session. Only active links are
// eligible for retrieval; inactive or unlinked documents never reach an
// answer.
type SessionDocument struct {
	SessionID  uuid.UUID `json:"session_id"`
	DocumentID uuid.UUID `json:"document_id"`
	IsActive   bool      `json:"is_active"`
}
