package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a registration event
type EventType string

const (
	EventStudentRegistered EventType = "student.registered"
	EventStudentEnrolled   EventType = "student.enrolled"
	EventStudentUnenrolled EventType = "student.unenrolled"
	EventStudentDeleted    EventType = "student.deleted"
	EventCourseCreated     EventType = "course.created"
	EventCourseUpdated     EventType = "course.updated"
	EventCourseDeleted     EventType = "course.deleted"
)

// RegistrationEvent is the envelope published for every registration change
type RegistrationEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewRegistrationEvent builds an event envelope with a fresh id and timestamp
func NewRegistrationEvent(eventType EventType, data interface{}) *RegistrationEvent {
	return &RegistrationEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "registration-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// StudentRegisteredEvent is emitted after a successful signup
type StudentRegisteredEvent struct {
	StudentID string   `json:"student_id"`
	UserID    string   `json:"user_id"`
	CourseIDs []string `json:"course_ids"`
}

// EnrollmentEvent is emitted when a course reference is added or removed
type EnrollmentEvent struct {
	StudentID  string `json:"student_id"`
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
}

// CourseEvent is emitted on course create/update
type CourseEvent struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
}

// CourseDeletedEvent carries the cascade-detach outcome alongside the delete
type CourseDeletedEvent struct {
	CourseID         string `json:"course_id"`
	CourseName       string `json:"course_name"`
	DetachedStudents int    `json:"detached_students"`
}
