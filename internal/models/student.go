package models

import (
	"slices"
	"time"
)

// Student is the enrollment record. It references exactly one User by id and
// zero or more Courses by id; a Student without a user reference is invalid.
// The store cannot enforce either relation, so the services layer keeps both
// sides consistent.
type Student struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	UserID      string    `json:"user_id" bson:"user_id"`
	CourseRefs  []string  `json:"course_refs" bson:"course_refs"`
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
}

func (s *Student) GetID() string   { return s.ID }
func (s *Student) SetID(id string) { s.ID = id }

// Touch refreshes the last-updated timestamp. Called before every persisted
// mutation.
func (s *Student) Touch() {
	s.LastUpdated = time.Now().UTC()
}

// HasCourse reports whether the course id is already referenced.
func (s *Student) HasCourse(courseID string) bool {
	return slices.Contains(s.CourseRefs, courseID)
}

// AddCourse appends the course reference, keeping the list duplicate-free.
// Returns false when the course was already present.
func (s *Student) AddCourse(courseID string) bool {
	if s.HasCourse(courseID) {
		return false
	}
	s.CourseRefs = append(s.CourseRefs, courseID)
	return true
}

// RemoveCourse drops the course reference, preserving the order of the rest.
// Returns false when the course was not present.
func (s *Student) RemoveCourse(courseID string) bool {
	i := slices.Index(s.CourseRefs, courseID)
	if i < 0 {
		return false
	}
	s.CourseRefs = slices.Delete(s.CourseRefs, i, i+1)
	return true
}
