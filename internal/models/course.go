package models

import (
	"errors"
	"fmt"
	"time"
)

// AvailabilityStatus is stored as an integer code on the course document.
type AvailabilityStatus int

const (
	StatusAvailable AvailabilityStatus = 1
	StatusFull      AvailabilityStatus = 2
	StatusCancelled AvailabilityStatus = 3
)

// ParseAvailabilityStatus converts an integer code to a status, rejecting
// anything outside the closed set.
func ParseAvailabilityStatus(code int) (AvailabilityStatus, error) {
	switch s := AvailabilityStatus(code); s {
	case StatusAvailable, StatusFull, StatusCancelled:
		return s, nil
	default:
		return 0, fmt.Errorf("invalid availability status code: %d", code)
	}
}

func (s AvailabilityStatus) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusFull:
		return "FULL"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("AvailabilityStatus(%d)", int(s))
	}
}

// Course is the offering record. The course name is a lookup key for
// enroll/unenroll-by-name; its uniqueness is advisory, not store-enforced.
type Course struct {
	ID                 string             `json:"id" bson:"_id,omitempty"`
	CourseName         string             `json:"course_name" bson:"course_name"`
	Instructors        []string           `json:"instructors" bson:"instructors"`
	StartTime          time.Time          `json:"start_time" bson:"start_time"`
	EndTime            time.Time          `json:"end_time" bson:"end_time"`
	Price              float64            `json:"price" bson:"price"`
	MaxCapacity        int                `json:"max_capacity" bson:"max_capacity"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status" bson:"availability_status"`
	Location           string             `json:"location" bson:"location"`
	Keywords           []string           `json:"keywords" bson:"keywords"`
}

func (c *Course) GetID() string   { return c.ID }
func (c *Course) SetID(id string) { c.ID = id }

// CourseBuilder stages construction of a Course. The course name is required
// up front; time range and non-negative capacity/price are checked in Build.
type CourseBuilder struct {
	course Course
}

func NewCourseBuilder(courseName string) *CourseBuilder {
	return &CourseBuilder{
		course: Course{
			CourseName:         courseName,
			AvailabilityStatus: StatusAvailable,
		},
	}
}

func (b *CourseBuilder) Instructors(instructors ...string) *CourseBuilder {
	b.course.Instructors = instructors
	return b
}

func (b *CourseBuilder) StartTime(t time.Time) *CourseBuilder {
	b.course.StartTime = t
	return b
}

func (b *CourseBuilder) EndTime(t time.Time) *CourseBuilder {
	b.course.EndTime = t
	return b
}

func (b *CourseBuilder) Price(price float64) *CourseBuilder {
	b.course.Price = price
	return b
}

func (b *CourseBuilder) MaxCapacity(capacity int) *CourseBuilder {
	b.course.MaxCapacity = capacity
	return b
}

func (b *CourseBuilder) AvailabilityStatus(status AvailabilityStatus) *CourseBuilder {
	b.course.AvailabilityStatus = status
	return b
}

func (b *CourseBuilder) Location(location string) *CourseBuilder {
	b.course.Location = location
	return b
}

func (b *CourseBuilder) Keywords(keywords ...string) *CourseBuilder {
	b.course.Keywords = keywords
	return b
}

// Build validates the staged fields and returns the course.
func (b *CourseBuilder) Build() (*Course, error) {
	if b.course.CourseName == "" {
		return nil, errors.New("course name is required")
	}
	if !b.course.StartTime.IsZero() && !b.course.EndTime.IsZero() && !b.course.EndTime.After(b.course.StartTime) {
		return nil, errors.New("course end time must be after start time")
	}
	if b.course.MaxCapacity < 0 {
		return nil, errors.New("course max capacity must not be negative")
	}
	if b.course.Price < 0 {
		return nil, errors.New("course price must not be negative")
	}
	if _, err := ParseAvailabilityStatus(int(b.course.AvailabilityStatus)); err != nil {
		return nil, err
	}
	c := b.course
	return &c, nil
}
