package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courseworks/registration-service/internal/events"
	"github.com/courseworks/registration-service/internal/models"
	"github.com/courseworks/registration-service/internal/repositories"
	"github.com/courseworks/registration-service/internal/utils"
)

// CreateCourseRequest carries the fields accepted when an admin creates a
// course. Construction goes through the course builder, which validates the
// time range and non-negative capacity/price.
type CreateCourseRequest struct {
	CourseName         string     `json:"course_name" validate:"required"`
	Instructors        []string   `json:"instructors"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	Price              *float64   `json:"price" validate:"omitempty,gte=0"`
	MaxCapacity        *int       `json:"max_capacity" validate:"omitempty,gte=0"`
	AvailabilityStatus *int       `json:"availability_status" validate:"omitempty,availability_status"`
	Location           string     `json:"location"`
	Keywords           []string   `json:"keywords"`
}

// UpdateCourseRequest is a partial patch: only present fields are applied,
// missing fields are no-ops.
type UpdateCourseRequest struct {
	CourseName         *string     `json:"course_name"`
	Instructors        *[]string   `json:"instructors"`
	StartTime          *time.Time  `json:"start_time"`
	EndTime            *time.Time  `json:"end_time"`
	AvailabilityStatus *int        `json:"availability_status"`
	MaxCapacity        *int        `json:"max_capacity"`
	Price              *float64    `json:"price"`
	Location           *string     `json:"location"`
	Keywords           *[]string   `json:"keywords"`
}

type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, caller *models.User) (*models.Course, error)
	List(ctx context.Context, filter string, caller *models.User) ([]*models.Course, error)
	GetByID(ctx context.Context, id string, caller *models.User) (*models.Course, error)
	Update(ctx context.Context, id string, req *UpdateCourseRequest, caller *models.User) (*models.Course, error)
	Delete(ctx context.Context, id string, caller *models.User) error
}

type courseService struct {
	repo      repositories.Repository
	resolver  *courseResolver
	policy    AuthorizationPolicy
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewCourseService(
	repo repositories.Repository,
	resolver *courseResolver,
	policy AuthorizationPolicy,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) CourseService {
	return &courseService{
		repo:      repo,
		resolver:  resolver,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, caller *models.User) (*models.Course, error) {
	if !s.policy.IsAdmin(caller) {
		return nil, NewPermissionError(callerID(caller), "", "course", "create", "admin role required")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	builder := models.NewCourseBuilder(req.CourseName).
		Instructors(req.Instructors...).
		Location(req.Location).
		Keywords(req.Keywords...)
	if req.StartTime != nil {
		builder.StartTime(*req.StartTime)
	}
	if req.EndTime != nil {
		builder.EndTime(*req.EndTime)
	}
	if req.Price != nil {
		builder.Price(*req.Price)
	}
	if req.MaxCapacity != nil {
		builder.MaxCapacity(*req.MaxCapacity)
	}
	if req.AvailabilityStatus != nil {
		status, err := models.ParseAvailabilityStatus(*req.AvailabilityStatus)
		if err != nil {
			return nil, fmt.Errorf("%w: %d", ErrInvalidAvailabilityStatus, *req.AvailabilityStatus)
		}
		builder.AvailabilityStatus(status)
	}

	course, err := builder.Build()
	if err != nil {
		return nil, NewValidationError("course", err.Error(), nil)
	}

	if _, err := s.repo.Courses().Create(ctx, []*models.Course{course}); err != nil {
		return nil, err
	}

	s.resolver.Invalidate(ctx, course.CourseName)
	s.publish(ctx, events.NewRegistrationEvent(events.EventCourseCreated, events.CourseEvent{
		CourseID:   course.ID,
		CourseName: course.CourseName,
	}))

	s.logger.Info("course created", "course_id", course.ID, "course_name", course.CourseName)
	return course, nil
}

// List is open to any authenticated caller. A non-empty filter is passed
// through to the store untouched; its grammar belongs to the store adapter.
func (s *courseService) List(ctx context.Context, filter string, caller *models.User) ([]*models.Course, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	if filter != "" {
		return s.repo.Courses().FetchByFilter(ctx, filter)
	}
	return s.repo.Courses().FetchByID(ctx, nil)
}

func (s *courseService) GetByID(ctx context.Context, id string, caller *models.User) (*models.Course, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	course, err := s.resolver.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *courseService) Update(ctx context.Context, id string, req *UpdateCourseRequest, caller *models.User) (*models.Course, error) {
	if !s.policy.IsAdmin(caller) {
		return nil, NewPermissionError(callerID(caller), id, "course", "update", "admin role required")
	}

	course, err := s.resolver.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	previousName := course.CourseName

	if err := applyCourseUpdates(course, req); err != nil {
		return nil, err
	}

	if err := s.repo.Courses().Update(ctx, []*models.Course{course}); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	s.resolver.Invalidate(ctx, previousName)
	if course.CourseName != previousName {
		s.resolver.Invalidate(ctx, course.CourseName)
	}
	s.publish(ctx, events.NewRegistrationEvent(events.EventCourseUpdated, events.CourseEvent{
		CourseID:   course.ID,
		CourseName: course.CourseName,
	}))

	return course, nil
}

// applyCourseUpdates merges present patch fields into the course. The
// availability status arrives as an integer code and is rejected when it
// falls outside the enum.
func applyCourseUpdates(course *models.Course, req *UpdateCourseRequest) error {
	if req.CourseName != nil {
		course.CourseName = *req.CourseName
	}
	if req.Instructors != nil {
		course.Instructors = *req.Instructors
	}
	if req.StartTime != nil {
		course.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		course.EndTime = *req.EndTime
	}
	if req.AvailabilityStatus != nil {
		status, err := models.ParseAvailabilityStatus(*req.AvailabilityStatus)
		if err != nil {
			return fmt.Errorf("%w: %d", ErrInvalidAvailabilityStatus, *req.AvailabilityStatus)
		}
		course.AvailabilityStatus = status
	}
	if req.MaxCapacity != nil {
		if *req.MaxCapacity < 0 {
			return NewValidationError("max_capacity", "must not be negative", *req.MaxCapacity)
		}
		course.MaxCapacity = *req.MaxCapacity
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return NewValidationError("price", "must not be negative", *req.Price)
		}
		course.Price = *req.Price
	}
	if req.Location != nil {
		course.Location = *req.Location
	}
	if req.Keywords != nil {
		course.Keywords = *req.Keywords
	}
	return nil
}

// Delete removes a course after detaching it from every student that
// references it. The detach pass works from a snapshot of matching students;
// a concurrent enroll landing after the snapshot can still produce a dangling
// reference. TODO: add a per-document version field compared-and-swapped on
// student updates to close that window.
func (s *courseService) Delete(ctx context.Context, id string, caller *models.User) error {
	if !s.policy.IsAdmin(caller) {
		return NewPermissionError(callerID(caller), id, "course", "delete", "admin role required")
	}

	course, err := s.resolver.ByID(ctx, id)
	if err != nil {
		return err
	}
	if course == nil {
		return ErrCourseNotFound
	}

	students, err := s.repo.Students().FetchByFilter(ctx, fmt.Sprintf(`{"course_refs": %q}`, id))
	if err != nil {
		return NewInternalError("find enrolled students", err)
	}

	// Best-effort detach: one failed student must not block the rest.
	detached := 0
	failed := 0
	var lastErr error
	for _, student := range students {
		if !student.RemoveCourse(id) {
			continue
		}
		student.Touch()
		if err := s.repo.Students().Update(ctx, []*models.Student{student}); err != nil {
			failed++
			lastErr = err
			s.logger.Error("cascade detach failed",
				"course_id", id,
				"student_id", student.ID,
				"error", err)
			continue
		}
		detached++
	}

	if failed > 0 {
		// Leaving the course in place keeps every remaining reference valid;
		// deleting it now would dangle the students we could not detach.
		return NewInternalError("detach enrolled students",
			fmt.Errorf("%d of %d students not detached: %w", failed, len(students), lastErr))
	}

	if err := s.repo.Courses().Remove(ctx, []string{id}); err != nil {
		// Zero dangling references at this point; the course document is
		// merely stale and needs operator follow-up.
		return NewInternalError("delete course after detach", err)
	}

	s.resolver.Invalidate(ctx, course.CourseName)
	s.publish(ctx, events.NewRegistrationEvent(events.EventCourseDeleted, events.CourseDeletedEvent{
		CourseID:         id,
		CourseName:       course.CourseName,
		DetachedStudents: detached,
	}))

	s.logger.Info("course deleted", "course_id", id, "detached_students", detached)
	return nil
}

// publish is best-effort: the flow has already persisted, so a publishing
// failure is logged rather than surfaced.
func (s *courseService) publish(ctx context.Context, event *events.RegistrationEvent) {
	if err := s.publisher.PublishRegistrationEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish registration event",
			"event_type", event.Type,
			"error", err)
	}
}

func callerID(caller *models.User) string {
	if caller == nil {
		return ""
	}
	return caller.ID
}
