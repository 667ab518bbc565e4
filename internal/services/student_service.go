package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courseworks/registration-service/internal/events"
	"github.com/courseworks/registration-service/internal/models"
	"github.com/courseworks/registration-service/internal/repositories"
	"github.com/courseworks/registration-service/internal/utils"
)

// UserDraft is the embedded identity record of a signup request.
type UserDraft struct {
	Username  string          `json:"username" validate:"required"`
	Email     string          `json:"email" validate:"required,email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Token     string          `json:"token"`
	Role      models.UserRole `json:"role" validate:"omitempty,user_role"`
}

// CreateStudentRequest is the self-service signup payload. Course names that
// resolve to no course are silently dropped; a typo must not block signup.
type CreateStudentRequest struct {
	User        *UserDraft `json:"user" validate:"required"`
	CourseNames []string   `json:"course_names"`
}

// UserPatch carries the optional user sub-fields of a student update. A nil
// field is a no-op; a present field is applied.
type UserPatch struct {
	Username  *string          `json:"username"`
	Email     *string          `json:"email"`
	Token     *string          `json:"token"`
	FirstName *string          `json:"first_name"`
	LastName  *string          `json:"last_name"`
	Role      *models.UserRole `json:"role"`
}

// EnrollmentDirective adds or removes one course reference. Each directive
// resolves its course by id first, then by name. Unenroll is evaluated after
// enroll, so when both name the same course the unenroll wins.
type EnrollmentDirective struct {
	EnrollID           *string `json:"enroll_id"`
	EnrollCourseName   *string `json:"enroll_course_name"`
	UnenrollID         *string `json:"unenroll_id"`
	UnenrollCourseName *string `json:"unenroll_course_name"`
}

// UpdateStudentRequest is a partial patch over the student and its user.
type UpdateStudentRequest struct {
	User   *UserPatch           `json:"user"`
	Course *EnrollmentDirective `json:"course_ref"`
}

// StudentResponse joins the student document with its resolved user.
type StudentResponse struct {
	ID          string       `json:"id"`
	User        *models.User `json:"user"`
	CourseRefs  []string     `json:"course_refs"`
	LastUpdated time.Time    `json:"last_updated"`
}

type StudentService interface {
	// Create handles signup; the caller may be nil since anyone can sign up.
	Create(ctx context.Context, req *CreateStudentRequest, caller *models.User) (*StudentResponse, error)
	List(ctx context.Context, caller *models.User) ([]*StudentResponse, error)
	GetByID(ctx context.Context, id string, caller *models.User) (*StudentResponse, error)
	Update(ctx context.Context, id string, req *UpdateStudentRequest, caller *models.User) (*StudentResponse, error)
	Delete(ctx context.Context, id string, caller *models.User) error
}

type studentService struct {
	repo      repositories.Repository
	resolver  *courseResolver
	policy    AuthorizationPolicy
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewStudentService(
	repo repositories.Repository,
	resolver *courseResolver,
	policy AuthorizationPolicy,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) StudentService {
	return &studentService{
		repo:      repo,
		resolver:  resolver,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// Create persists the embedded user first so a student never references a
// non-existent user. The two writes are not transactional: a failed student
// persist leaves an orphan user which is surfaced, not rolled back.
func (s *studentService) Create(ctx context.Context, req *CreateStudentRequest, caller *models.User) (*StudentResponse, error) {
	if req == nil || req.User == nil {
		return nil, ErrStudentMissingUser
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  req.User.Username,
		Email:     req.User.Email,
		FirstName: req.User.FirstName,
		LastName:  req.User.LastName,
		Token:     req.User.Token,
		Role:      req.User.Role,
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	userIDs, err := s.repo.Users().Create(ctx, []*models.User{user})
	if err != nil {
		return nil, err
	}

	courseRefs, err := s.resolveCourseNames(ctx, req.CourseNames)
	if err != nil {
		return nil, NewInternalError("resolve course names", err)
	}

	student := &models.Student{
		UserID:     userIDs[0],
		CourseRefs: courseRefs,
	}
	student.Touch()

	if _, err := s.repo.Students().Create(ctx, []*models.Student{student}); err != nil {
		// The user document is already persisted; report which step failed
		// instead of attempting a compensating delete.
		return nil, NewInternalError(fmt.Sprintf("persist student (user %s already created)", userIDs[0]), err)
	}

	s.publish(ctx, events.NewRegistrationEvent(events.EventStudentRegistered, events.StudentRegisteredEvent{
		StudentID: student.ID,
		UserID:    user.ID,
		CourseIDs: courseRefs,
	}))

	s.logger.Info("student registered", "student_id", student.ID, "user_id", user.ID)
	return &StudentResponse{
		ID:          student.ID,
		User:        user,
		CourseRefs:  student.CourseRefs,
		LastUpdated: student.LastUpdated,
	}, nil
}

// resolveCourseNames maps requested course names to ids, dropping names with
// no match and duplicate resolutions.
func (s *studentService) resolveCourseNames(ctx context.Context, names []string) ([]string, error) {
	var refs []string
	for _, name := range names {
		course, err := s.resolver.ByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if course == nil {
			s.logger.Warn("requested course not found, dropping from signup", "course_name", name)
			continue
		}
		duplicate := false
		for _, ref := range refs {
			if ref == course.ID {
				duplicate = true
				break
			}
		}
		if !duplicate {
			refs = append(refs, course.ID)
		}
	}
	return refs, nil
}

// List scopes the result by role: admins see every student, everyone else
// sees at most the single student bound to their own user.
func (s *studentService) List(ctx context.Context, caller *models.User) ([]*StudentResponse, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}

	var students []*models.Student
	var err error
	if s.policy.IsAdmin(caller) {
		students, err = s.repo.Students().FetchByID(ctx, nil)
	} else {
		students, err = s.repo.Students().FetchByFilter(ctx, fmt.Sprintf(`{"user_id": %q}`, caller.ID))
	}
	if err != nil {
		return nil, err
	}

	responses := make([]*StudentResponse, 0, len(students))
	for _, student := range students {
		resp, err := s.buildResponse(ctx, student)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *studentService) GetByID(ctx context.Context, id string, caller *models.User) (*StudentResponse, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	student, err := s.fetchStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, student)
}

// Update applies only the present fields of the patch. The user document is
// persisted before the student so the student never outlives a valid user.
func (s *studentService) Update(ctx context.Context, id string, req *UpdateStudentRequest, caller *models.User) (*StudentResponse, error) {
	student, err := s.fetchStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanMutateStudent(caller, student) {
		return nil, NewPermissionError(callerID(caller), id, "student", "update", "caller does not own this student")
	}

	user, err := s.fetchUser(ctx, student.UserID)
	if err != nil {
		return nil, err
	}

	if req.User != nil {
		user, err = s.applyUserPatch(ctx, student, user, req.User)
		if err != nil {
			return nil, err
		}
	}

	var pending []*events.RegistrationEvent
	if req.Course != nil {
		pending, err = s.applyEnrollmentDirective(ctx, student, req.Course)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.Users().Update(ctx, []*models.User{user}); err != nil {
		return nil, NewInternalError("persist user", err)
	}
	student.Touch()
	if err := s.repo.Students().Update(ctx, []*models.Student{student}); err != nil {
		return nil, NewInternalError("persist student", err)
	}

	for _, event := range pending {
		s.publish(ctx, event)
	}

	return &StudentResponse{
		ID:          student.ID,
		User:        user,
		CourseRefs:  student.CourseRefs,
		LastUpdated: student.LastUpdated,
	}, nil
}

// applyUserPatch merges the present user sub-fields. A username rebinds the
// student to the existing user with that name when one exists; the remaining
// fields then apply to the bound user.
func (s *studentService) applyUserPatch(ctx context.Context, student *models.Student, user *models.User, patch *UserPatch) (*models.User, error) {
	if patch.Username != nil {
		matches, err := s.repo.Users().FetchByFilter(ctx, fmt.Sprintf(`{"username": %q}`, *patch.Username))
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			user = matches[0]
			student.UserID = user.ID
		}
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Token != nil {
		user.Token = *patch.Token
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, *patch.Role)
		}
		user.Role = *patch.Role
	}
	return user, nil
}

// applyEnrollmentDirective evaluates enroll before unenroll in document
// order: a directive pair naming the same course ends up unenrolled. Events
// for the applied changes are returned, not published; they must not go out
// until the mutated student is persisted.
func (s *studentService) applyEnrollmentDirective(ctx context.Context, student *models.Student, directive *EnrollmentDirective) ([]*events.RegistrationEvent, error) {
	var pending []*events.RegistrationEvent

	course, err := s.resolver.Resolve(ctx, directive.EnrollID, directive.EnrollCourseName)
	if err != nil {
		return nil, err
	}
	if course != nil && student.AddCourse(course.ID) {
		pending = append(pending, events.NewRegistrationEvent(events.EventStudentEnrolled, events.EnrollmentEvent{
			StudentID:  student.ID,
			CourseID:   course.ID,
			CourseName: course.CourseName,
		}))
	}

	course, err = s.resolver.Resolve(ctx, directive.UnenrollID, directive.UnenrollCourseName)
	if err != nil {
		return nil, err
	}
	if course != nil && student.RemoveCourse(course.ID) {
		pending = append(pending, events.NewRegistrationEvent(events.EventStudentUnenrolled, events.EnrollmentEvent{
			StudentID:  student.ID,
			CourseID:   course.ID,
			CourseName: course.CourseName,
		}))
	}
	return pending, nil
}

// Delete is admin-only. The underlying remove is idempotent, but an absent
// id is still reported as not found so deletion is confirmed, never assumed.
func (s *studentService) Delete(ctx context.Context, id string, caller *models.User) error {
	if !s.policy.IsAdmin(caller) {
		return NewPermissionError(callerID(caller), id, "student", "delete", "admin role required")
	}

	student, err := s.fetchStudent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Students().Remove(ctx, []string{id}); err != nil {
		return err
	}

	s.publish(ctx, events.NewRegistrationEvent(events.EventStudentDeleted, events.StudentRegisteredEvent{
		StudentID: student.ID,
		UserID:    student.UserID,
		CourseIDs: student.CourseRefs,
	}))

	s.logger.Info("student deleted", "student_id", id)
	return nil
}

func (s *studentService) fetchStudent(ctx context.Context, id string) (*models.Student, error) {
	students, err := s.repo.Students().FetchByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, ErrStudentNotFound
	}
	return students[0], nil
}

func (s *studentService) fetchUser(ctx context.Context, id string) (*models.User, error) {
	users, err := s.repo.Users().FetchByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return users[0], nil
}

func (s *studentService) buildResponse(ctx context.Context, student *models.Student) (*StudentResponse, error) {
	user, err := s.fetchUser(ctx, student.UserID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	return &StudentResponse{
		ID:          student.ID,
		User:        user,
		CourseRefs:  student.CourseRefs,
		LastUpdated: student.LastUpdated,
	}, nil
}

func (s *studentService) publish(ctx context.Context, event *events.RegistrationEvent) {
	if err := s.publisher.PublishRegistrationEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish registration event",
			"event_type", event.Type,
			"error", err)
	}
}
