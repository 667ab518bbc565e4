package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseworks/registration-service/internal/cache"
	"github.com/courseworks/registration-service/internal/events"
	"github.com/courseworks/registration-service/internal/models"
	"github.com/courseworks/registration-service/internal/repositories/memory"
	"github.com/courseworks/registration-service/internal/utils"
)

// testEnv wires the services against the in-memory stores so tests can reach
// into the repository and the mock publisher directly.
type testEnv struct {
	repo      *memory.Repository
	publisher *events.MockEventPublisher
	students  StudentService
	courses   CourseService
	roster    RosterExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := memory.NewRepository()
	publisher := events.NewMockEventPublisher(logger)
	validator := utils.NewValidator()

	policy := NewAuthorizationPolicy()
	resolver := newCourseResolver(repo.Courses(), cache.NewNoopCache(), logger)

	return &testEnv{
		repo:      repo,
		publisher: publisher,
		students:  NewStudentService(repo, resolver, policy, publisher, logger, validator),
		courses:   NewCourseService(repo, resolver, policy, publisher, logger, validator),
		roster:    NewRosterExportService(repo, resolver, policy, logger),
	}
}

func (e *testEnv) admin(t *testing.T) *models.User {
	t.Helper()
	admin := &models.User{
		Username: "registrar",
		Email:    "registrar@example.com",
		Role:     models.RoleAdmin,
	}
	_, err := e.repo.Users().Create(context.Background(), []*models.User{admin})
	require.NoError(t, err)
	return admin
}

// seedCourse persists a course directly, bypassing the admin-only service
// path, so student tests can set up fixtures without a caller.
func (e *testEnv) seedCourse(t *testing.T, name string, capacity int, price float64) *models.Course {
	t.Helper()
	course, err := models.NewCourseBuilder(name).
		MaxCapacity(capacity).
		Price(price).
		Build()
	require.NoError(t, err)
	_, err = e.repo.Courses().Create(context.Background(), []*models.Course{course})
	require.NoError(t, err)
	return course
}

func strPtr(s string) *string { return &s }

func TestStudentService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("signup with referenced course", func(t *testing.T) {
		env := newTestEnv(t)
		course := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		resp, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{
				Username: "jdoe",
				Email:    "jdoe@example.com",
			},
			CourseNames: []string{"Cloud Technologies"},
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{course.ID}, resp.CourseRefs)
		assert.Equal(t, models.RoleStudent, resp.User.Role)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, 1, env.repo.UsersStore.Len())
		assert.Equal(t, 1, env.repo.StudentsStore.Len())

		published := env.publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventStudentRegistered, published[0].Type)
	})

	t.Run("unknown course name is dropped", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		resp, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{
				Username: "jdoe",
				Email:    "jdoe@example.com",
			},
			CourseNames: []string{"Cloud Technologiez"},
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, resp.CourseRefs)
	})

	t.Run("duplicate course names collapse to one reference", func(t *testing.T) {
		env := newTestEnv(t)
		course := env.seedCourse(t, "REST Basics", 30, 150.0)

		resp, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{
				Username: "jdoe",
				Email:    "jdoe@example.com",
			},
			CourseNames: []string{"REST Basics", "REST Basics"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{course.ID}, resp.CourseRefs)
	})

	t.Run("missing user record", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.students.Create(ctx, &CreateStudentRequest{}, nil)
		assert.ErrorIs(t, err, ErrStudentMissingUser)

		_, err = env.students.Create(ctx, nil, nil)
		assert.ErrorIs(t, err, ErrStudentMissingUser)
	})

	t.Run("invalid email fails validation", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{
				Username: "jdoe",
				Email:    "not-an-email",
			},
		}, nil)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, 0, env.repo.UsersStore.Len())
	})

	t.Run("student persist failure leaves the user and reports the step", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.StudentsStore.CreateErr = assert.AnError

		_, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{
				Username: "jdoe",
				Email:    "jdoe@example.com",
			},
		}, nil)
		require.Error(t, err)
		assert.True(t, IsInternal(err))
		assert.Equal(t, 1, env.repo.UsersStore.Len())
		assert.Equal(t, 0, env.repo.StudentsStore.Len())
	})
}

func TestStudentService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)

	first, err := env.students.Create(ctx, &CreateStudentRequest{
		User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
	}, nil)
	require.NoError(t, err)
	_, err = env.students.Create(ctx, &CreateStudentRequest{
		User: &UserDraft{Username: "asmith", Email: "asmith@example.com"},
	}, nil)
	require.NoError(t, err)

	t.Run("nil caller is rejected", func(t *testing.T) {
		_, err := env.students.List(ctx, nil)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("admin sees every student", func(t *testing.T) {
		all, err := env.students.List(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("student sees only their own record", func(t *testing.T) {
		own, err := env.students.List(ctx, first.User)
		require.NoError(t, err)
		require.Len(t, own, 1)
		assert.Equal(t, first.ID, own[0].ID)
	})
}

func TestStudentService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("enroll and unenroll in one patch", func(t *testing.T) {
		env := newTestEnv(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)
		rest := env.seedCourse(t, "REST Basics", 30, 150.0)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User:        &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
			CourseNames: []string{"Cloud Technologies"},
		}, nil)
		require.NoError(t, err)
		require.Equal(t, []string{cloud.ID}, created.CourseRefs)

		resp, err := env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			Course: &EnrollmentDirective{
				EnrollCourseName:   strPtr("REST Basics"),
				UnenrollCourseName: strPtr("Cloud Technologies"),
			},
		}, created.User)
		require.NoError(t, err)
		assert.Equal(t, []string{rest.ID}, resp.CourseRefs)
	})

	t.Run("unenroll wins when the directive names one course twice", func(t *testing.T) {
		env := newTestEnv(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)

		resp, err := env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			Course: &EnrollmentDirective{
				EnrollID:   strPtr(cloud.ID),
				UnenrollID: strPtr(cloud.ID),
			},
		}, created.User)
		require.NoError(t, err)
		assert.Empty(t, resp.CourseRefs)
	})

	t.Run("enrolling twice keeps one reference", func(t *testing.T) {
		env := newTestEnv(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User:        &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
			CourseNames: []string{"Cloud Technologies"},
		}, nil)
		require.NoError(t, err)
		env.publisher.ClearEvents()

		resp, err := env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			Course: &EnrollmentDirective{EnrollID: strPtr(cloud.ID)},
		}, created.User)
		require.NoError(t, err)
		assert.Equal(t, []string{cloud.ID}, resp.CourseRefs)

		// No-op enrolls publish nothing.
		assert.Empty(t, env.publisher.GetPublishedEvents())
	})

	t.Run("failed persist publishes no enrollment events", func(t *testing.T) {
		env := newTestEnv(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)
		env.publisher.ClearEvents()

		env.repo.StudentsStore.UpdateErr = assert.AnError

		_, err = env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			Course: &EnrollmentDirective{EnrollID: strPtr(cloud.ID)},
		}, created.User)
		require.Error(t, err)
		assert.True(t, IsInternal(err))
		assert.Empty(t, env.publisher.GetPublishedEvents())
	})

	t.Run("enrollment events follow a successful persist", func(t *testing.T) {
		env := newTestEnv(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)
		env.publisher.ClearEvents()

		_, err = env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			Course: &EnrollmentDirective{EnrollID: strPtr(cloud.ID)},
		}, created.User)
		require.NoError(t, err)

		published := env.publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventStudentEnrolled, published[0].Type)
	})

	t.Run("non-owner cannot update", func(t *testing.T) {
		env := newTestEnv(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		target, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)
		other, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "asmith", Email: "asmith@example.com"},
		}, nil)
		require.NoError(t, err)

		_, err = env.students.Update(ctx, target.ID, &UpdateStudentRequest{
			Course: &EnrollmentDirective{EnrollID: strPtr(cloud.ID)},
		}, other.User)
		require.Error(t, err)

		var pe *PermissionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "update", pe.Action)

		unchanged, err := env.students.GetByID(ctx, target.ID, target.User)
		require.NoError(t, err)
		assert.Empty(t, unchanged.CourseRefs)
	})

	t.Run("username rebinds to the existing user", func(t *testing.T) {
		env := newTestEnv(t)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)

		existing := &models.User{
			Username: "asmith",
			Email:    "asmith@example.com",
			Role:     models.RoleStudent,
		}
		_, err = env.repo.Users().Create(ctx, []*models.User{existing})
		require.NoError(t, err)

		resp, err := env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			User: &UserPatch{Username: strPtr("asmith")},
		}, created.User)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, resp.User.ID)
		assert.Equal(t, "asmith", resp.User.Username)
	})

	t.Run("unknown username leaves the binding alone", func(t *testing.T) {
		env := newTestEnv(t)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)

		resp, err := env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			User: &UserPatch{Username: strPtr("ghost"), FirstName: strPtr("Jane")},
		}, created.User)
		require.NoError(t, err)
		assert.Equal(t, created.User.ID, resp.User.ID)
		assert.Equal(t, "Jane", resp.User.FirstName)
	})

	t.Run("invalid role is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)

		badRole := models.UserRole("SUPERUSER")
		_, err = env.students.Update(ctx, created.ID, &UpdateStudentRequest{
			User: &UserPatch{Role: &badRole},
		}, created.User)
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("unknown student", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.admin(t)

		_, err := env.students.Update(ctx, "missing", &UpdateStudentRequest{}, admin)
		assert.ErrorIs(t, err, ErrStudentNotFound)
	})
}

func TestStudentService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)

	created, err := env.students.Create(ctx, &CreateStudentRequest{
		User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
	}, nil)
	require.NoError(t, err)

	t.Run("non-admin cannot delete", func(t *testing.T) {
		err := env.students.Delete(ctx, created.ID, created.User)
		var pe *PermissionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "delete", pe.Action)
		assert.Equal(t, 1, env.repo.StudentsStore.Len())
	})

	t.Run("admin deletes", func(t *testing.T) {
		require.NoError(t, env.students.Delete(ctx, created.ID, admin))
		assert.Equal(t, 0, env.repo.StudentsStore.Len())
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		err := env.students.Delete(ctx, created.ID, admin)
		assert.ErrorIs(t, err, ErrStudentNotFound)
	})
}
