package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuri/excelize/v2"
)

func TestRosterExportService_ExportCourseRoster(t *testing.T) {
	ctx := context.Background()

	t.Run("exports enrolled students", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.admin(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)
		env.seedCourse(t, "REST Basics", 30, 150.0)

		enrolled, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{
				Username:  "jdoe",
				Email:     "jdoe@example.com",
				FirstName: "Jane",
				LastName:  "Doe",
			},
			CourseNames: []string{"Cloud Technologies"},
		}, nil)
		require.NoError(t, err)

		// Enrolled elsewhere, must not appear in this roster.
		_, err = env.students.Create(ctx, &CreateStudentRequest{
			User:        &UserDraft{Username: "asmith", Email: "asmith@example.com"},
			CourseNames: []string{"REST Basics"},
		}, nil)
		require.NoError(t, err)

		data, err := env.roster.ExportCourseRoster(ctx, cloud.ID, admin)
		require.NoError(t, err)
		require.NotEmpty(t, data)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		header, err := f.GetCellValue("Roster", "A1")
		require.NoError(t, err)
		assert.Equal(t, "Student ID", header)

		id, err := f.GetCellValue("Roster", "A2")
		require.NoError(t, err)
		assert.Equal(t, enrolled.ID, id)

		username, err := f.GetCellValue("Roster", "B2")
		require.NoError(t, err)
		assert.Equal(t, "jdoe", username)

		email, err := f.GetCellValue("Roster", "C2")
		require.NoError(t, err)
		assert.Equal(t, "jdoe@example.com", email)

		rows, err := f.GetRows("Roster")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("empty roster still produces the header", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.admin(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		data, err := env.roster.ExportCourseRoster(ctx, cloud.ID, admin)
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Roster")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Student ID", rows[0][0])
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		cloud := env.seedCourse(t, "Cloud Technologies", 20, 200.0)

		created, err := env.students.Create(ctx, &CreateStudentRequest{
			User: &UserDraft{Username: "jdoe", Email: "jdoe@example.com"},
		}, nil)
		require.NoError(t, err)

		_, err = env.roster.ExportCourseRoster(ctx, cloud.ID, created.User)
		var pe *PermissionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "export", pe.Action)
	})

	t.Run("unknown course", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.admin(t)

		_, err := env.roster.ExportCourseRoster(ctx, "missing", admin)
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})
}
