package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseworks/registration-service/internal/models"
	"github.com/courseworks/registration-service/internal/repositories"
)

func TestStore_CreateAssignsIDs(t *testing.T) {
	ctx := context.Background()
	store := NewStore[*models.Course]("courses")

	ids, err := store.Create(ctx, []*models.Course{
		{CourseName: "Cloud Technologies"},
		{ID: "fixed", CourseName: "REST Basics"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, "fixed", ids[1])
}

func TestStore_FetchByID(t *testing.T) {
	ctx := context.Background()
	store := NewStore[*models.Course]("courses")

	ids, err := store.Create(ctx, []*models.Course{
		{CourseName: "Cloud Technologies"},
		{CourseName: "REST Basics"},
		{CourseName: "Databases"},
	})
	require.NoError(t, err)

	t.Run("nil returns everything in insertion order", func(t *testing.T) {
		all, err := store.FetchByID(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Cloud Technologies", all[0].CourseName)
		assert.Equal(t, "Databases", all[2].CourseName)
	})

	t.Run("missing ids are omitted", func(t *testing.T) {
		found, err := store.FetchByID(ctx, []string{ids[1], "missing"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "REST Basics", found[0].CourseName)
	})

	t.Run("results do not alias stored documents", func(t *testing.T) {
		found, err := store.FetchByID(ctx, []string{ids[0]})
		require.NoError(t, err)
		found[0].CourseName = "mutated"

		again, err := store.FetchByID(ctx, []string{ids[0]})
		require.NoError(t, err)
		assert.Equal(t, "Cloud Technologies", again[0].CourseName)
	})
}

func TestStore_FetchByFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore[*models.Student]("students")

	_, err := store.Create(ctx, []*models.Student{
		{UserID: "u1", CourseRefs: []string{"c1", "c2"}},
		{UserID: "u2", CourseRefs: []string{"c2"}},
		{UserID: "u3"},
	})
	require.NoError(t, err)

	t.Run("scalar equality", func(t *testing.T) {
		matched, err := store.FetchByFilter(ctx, `{"user_id": "u2"}`)
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, "u2", matched[0].UserID)
	})

	t.Run("array containment", func(t *testing.T) {
		matched, err := store.FetchByFilter(ctx, `{"course_refs": "c2"}`)
		require.NoError(t, err)
		assert.Len(t, matched, 2)
	})

	t.Run("no match", func(t *testing.T) {
		matched, err := store.FetchByFilter(ctx, `{"user_id": "ghost"}`)
		require.NoError(t, err)
		assert.Empty(t, matched)
	})

	t.Run("empty filter matches everything", func(t *testing.T) {
		matched, err := store.FetchByFilter(ctx, "")
		require.NoError(t, err)
		assert.Len(t, matched, 3)
	})

	t.Run("malformed filter", func(t *testing.T) {
		_, err := store.FetchByFilter(ctx, `{user_id:`)
		require.Error(t, err)
		assert.True(t, repositories.IsStoreError(err))
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	store := NewStore[*models.Course]("courses")

	ids, err := store.Create(ctx, []*models.Course{{CourseName: "Cloud Technologies"}})
	require.NoError(t, err)

	t.Run("replaces the document", func(t *testing.T) {
		err := store.Update(ctx, []*models.Course{{ID: ids[0], CourseName: "Cloud Technologies II"}})
		require.NoError(t, err)

		found, err := store.FetchByID(ctx, ids)
		require.NoError(t, err)
		assert.Equal(t, "Cloud Technologies II", found[0].CourseName)
	})

	t.Run("missing id reports not found", func(t *testing.T) {
		err := store.Update(ctx, []*models.Course{{ID: "missing", CourseName: "Ghost"}})
		require.Error(t, err)
		assert.True(t, repositories.IsNotFoundError(err))
	})
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := NewStore[*models.Course]("courses")

	ids, err := store.Create(ctx, []*models.Course{
		{CourseName: "Cloud Technologies"},
		{CourseName: "REST Basics"},
	})
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, []string{ids[0]}))
	assert.Equal(t, 1, store.Len())

	// Removing an absent id is a no-op.
	require.NoError(t, store.Remove(ctx, []string{ids[0], "missing"}))
	assert.Equal(t, 1, store.Len())
}
