package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courseworks/registration-service/internal/cache"
	"github.com/courseworks/registration-service/internal/models"
	"github.com/courseworks/registration-service/internal/repositories"
)

const courseNameCacheTTL = 5 * time.Minute

// courseResolver looks up courses by id or by name. Name lookups go through
// a read-through cache; uniqueness of course names is advisory, so the first
// match wins.
type courseResolver struct {
	courses repositories.RecordStore[*models.Course]
	cache   cache.CacheService
	logger  *slog.Logger
}

func newCourseResolver(courses repositories.RecordStore[*models.Course], cacheService cache.CacheService, logger *slog.Logger) *courseResolver {
	return &courseResolver{
		courses: courses,
		cache:   cacheService,
		logger:  logger,
	}
}

func courseNameKey(name string) string {
	return "course:name:" + name
}

// ByID returns the course or nil when the id has no match.
func (r *courseResolver) ByID(ctx context.Context, id string) (*models.Course, error) {
	courses, err := r.courses.FetchByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, nil
	}
	return courses[0], nil
}

// ByName returns the first course with the given name, or nil when none
// matches.
func (r *courseResolver) ByName(ctx context.Context, name string) (*models.Course, error) {
	var cached models.Course
	err := r.cache.Get(ctx, courseNameKey(name), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("course name cache read failed", "course_name", name, "error", err)
	}

	courses, err := r.courses.FetchByFilter(ctx, fmt.Sprintf(`{"course_name": %q}`, name))
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, nil
	}

	course := courses[0]
	if err := r.cache.Set(ctx, courseNameKey(name), course, courseNameCacheTTL); err != nil {
		r.logger.Warn("course name cache write failed", "course_name", name, "error", err)
	}
	return course, nil
}

// Resolve follows the directive precedence: id first, then name.
func (r *courseResolver) Resolve(ctx context.Context, id, name *string) (*models.Course, error) {
	if id != nil && *id != "" {
		return r.ByID(ctx, *id)
	}
	if name != nil && *name != "" {
		return r.ByName(ctx, *name)
	}
	return nil, nil
}

// Invalidate drops the cached name entry after a course mutation.
func (r *courseResolver) Invalidate(ctx context.Context, name string) {
	if err := r.cache.Delete(ctx, courseNameKey(name)); err != nil {
		r.logger.Warn("course name cache invalidation failed", "course_name", name, "error", err)
	}
}
