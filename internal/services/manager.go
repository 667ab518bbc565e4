package services

import (
	"log/slog"

	"github.com/courseworks/registration-service/internal/cache"
	"github.com/courseworks/registration-service/internal/events"
	"github.com/courseworks/registration-service/internal/repositories"
	"github.com/courseworks/registration-service/internal/utils"
)

// ServiceManager bundles the coordinator services behind one dependency for
// the handler layer.
type ServiceManager interface {
	Students() StudentService
	Courses() CourseService
	RosterExport() RosterExportService
}

type serviceManager struct {
	students     StudentService
	courses      CourseService
	rosterExport RosterExportService
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) ServiceManager {
	policy := NewAuthorizationPolicy()
	resolver := newCourseResolver(repo.Courses(), cacheService, logger)

	return &serviceManager{
		students:     NewStudentService(repo, resolver, policy, publisher, logger, validator),
		courses:      NewCourseService(repo, resolver, policy, publisher, logger, validator),
		rosterExport: NewRosterExportService(repo, resolver, policy, logger),
	}
}

func (m *serviceManager) Students() StudentService { return m.students }

func (m *serviceManager) Courses() CourseService { return m.courses }

func (m *serviceManager) RosterExport() RosterExportService { return m.rosterExport }
