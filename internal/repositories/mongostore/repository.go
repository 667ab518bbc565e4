package mongostore

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/courseworks/registration-service/internal/models"
	"github.com/courseworks/registration-service/internal/repositories"
)

const (
	usersCollection    = "users"
	studentsCollection = "students"
	coursesCollection  = "courses"
)

type repository struct {
	users    *Store[*models.User]
	students *Store[*models.Student]
	courses  *Store[*models.Course]
}

// NewRepository builds one record store per collection on the given database.
// The database handle is long-lived and owned by the caller.
func NewRepository(db *mongo.Database) repositories.Repository {
	return &repository{
		users:    NewStore[*models.User](db, usersCollection),
		students: NewStore[*models.Student](db, studentsCollection),
		courses:  NewStore[*models.Course](db, coursesCollection),
	}
}

func (r *repository) Users() repositories.RecordStore[*models.User] { return r.users }

func (r *repository) Students() repositories.RecordStore[*models.Student] { return r.students }

func (r *repository) Courses() repositories.RecordStore[*models.Course] { return r.courses }
