// Package memory provides an in-memory RecordStore used by service tests.
// It interprets the same equality filters the mongo adapter accepts: a JSON
// document whose fields must all match, with array fields matching by
// containment.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/courseworks/registration-service/internal/models"
	"github.com/courseworks/registration-service/internal/repositories"
)

type Store[T repositories.Entity] struct {
	mu    sync.Mutex
	docs  map[string]T
	order []string

	// Forced failures for exercising partial-failure paths.
	CreateErr error
	UpdateErr error
	RemoveErr error

	name string
}

func NewStore[T repositories.Entity](name string) *Store[T] {
	return &Store[T]{docs: make(map[string]T), name: name}
}

func (s *Store[T]) Create(ctx context.Context, entities []T) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return nil, repositories.NewStoreError("create", s.name, s.CreateErr)
	}

	ids := make([]string, len(entities))
	for i, e := range entities {
		if e.GetID() == "" {
			e.SetID(primitive.NewObjectID().Hex())
		}
		ids[i] = e.GetID()
		s.docs[e.GetID()] = clone(e)
		s.order = append(s.order, e.GetID())
	}
	return ids, nil
}

func (s *Store[T]) FetchByID(ctx context.Context, ids []string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		out := make([]T, 0, len(s.order))
		for _, id := range s.order {
			out = append(out, clone(s.docs[id]))
		}
		return out, nil
	}

	var out []T
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			out = append(out, clone(doc))
		}
	}
	return out, nil
}

func (s *Store[T]) FetchByFilter(ctx context.Context, filter string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var query map[string]any
	if filter != "" {
		if err := json.Unmarshal([]byte(filter), &query); err != nil {
			return nil, repositories.NewStoreError("fetchByFilter", s.name, err)
		}
	}

	var out []T
	for _, id := range s.order {
		doc := s.docs[id]
		if matches(doc, query) {
			out = append(out, clone(doc))
		}
	}
	return out, nil
}

func (s *Store[T]) Update(ctx context.Context, entities []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return repositories.NewStoreError("update", s.name, s.UpdateErr)
	}

	for _, e := range entities {
		if _, ok := s.docs[e.GetID()]; !ok {
			return repositories.NewStoreError("update", s.name, repositories.ErrNotFound)
		}
		s.docs[e.GetID()] = clone(e)
	}
	return nil
}

func (s *Store[T]) Remove(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RemoveErr != nil {
		return repositories.NewStoreError("remove", s.name, s.RemoveErr)
	}

	for _, id := range ids {
		if _, ok := s.docs[id]; !ok {
			continue
		}
		delete(s.docs, id)
		for i, ordered := range s.order {
			if ordered == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Len reports the number of stored documents.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// matches compares the document's JSON projection against the filter: every
// filter field must equal the document field, or be contained in it when the
// field is an array.
func matches[T repositories.Entity](doc T, query map[string]any) bool {
	if len(query) == 0 {
		return true
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return false
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}

	for key, want := range query {
		got, ok := fields[key]
		if !ok {
			return false
		}
		if arr, isArr := got.([]any); isArr {
			found := false
			for _, elem := range arr {
				if reflect.DeepEqual(elem, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// clone deep-copies a document through JSON so callers never share memory
// with the store, mirroring a real database roundtrip.
func clone[T repositories.Entity](doc T) T {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("memory store: marshal %T: %v", doc, err))
	}
	out := reflect.New(reflect.TypeOf(doc).Elem()).Interface().(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(fmt.Sprintf("memory store: unmarshal %T: %v", doc, err))
	}
	return out
}

// Repository exposes the concrete stores so tests can inject failures.
type Repository struct {
	UsersStore    *Store[*models.User]
	StudentsStore *Store[*models.Student]
	CoursesStore  *Store[*models.Course]
}

func NewRepository() *Repository {
	return &Repository{
		UsersStore:    NewStore[*models.User]("users"),
		StudentsStore: NewStore[*models.Student]("students"),
		CoursesStore:  NewStore[*models.Course]("courses"),
	}
}

func (r *Repository) Users() repositories.RecordStore[*models.User] { return r.UsersStore }

func (r *Repository) Students() repositories.RecordStore[*models.Student] { return r.StudentsStore }

func (r *Repository) Courses() repositories.RecordStore[*models.Course] { return r.CoursesStore }

var _ repositories.Repository = (*Repository)(nil)
