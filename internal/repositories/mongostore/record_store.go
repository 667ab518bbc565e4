package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/courseworks/registration-service/internal/repositories"
)

// Store is the MongoDB implementation of repositories.RecordStore. Documents
// are keyed by a hex ObjectID string stored in _id.
type Store[T repositories.Entity] struct {
	coll *mongo.Collection
}

func NewStore[T repositories.Entity](db *mongo.Database, collection string) *Store[T] {
	return &Store[T]{coll: db.Collection(collection)}
}

func (s *Store[T]) Create(ctx context.Context, entities []T) ([]string, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	ids := make([]string, len(entities))
	docs := make([]interface{}, len(entities))
	for i, e := range entities {
		if e.GetID() == "" {
			e.SetID(primitive.NewObjectID().Hex())
		}
		ids[i] = e.GetID()
		docs[i] = e
	}

	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return nil, repositories.NewStoreError("create", s.coll.Name(), err)
	}
	return ids, nil
}

func (s *Store[T]) FetchByID(ctx context.Context, ids []string) ([]T, error) {
	filter := bson.M{}
	if len(ids) > 0 {
		filter = bson.M{"_id": bson.M{"$in": ids}}
	}
	return s.find(ctx, "fetchById", filter)
}

// FetchByFilter accepts a MongoDB extended-JSON document as the opaque
// filter. Parsing the grammar is this adapter's responsibility; callers
// never interpret the value.
func (s *Store[T]) FetchByFilter(ctx context.Context, filter string) ([]T, error) {
	query := bson.D{}
	if filter != "" {
		if err := bson.UnmarshalExtJSON([]byte(filter), false, &query); err != nil {
			return nil, repositories.NewStoreError("fetchByFilter", s.coll.Name(), err)
		}
	}
	return s.find(ctx, "fetchByFilter", query)
}

func (s *Store[T]) find(ctx context.Context, op string, filter interface{}) ([]T, error) {
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, repositories.NewStoreError(op, s.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var results []T
	if err := cursor.All(ctx, &results); err != nil {
		return nil, repositories.NewStoreError(op, s.coll.Name(), err)
	}
	return results, nil
}

func (s *Store[T]) Update(ctx context.Context, entities []T) error {
	for _, e := range entities {
		res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": e.GetID()}, e)
		if err != nil {
			return repositories.NewStoreError("update", s.coll.Name(), err)
		}
		if res.MatchedCount == 0 {
			return repositories.NewStoreError("update", s.coll.Name(), repositories.ErrNotFound)
		}
	}
	return nil
}

func (s *Store[T]) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return repositories.NewStoreError("remove", s.coll.Name(), err)
	}
	return nil
}
