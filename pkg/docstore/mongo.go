package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoIDField = "_id"

// Index declares a single-field ascending secondary index.
type Index struct {
	Collection string
	Field      string
}

// MongoStore maps each collection onto a MongoDB collection with string _id
// values. Records should tag their identifier field with `bson:"_id"`.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps a database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

var _ Store = (*MongoStore)(nil)

// EnsureIndexes creates the secondary indexes used by equality lookups.
func (s *MongoStore) EnsureIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		model := mongo.IndexModel{Keys: bson.D{{Key: mongoField(idx.Field), Value: 1}}}
		if _, err := s.db.Collection(idx.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("docstore: create index %s.%s: %w", idx.Collection, idx.Field, err)
		}
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, collection string, doc interface{}) (string, error) {
	id := NewID()
	if err := s.InsertWithID(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) InsertWithID(ctx context.Context, collection, id string, doc interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	m, err := toBSON(doc, id, 1)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *MongoStore) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	m, err := toBSON(doc, id, 0)
	if err != nil {
		return err
	}
	delete(m, mongoIDField)
	delete(m, FieldVersion)
	update := bson.M{"$set": m, "$inc": bson.M{FieldVersion: int64(1)}}
	opts := options.Update().SetUpsert(true)
	if _, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{mongoIDField: id}, update, opts); err != nil {
		return err
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, dest interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	err := s.db.Collection(collection).FindOne(ctx, bson.M{mongoIDField: id}).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) Patch(ctx context.Context, collection, id string, fields Fields) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{mongoIDField: id}, patchUpdate(fields))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) PatchIfVersion(ctx context.Context, collection, id string, version int64, fields Fields) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	coll := s.db.Collection(collection)
	filter := bson.M{mongoIDField: id, FieldVersion: version}
	res, err := coll.UpdateOne(ctx, filter, patchUpdate(fields))
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	count, err := coll.CountDocuments(ctx, bson.M{mongoIDField: id})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{mongoIDField: id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindBy(ctx context.Context, collection, field string, value interface{}, dest interface{}) error {
	if field == "" {
		return ErrInvalidArgument
	}
	return s.find(ctx, collection, bson.M{mongoField(field): value}, dest)
}

func (s *MongoStore) FindAll(ctx context.Context, collection string, dest interface{}) error {
	return s.find(ctx, collection, bson.M{}, dest)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) find(ctx context.Context, collection string, filter bson.M, dest interface{}) error {
	cursor, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()
	return cursor.All(ctx, dest)
}

func patchUpdate(fields Fields) bson.M {
	set := bson.M{}
	for k, v := range sanitize(fields) {
		set[k] = v
	}
	update := bson.M{"$inc": bson.M{FieldVersion: int64(1)}}
	if len(set) > 0 {
		update["$set"] = set
	}
	return update
}

func toBSON(doc interface{}, id string, version int64) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("docstore: decode document: %w", err)
	}
	delete(m, FieldID)
	m[mongoIDField] = id
	m[FieldVersion] = version
	return m, nil
}

func mongoField(field string) string {
	if field == FieldID {
		return mongoIDField
	}
	return field
}
