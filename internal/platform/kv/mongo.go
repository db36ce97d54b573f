package kv

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoCollection holds one document per key.
const DefaultMongoCollection = "kv_entries"

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoBackend stores each key as a document whose _id is the key.
type MongoBackend struct {
	c *mongo.Collection
}

var _ Backend = (*MongoBackend)(nil)

// NewMongoBackend uses collection (DefaultMongoCollection when empty) of db.
func NewMongoBackend(db *mongo.Database, collection string) *MongoBackend {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoBackend{c: db.Collection(collection)}
}

// OpenMongo connects to uri and verifies the connection with a ping.
func OpenMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(database), nil
}

// Get returns the value stored under key.
func (m *MongoBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var e mongoEntry
	err := m.c.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("mongo get", key, err)
	}
	return e.Value, nil
}

// Set replaces or inserts the document for key.
func (m *MongoBackend) Set(ctx context.Context, key string, value []byte) error {
	e := mongoEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := m.c.ReplaceOne(ctx, bson.M{"_id": key}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable("mongo set", key, err)
	}
	return nil
}

// Delete removes the document for key.
func (m *MongoBackend) Delete(ctx context.Context, key string) error {
	if _, err := m.c.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return unavailable("mongo delete", key, err)
	}
	return nil
}

// Keys returns the sorted keys starting with prefix.
func (m *MongoBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := m.c.Find(ctx, prefixFilter(prefix), opts)
	if err != nil {
		return nil, unavailable("mongo keys", prefix, err)
	}
	defer cur.Close(ctx)

	keys := make([]string, 0)
	for cur.Next(ctx) {
		var e mongoEntry
		if err := cur.Decode(&e); err != nil {
			return nil, unavailable("mongo keys", prefix, err)
		}
		keys = append(keys, e.Key)
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("mongo keys", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Kind reports KindDurable.
func (m *MongoBackend) Kind() Kind { return KindDurable }

// Name reports "mongo".
func (m *MongoBackend) Name() string { return "mongo" }

// prefixFilter matches _id values starting with prefix literally.
func prefixFilter(prefix string) bson.M {
	if prefix == "" {
		return bson.M{}
	}
	return bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
}
