package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string
	Database string
}

// MongoDriver stores each resource type in a MongoDB collection of the same name
type MongoDriver struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDriver creates a client for the configured deployment.
// The driver connects lazily; use Ping to verify the server is reachable.
func NewMongoDriver(ctx context.Context, cfg MongoConfig) (*MongoDriver, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	return &MongoDriver{client: client, db: client.Database(cfg.Database)}, nil
}

// Ping verifies the server connection
func (d *MongoDriver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Open returns a handle on the named collection. MongoDB creates it on first insert.
func (d *MongoDriver) Open(_ context.Context, name string) (Collection, error) {
	return &mongoCollection{name: name, coll: d.db.Collection(name)}, nil
}

// Close disconnects the client
func (d *MongoDriver) Close() error {
	return d.client.Disconnect(context.Background())
}

type mongoCollection struct {
	name string
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string {
	return c.name
}

func (c *mongoCollection) Find(ctx context.Context, q Query) ([]Record, error) {
	if !q.All() && len(idSet(q.IDs)) == 0 {
		return []Record{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: IDField, Value: 1}})
	cursor, err := c.coll.Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []Record{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		record, err := fromMongo(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, cursor.Err()
}

func (c *mongoCollection) FindOne(ctx context.Context, id string) (Record, error) {
	var doc bson.D
	err := c.coll.FindOne(ctx, bson.M{IDField: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(c.name, id)
	}
	if err != nil {
		return nil, err
	}
	return fromMongo(doc)
}

func (c *mongoCollection) Insert(ctx context.Context, record Record) (Record, error) {
	data, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}
	id := NewID()
	inserted, err := decodeRecord(id, data)
	if err != nil {
		return nil, err
	}
	if _, err := c.coll.InsertOne(ctx, bson.M(inserted)); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (c *mongoCollection) Update(ctx context.Context, id string, partial Record) error {
	update, ok := mongoUpdate(partial)
	if !ok {
		// $set rejects an empty document; an empty update only has to confirm existence.
		n, err := c.coll.CountDocuments(ctx, bson.M{IDField: id})
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(c.name, id)
		}
		return nil
	}

	result, err := c.coll.UpdateOne(ctx, bson.M{IDField: id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return notFound(c.name, id)
	}
	return nil
}

func (c *mongoCollection) Remove(ctx context.Context, id string) error {
	result, err := c.coll.DeleteOne(ctx, bson.M{IDField: id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return notFound(c.name, id)
	}
	return nil
}

// mongoFilter translates a query into a MongoDB filter document
func mongoFilter(q Query) bson.M {
	if q.All() {
		return bson.M{}
	}
	return bson.M{IDField: bson.M{"$in": idSet(q.IDs)}}
}

// mongoUpdate builds a $set document, reporting false when there is nothing to set
func mongoUpdate(partial Record) (bson.M, bool) {
	set := bson.M{}
	for k, v := range partial {
		if k == IDField {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil, false
	}
	return bson.M{"$set": set}, true
}

// fromMongo converts a decoded BSON document into a record with JSON value shapes
func fromMongo(doc bson.D) (Record, error) {
	fields, ok := normalizeBSON(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected document shape %T", doc)
	}
	id, _ := fields[IDField].(string)
	if id == "" {
		return nil, fmt.Errorf("document has no string %s", IDField)
	}
	delete(fields, IDField)

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", id, err)
	}
	return decodeRecord(id, data)
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	default:
		return v
	}
}
