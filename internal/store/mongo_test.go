package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoFilter(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  bson.M
	}{
		{"all", Query{}, bson.M{}},
		{"ids", Query{IDs: []string{"b", "a", "b", ""}}, bson.M{IDField: bson.M{"$in": []string{"a", "b"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mongoFilter(tt.query))
		})
	}
}

func TestMongoUpdate(t *testing.T) {
	update, ok := mongoUpdate(Record{"title": "New", IDField: "x"})
	require.True(t, ok)
	assert.Equal(t, bson.M{"$set": bson.M{"title": "New"}}, update)

	_, ok = mongoUpdate(Record{IDField: "x"})
	assert.False(t, ok)
}

func TestFromMongo(t *testing.T) {
	doc := bson.D{
		{Key: IDField, Value: "s1"},
		{Key: "title", Value: "Hello"},
		{Key: "tags", Value: bson.A{"t1", "t2"}},
		{Key: "meta", Value: bson.D{{Key: "words", Value: int32(120)}}},
	}

	record, err := fromMongo(doc)
	require.NoError(t, err)
	assert.Equal(t, Record{
		IDField: "s1",
		"title": "Hello",
		"tags":  []any{"t1", "t2"},
		"meta":  map[string]any{"words": float64(120)},
	}, record)

	_, err = fromMongo(bson.D{{Key: "title", Value: "no id"}})
	assert.Error(t, err)
}
