package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// fakeCollection serves documents through driver cursors built from memory.
type fakeCollection struct {
	docs      []interface{}
	aggregate []interface{}
	pipeline  interface{}
	inserted  []interface{}
	err       error
}

func newFakeCollection(records []models.Record) *fakeCollection {
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = bson.D{
			{Key: "_id", Value: i + 1},
			{Key: "tender_id", Value: r.ID},
			{Key: "organization", Value: r.Organization},
			{Key: "category", Value: r.Category},
			{Key: "location", Value: r.Location},
			{Key: "value", Value: r.Value},
			{Key: "deadline", Value: r.Deadline},
			{Key: "description", Value: r.Description},
			{Key: "link", Value: r.Link},
		}
	}
	return &fakeCollection{docs: docs}
}

// CountDocuments understands an empty filter and {field: {$exists: false}}.
func (f *fakeCollection) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	d, ok := filter.(bson.D)
	if !ok || len(d) == 0 {
		return int64(len(f.docs)), f.err
	}
	var n int64
	for _, doc := range f.docs {
		present := false
		for _, e := range doc.(bson.D) {
			if e.Key == d[0].Key {
				present = true
			}
		}
		if !present {
			n++
		}
	}
	return n, f.err
}

func (f *fakeCollection) Find(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if f.err != nil {
		return nil, f.err
	}
	docs := f.docs
	if d, ok := filter.(bson.D); ok && len(d) > 0 {
		docs = nil
		for _, doc := range f.docs {
			for _, e := range doc.(bson.D) {
				if e.Key == d[0].Key && e.Value == d[0].Value {
					docs = append(docs, doc)
				}
			}
		}
	}

	start, end := 0, len(docs)
	for _, o := range opts {
		if o.Skip != nil {
			start = min(int(*o.Skip), len(docs))
		}
		if o.Limit != nil {
			end = min(start+int(*o.Limit), len(docs))
		}
	}
	return mongo.NewCursorFromDocuments(docs[start:end], nil, nil)
}

func (f *fakeCollection) Distinct(_ context.Context, field string, _ interface{}, _ ...*options.DistinctOptions) ([]interface{}, error) {
	seen := map[interface{}]bool{}
	var out []interface{}
	for _, doc := range f.docs {
		for _, e := range doc.(bson.D) {
			if e.Key == field && !seen[e.Value] {
				seen[e.Value] = true
				out = append(out, e.Value)
			}
		}
	}
	return out, f.err
}

func (f *fakeCollection) Aggregate(_ context.Context, pipeline interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	f.pipeline = pipeline
	if f.err != nil {
		return nil, f.err
	}
	return mongo.NewCursorFromDocuments(f.aggregate, nil, nil)
}

func (f *fakeCollection) InsertMany(_ context.Context, docs []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	f.inserted = append(f.inserted, docs...)
	return &mongo.InsertManyResult{}, f.err
}

func TestMongoStore_Fetch(t *testing.T) {
	ctx := context.Background()
	s := NewMongoStore(newFakeCollection(tenderFixture()), nil)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := s.Fetch(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, tenderFixture()[1:], got)

	none, err := s.Fetch(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMongoStore_StringDeadline(t *testing.T) {
	coll := &fakeCollection{docs: []interface{}{
		bson.D{{Key: "tender_id", Value: "S1"}, {Key: "deadline", Value: "2025-11-20T00:00:00"}},
		bson.D{{Key: "tender_id", Value: "S2"}},
	}}

	got, err := NewMongoStore(coll, nil).Fetch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, day("2025-11-20").Equal(got[0].Deadline))
	assert.Equal(t, models.DefaultDeadline, got[1].Deadline)
	assert.Equal(t, models.DefaultCategory, got[1].Category)
}

func TestMongoStore_Aggregate(t *testing.T) {
	coll := newFakeCollection(tenderFixture())
	coll.aggregate = []interface{}{bson.D{
		{Key: "_id", Value: nil},
		{Key: "total", Value: int32(3)},
		{Key: "max_value", Value: 500000.0},
		{Key: "min_value", Value: 100000.0},
		{Key: "avg_value", Value: 850000.0 / 3},
	}}

	snap, err := NewMongoStore(coll, nil).Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), snap.TotalRecords)
	assert.Equal(t, int64(3), snap.UniqueOrganizations)
	assert.Equal(t, int64(2), snap.UniqueCategories)
	assert.Equal(t, int64(2), snap.UniqueLocations)
	assert.Equal(t, 500000.0, snap.MaxTenderValue)
	assert.Equal(t, models.FieldNames(), snap.Fields)
}

func TestMongoStore_AggregateNormalizesRawDocuments(t *testing.T) {
	coll := &fakeCollection{docs: []interface{}{
		bson.D{{Key: "_id", Value: 1}, {Key: "tender_id", Value: "A"}, {Key: "organization", Value: "NHAI"},
			{Key: "category", Value: "  "}, {Key: "value", Value: -50.0}},
		bson.D{{Key: "_id", Value: 2}, {Key: "tender_id", Value: "B"}, {Key: "organization", Value: nil},
			{Key: "category", Value: models.DefaultCategory}, {Key: "location", Value: "Delhi"}, {Key: "value", Value: 100.0}},
		bson.D{{Key: "_id", Value: 3}, {Key: "tender_id", Value: "C"},
			{Key: "location", Value: ""}, {Key: "value", Value: 20.0}},
	}}
	coll.aggregate = []interface{}{bson.D{
		{Key: "total", Value: int32(3)},
		{Key: "max_value", Value: 100.0},
		{Key: "min_value", Value: 0.0},
		{Key: "avg_value", Value: 40.0},
	}}

	snap, err := NewMongoStore(coll, nil).Aggregate(context.Background())
	require.NoError(t, err)

	// NHAI and the blank organization of B and C
	assert.Equal(t, int64(2), snap.UniqueOrganizations)
	// all three fall back to or carry the default category
	assert.Equal(t, int64(1), snap.UniqueCategories)
	// India for A (missing) and C (blank), Delhi for B
	assert.Equal(t, int64(2), snap.UniqueLocations)

	group := coll.pipeline.(mongo.Pipeline)[0][0].Value.(bson.D)
	clamped := bson.D{{Key: "$max", Value: bson.A{
		bson.D{{Key: "$ifNull", Value: bson.A{"$value", 0}}},
		0,
	}}}
	assert.Equal(t, bson.D{{Key: "$min", Value: clamped}}, group[3].Value)
}

func TestMongoStore_AggregateEmpty(t *testing.T) {
	snap, err := NewMongoStore(newFakeCollection(nil), nil).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.EmptySnapshot(), snap)
}

func TestMongoStore_FindAndInsert(t *testing.T) {
	ctx := context.Background()
	coll := newFakeCollection(tenderFixture())
	s := NewMongoStore(coll, nil)

	r, err := s.FindByID(ctx, "T3")
	require.NoError(t, err)
	assert.Equal(t, "Mumbai Metro", r.Organization)

	_, err = s.FindByID(ctx, "T9")
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeNotFound))

	require.NoError(t, s.Insert(ctx, []models.Record{{ID: "T4"}}))
	require.Len(t, coll.inserted, 1)
	assert.Equal(t, models.DefaultLocation, coll.inserted[0].(models.Record).Location)
}

func TestMongoStore_Errors(t *testing.T) {
	coll := newFakeCollection(nil)
	coll.err = errors.New("server selection error")
	s := NewMongoStore(coll, nil)

	_, err := s.Fetch(context.Background(), 0, 10)
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeQuery))

	coll.err = context.DeadlineExceeded
	_, err = s.Count(context.Background())
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeConnection))
}
