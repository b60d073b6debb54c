package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/metrics"
	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// Collection is the subset of *mongo.Collection used by MongoStore.
type Collection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	Distinct(ctx context.Context, fieldName string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoStore reads tenders from a MongoDB collection ordered by _id.
type MongoStore struct {
	coll   Collection
	logger *zap.Logger
}

// NewMongoStore creates an adapter over coll.
func NewMongoStore(coll Collection, logger *zap.Logger) *MongoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoStore{coll: coll, logger: logger.With(zap.String("backend", "mongodb"))}
}

// Name returns "mongodb".
func (s *MongoStore) Name() string { return "mongodb" }

// Count returns the number of documents in the collection.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrapMongo(err, "failed to count documents")
	}
	return n, nil
}

// Fetch returns documents in [offset, offset+limit) using skip and limit.
func (s *MongoStore) Fetch(ctx context.Context, offset, limit int) ([]models.Record, error) {
	if limit <= 0 {
		// mongo treats limit 0 as unbounded
		return []models.Record{}, nil
	}
	if offset < 0 {
		offset = 0
	}

	timer := metrics.NewTimer()
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	records, err := s.find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.TypeOf(err), "failed to fetch documents").
			WithDetail("offset", offset).
			WithDetail("limit", limit)
	}

	metrics.StoreFetchDuration.WithLabelValues(s.Name()).Observe(timer.Stop().Seconds())
	metrics.StoreFetchRecords.WithLabelValues(s.Name()).Add(float64(len(records)))
	return records, nil
}

// FindByID returns the first document whose tender_id equals id.
func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Record, error) {
	records, err := s.find(ctx, bson.D{{Key: "tender_id", Value: id}}, options.Find().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, tendererrors.Newf(tendererrors.ErrorTypeNotFound, "tender %s not found", id)
	}
	return &records[0], nil
}

// Insert stores records with a single InsertMany call.
func (s *MongoStore) Insert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		r := records[i]
		r.Normalize()
		docs[i] = r
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return wrapMongo(err, "failed to insert documents").WithDetail("count", len(docs))
	}
	return nil
}

// Aggregate computes the snapshot with one $group pipeline, three distinct
// queries and a single-document sample for the field set. Values and text
// fields are normalized inside the queries the same way Record.Normalize
// does, so raw documents aggregate exactly like the records Fetch returns.
func (s *MongoStore) Aggregate(ctx context.Context) (*models.Snapshot, error) {
	// missing or negative values count as 0
	value := bson.D{{Key: "$max", Value: bson.A{
		bson.D{{Key: "$ifNull", Value: bson.A{"$value", 0}}},
		0,
	}}}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "max_value", Value: bson.D{{Key: "$max", Value: value}}},
			{Key: "min_value", Value: bson.D{{Key: "$min", Value: value}}},
			{Key: "avg_value", Value: bson.D{{Key: "$avg", Value: value}}},
		}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapMongo(err, "failed to aggregate values")
	}
	var groups []struct {
		Total    int64   `bson:"total"`
		MaxValue float64 `bson:"max_value"`
		MinValue float64 `bson:"min_value"`
		AvgValue float64 `bson:"avg_value"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, wrapMongo(err, "failed to decode aggregation")
	}
	if len(groups) == 0 || groups[0].Total == 0 {
		return models.EmptySnapshot(), nil
	}

	snap := &models.Snapshot{
		TotalRecords:   groups[0].Total,
		MaxTenderValue: groups[0].MaxValue,
		MinTenderValue: groups[0].MinValue,
		AvgTenderValue: groups[0].AvgValue,
	}

	distinct := []struct {
		field    string
		fallback string
		dst      *int64
	}{
		{"organization", "", &snap.UniqueOrganizations},
		{"category", models.DefaultCategory, &snap.UniqueCategories},
		{"location", models.DefaultLocation, &snap.UniqueLocations},
	}
	for _, d := range distinct {
		n, err := s.countDistinct(ctx, d.field, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = n
	}

	fields, err := s.sampleFields(ctx)
	if err != nil {
		return nil, err
	}
	snap.Fields = fields

	s.logger.Debug("Aggregated collection", zap.Int64("total_records", snap.TotalRecords))
	return snap, nil
}

// countDistinct counts the distinct values of field after blank, null and
// missing values have been replaced by fallback.
func (s *MongoStore) countDistinct(ctx context.Context, field, fallback string) (int64, error) {
	values, err := s.coll.Distinct(ctx, field, bson.D{})
	if err != nil {
		return 0, wrapMongo(err, "failed to count distinct values").WithDetail("field", field)
	}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		str, _ := v.(string)
		if strings.TrimSpace(str) == "" {
			str = fallback
		}
		seen[str] = struct{}{}
	}

	// Distinct skips documents without the field
	if _, ok := seen[fallback]; !ok {
		missing, err := s.coll.CountDocuments(ctx, bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: false}}}},
			options.Count().SetLimit(1))
		if err != nil {
			return 0, wrapMongo(err, "failed to count documents without field").WithDetail("field", field)
		}
		if missing > 0 {
			seen[fallback] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (s *MongoStore) sampleFields(ctx context.Context) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetLimit(1))
	if err != nil {
		return nil, wrapMongo(err, "failed to sample document")
	}
	defer cur.Close(ctx)

	fields := []string{}
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, wrapMongo(err, "failed to sample document")
		}
		return fields, nil
	}
	var doc bson.D
	if err := cur.Decode(&doc); err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeData, "failed to decode sample document")
	}
	for _, e := range doc {
		if e.Key == "_id" {
			continue
		}
		fields = append(fields, e.Key)
	}
	return fields, nil
}

// mongoRecord tolerates deadlines stored either as BSON dates or ISO strings.
type mongoRecord struct {
	ID           string        `bson:"tender_id"`
	Organization string        `bson:"organization"`
	Category     string        `bson:"category"`
	Location     string        `bson:"location"`
	Value        float64       `bson:"value"`
	Deadline     bson.RawValue `bson:"deadline"`
	Description  string        `bson:"description"`
	Link         string        `bson:"link"`
}

func (m mongoRecord) record() (models.Record, error) {
	r := models.Record{
		ID:           m.ID,
		Organization: m.Organization,
		Category:     m.Category,
		Location:     m.Location,
		Value:        m.Value,
		Description:  m.Description,
		Link:         m.Link,
	}

	switch m.Deadline.Type {
	case bson.TypeDateTime:
		r.Deadline = m.Deadline.Time()
	case bson.TypeString:
		t, err := models.ParseTimestamp(m.Deadline.StringValue())
		if err != nil {
			return r, err
		}
		r.Deadline = t
	case bson.TypeTimestamp:
		sec, _ := m.Deadline.Timestamp()
		r.Deadline = time.Unix(int64(sec), 0)
	}

	r.Normalize()
	return r, nil
}

func (s *MongoStore) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Record, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapMongo(err, "find failed")
	}
	var raw []mongoRecord
	if err := cur.All(ctx, &raw); err != nil {
		return nil, wrapMongo(err, "failed to decode documents")
	}

	records := make([]models.Record, 0, len(raw))
	for _, m := range raw {
		r, err := m.record()
		if err != nil {
			return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeData, "invalid deadline").
				WithDetail("tender_id", m.ID)
		}
		records = append(records, r)
	}
	return records, nil
}

func wrapMongo(err error, message string) *tendererrors.Error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || ctxDone(err) {
		return tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, message)
	}
	return tendererrors.Wrap(err, tendererrors.ErrorTypeQuery, message)
}
