package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/metrics"
	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// SQLStore reads tenders from a relational table. Every call acquires its own
// connection from the pool and releases it, with its rows, before returning.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	columns string
	logger  *zap.Logger
}

// NewSQLStore creates an adapter over table in db.
func NewSQLStore(db *sql.DB, dialect Dialect, table string, logger *zap.Logger) (*SQLStore, error) {
	if !validIdentifier(table) {
		return nil, tendererrors.Newf(tendererrors.ErrorTypeConfig, "invalid table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		table:   table,
		columns: strings.Join(models.FieldNames(), ", "),
		logger:  logger.With(zap.String("backend", dialect.Name), zap.String("table", table)),
	}, nil
}

// Name returns the dialect name.
func (s *SQLStore) Name() string { return s.dialect.Name }

// DB returns the underlying pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// EnsureSchema creates the table when it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	d := s.dialect
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	tender_id %s NOT NULL,
	organization %s,
	category %s,
	location %s,
	value %s,
	deadline %s,
	description %s,
	link %s
)`, s.table, d.KeyType, d.TextType, d.TextType, d.TextType, d.DoubleType, d.TimeType, d.TextType, d.TextType)

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return wrapSQL(err, "failed to acquire connection")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return wrapSQL(err, "failed to create table")
	}
	return nil
}

// Count returns SELECT COUNT(*) over the table.
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, wrapSQL(err, "failed to acquire connection")
	}
	defer conn.Close()

	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, wrapSQL(err, "failed to count rows")
	}
	return n, nil
}

// Fetch returns rows in [offset, offset+limit) using LIMIT/OFFSET over a
// fixed ordering.
func (s *SQLStore) Fetch(ctx context.Context, offset, limit int) ([]models.Record, error) {
	if limit <= 0 {
		return []models.Record{}, nil
	}
	if offset < 0 {
		offset = 0
	}

	timer := metrics.NewTimer()
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY tender_id, deadline, organization, link LIMIT %s OFFSET %s",
		s.columns, s.table, s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	records, err := s.query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}

	metrics.StoreFetchDuration.WithLabelValues(s.Name()).Observe(timer.Stop().Seconds())
	metrics.StoreFetchRecords.WithLabelValues(s.Name()).Add(float64(len(records)))
	return records, nil
}

// FindByID returns the first row whose tender_id equals id.
func (s *SQLStore) FindByID(ctx context.Context, id string) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE tender_id = %s LIMIT 1",
		s.columns, s.table, s.dialect.Placeholder(1))

	records, err := s.query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, tendererrors.Newf(tendererrors.ErrorTypeNotFound, "tender %s not found", id)
	}
	return &records[0], nil
}

// Insert writes records in one transaction.
func (s *SQLStore) Insert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return wrapSQL(err, "failed to acquire connection")
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return wrapSQL(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, s.columns, s.dialect.placeholders(1, len(models.RecordSchema))))
	if err != nil {
		return wrapSQL(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i := range records {
		r := records[i]
		r.Normalize()
		if _, err := stmt.ExecContext(ctx, r.ID, r.Organization, r.Category, r.Location,
			r.Value, s.dialect.BindTime(r.Deadline), r.Description, r.Link); err != nil {
			return wrapSQL(err, "failed to insert row").WithDetail("tender_id", r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapSQL(err, "failed to commit insert")
	}
	s.logger.Debug("Inserted rows", zap.Int("count", len(records)))
	return nil
}

// Aggregate computes the snapshot with one aggregate query plus a one-row
// sample for the field set. The query applies the Record.Normalize defaults
// to raw rows: NULL or negative values count as 0, NULL organizations as
// empty, blank categories and locations as their defaults.
func (s *SQLStore) Aggregate(ctx context.Context) (*models.Snapshot, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, wrapSQL(err, "failed to acquire connection")
	}
	defer conn.Close()

	value := "CASE WHEN value IS NULL OR value < 0 THEN 0 ELSE value END"
	query := fmt.Sprintf(`SELECT COUNT(*),
	COUNT(DISTINCT COALESCE(organization, '')),
	COUNT(DISTINCT %s),
	COUNT(DISTINCT %s),
	MAX(%s), MIN(%s), AVG(%s)
FROM %s`,
		orDefault("category", models.DefaultCategory),
		orDefault("location", models.DefaultLocation),
		value, value, value,
		s.table)

	snap := models.EmptySnapshot()
	var maxV, minV, avgV sql.NullFloat64
	if err := conn.QueryRowContext(ctx, query).Scan(
		&snap.TotalRecords,
		&snap.UniqueOrganizations,
		&snap.UniqueCategories,
		&snap.UniqueLocations,
		&maxV, &minV, &avgV,
	); err != nil {
		return nil, wrapSQL(err, "failed to aggregate rows")
	}
	if snap.TotalRecords == 0 {
		return models.EmptySnapshot(), nil
	}
	snap.MaxTenderValue = maxV.Float64
	snap.MinTenderValue = minV.Float64
	snap.AvgTenderValue = avgV.Float64

	rows, err := conn.QueryContext(ctx, "SELECT * FROM "+s.table+" LIMIT 1")
	if err != nil {
		return nil, wrapSQL(err, "failed to sample row")
	}
	defer rows.Close()

	if rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, wrapSQL(err, "failed to read columns")
		}
		snap.Fields = cols
	}
	if err := rows.Err(); err != nil {
		return nil, wrapSQL(err, "failed to sample row")
	}
	return snap, nil
}

func (s *SQLStore) query(ctx context.Context, query string, args ...interface{}) ([]models.Record, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, wrapSQL(err, "failed to acquire connection")
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapSQL(err, "query failed")
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var (
			id, org, category, location, description, link sql.NullString
			value                                          sql.NullFloat64
			deadline                                       interface{}
		)
		if err := rows.Scan(&id, &org, &category, &location, &value, &deadline, &description, &link); err != nil {
			return nil, wrapSQL(err, "failed to scan row")
		}

		t, err := toTime(deadline)
		if err != nil {
			return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeData, "invalid deadline").
				WithDetail("tender_id", id.String)
		}

		r := models.Record{
			ID:           id.String,
			Organization: org.String,
			Category:     category.String,
			Location:     location.String,
			Value:        value.Float64,
			Deadline:     t,
			Description:  description.String,
			Link:         link.String,
		}
		r.Normalize()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapSQL(err, "failed to iterate rows")
	}
	return records, nil
}

// orDefault renders column with blank and NULL values replaced by def.
func orDefault(column, def string) string {
	lit := "'" + strings.ReplaceAll(def, "'", "''") + "'"
	return fmt.Sprintf("CASE WHEN TRIM(COALESCE(%s, '')) = '' THEN %s ELSE %s END", column, lit, column)
}

func toTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return models.Naive(t), nil
	case string:
		return models.ParseTimestamp(t)
	case []byte:
		return models.ParseTimestamp(string(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported deadline type %T", v)
	}
}

func wrapSQL(err error, message string) *tendererrors.Error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || ctxDone(err) {
		return tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, message)
	}
	return tendererrors.Wrap(err, tendererrors.ErrorTypeQuery, message)
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
