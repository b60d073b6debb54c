package connect

import (
	"context"
	"database/sql"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/ajitpratap0/tenderflow/pkg/store"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

func dialMemory(_ context.Context, p Params) (*Handle, error) {
	s := store.NewMemoryStore()
	if p.Store.SeedFile != "" {
		f, err := os.Open(p.Store.SeedFile)
		if err != nil {
			return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to open seed file").
				WithDetail("path", p.Store.SeedFile)
		}
		defer f.Close()

		records, err := store.ReadJSON(f)
		if err != nil {
			return nil, err
		}
		s.Replace(records)
		p.Logger.Info("Seeded memory store", zap.String("path", p.Store.SeedFile), zap.Int("records", len(records)))
	}
	return &Handle{Adapter: s}, nil
}

func dialMongo(ctx context.Context, p Params) (*Handle, error) {
	opts := options.Client().ApplyURI(p.Store.URI)
	if p.Connect.Timeout > 0 {
		opts.SetConnectTimeout(p.Connect.Timeout).SetServerSelectionTimeout(p.Connect.Timeout)
	}
	if p.Connect.MaxConns > 0 {
		opts.SetMaxPoolSize(uint64(p.Connect.MaxConns))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to create MongoDB client")
	}

	pingCtx, cancel := pingContext(ctx, p.Connect)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to ping MongoDB")
	}

	coll := client.Database(p.Store.Database).Collection(p.Store.Collection)
	return &Handle{
		Adapter: store.NewMongoStore(coll, p.Logger),
		closers: []func() error{func() error { return client.Disconnect(context.Background()) }},
	}, nil
}

func dialPostgres(ctx context.Context, p Params) (*Handle, error) {
	poolConfig, err := pgxpool.ParseConfig(p.Store.URI)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConfig, "invalid PostgreSQL connection string")
	}
	if p.Connect.MaxConns > 0 {
		poolConfig.MaxConns = p.Connect.MaxConns
	}
	if p.Connect.MinConns > 0 && p.Connect.MinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = p.Connect.MinConns
	}
	if p.Connect.Timeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = p.Connect.Timeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to create connection pool")
	}

	pingCtx, cancel := pingContext(ctx, p.Connect)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to ping PostgreSQL")
	}

	db := stdlib.OpenDBFromPool(pool)
	return sqlHandle(db, store.Postgres, p, func() error {
		pool.Close()
		return nil
	})
}

func dialMySQL(ctx context.Context, p Params) (*Handle, error) {
	mysqlConfig, err := mysql.ParseDSN(p.Store.URI)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConfig, "invalid MySQL DSN")
	}
	mysqlConfig.ParseTime = true
	if p.Connect.Timeout > 0 {
		mysqlConfig.Timeout = p.Connect.Timeout
	}

	connector, err := mysql.NewConnector(mysqlConfig)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConfig, "invalid MySQL configuration")
	}
	db := sql.OpenDB(connector)
	if p.Connect.MaxConns > 0 {
		db.SetMaxOpenConns(int(p.Connect.MaxConns))
	}

	if err := pingSQL(ctx, db, p); err != nil {
		return nil, err
	}
	return sqlHandle(db, store.MySQL, p)
}

func dialSQLite(ctx context.Context, p Params) (*Handle, error) {
	dsn := p.Store.URI
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConfig, "invalid SQLite DSN")
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := pingSQL(ctx, db, p); err != nil {
		return nil, err
	}
	return sqlHandle(db, store.SQLite, p)
}

func pingSQL(ctx context.Context, db *sql.DB, p Params) error {
	pingCtx, cancel := pingContext(ctx, p.Connect)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to ping database")
	}
	return nil
}

func sqlHandle(db *sql.DB, dialect store.Dialect, p Params, extra ...func() error) (*Handle, error) {
	s, err := store.NewSQLStore(db, dialect, p.Store.Table, p.Logger)
	if err != nil {
		_ = db.Close()
		for _, c := range extra {
			_ = c()
		}
		return nil, err
	}
	closers := append(extra, db.Close)
	return &Handle{Adapter: s, closers: closers}, nil
}
