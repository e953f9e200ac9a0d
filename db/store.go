package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adlio/schema"
	"github.com/jmoiron/sqlx"
	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/db/tables"

	"go.uber.org/zap"

	sq "github.com/Masterminds/squirrel"
	fq "github.com/eisenwinter/fiql-sql-adapter"
)

//go:embed migrations
var migrations embed.FS

var (
	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("the requested entry was not found")
	// ErrAlreadyExists indicates the entity already exists within the store
	ErrAlreadyExists = errors.New("this entity already exists")
	// ErrInUse signals a foreign key violation
	ErrInUse = errors.New("this entity is needed for another entity")
	// ErrConflict signals a conditional update that lost against a concurrent writer
	// or found its precondition no longer true
	ErrConflict = errors.New("the entry was modified concurrently or is no longer eligible")
)

const (
	dialectSqlite   = "sqlite"
	dialectPostgres = "pg"
	dialectMysql    = "mysql"
)

// ListOptions describes a paginated, filtered and sorted list request
type ListOptions struct {
	PageSize int
	Page     int
	Sort     string
	Query    string
}

type DataStore struct {
	log      *zap.Logger
	db       *sqlx.DB
	sq       sq.StatementBuilderType
	dialect  string
	adapters map[string]*fq.Adapter
	migrate  func() error
	now      func() time.Time
}

func (d *DataStore) Close() {
	d.db.Close()
}

func (d *DataStore) EnsureUsable() error {
	if d.migrate != nil {
		return d.migrate()
	}
	return nil
}

// Ping checks the connection
func (d *DataStore) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DataStore) exists(
	ctx context.Context,
	table string,
	pred interface{},
	args ...interface{},
) (bool, error) {
	var result bool
	q := d.sq.Select("1").Prefix("SELECT EXISTS (").From(table).Where(pred, args...).Suffix(")")
	err := q.RunWith(d.db).QueryRowContext(ctx).Scan(&result)
	if err != nil {
		return false, err
	}
	return result, nil
}

func (d *DataStore) getStatement(
	ctx context.Context,
	dest interface{},
	statement sq.SelectBuilder,
	tx *sqlx.Tx,
) error {
	q, a, err := statement.ToSql()
	if err != nil {
		d.log.Error("Unable to construct sql", zap.Error(err))
		return err
	}
	if tx != nil {
		return tx.GetContext(ctx, dest, q, a...)
	}
	return d.db.GetContext(ctx, dest, q, a...)
}

func (d *DataStore) selectStatement(
	ctx context.Context,
	dest interface{},
	statement sq.SelectBuilder,
	tx *sqlx.Tx,
) error {
	q, a, err := statement.ToSql()
	if err != nil {
		d.log.Error("Unable to construct sql", zap.Error(err))
		return err
	}
	if tx != nil {
		return tx.SelectContext(ctx, dest, q, a...)
	}
	return d.db.SelectContext(ctx, dest, q, a...)
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (d *DataStore) execStatement(
	ctx context.Context,
	statement sqlizer,
	tx *sqlx.Tx,
) (sql.Result, error) {
	q, a, err := statement.ToSql()
	if err != nil {
		d.log.Error("Unable to construct sql", zap.Error(err))
		return nil, err
	}
	if tx != nil {
		return tx.ExecContext(ctx, q, a...)
	}
	return d.db.ExecContext(ctx, q, a...)
}

func (d *DataStore) insertStatement(
	ctx context.Context,
	statement sq.InsertBuilder,
	tx *sqlx.Tx,
) (sql.Result, error) {
	return d.execStatement(ctx, statement, tx)
}

func (d *DataStore) updateStatement(
	ctx context.Context,
	statement sq.UpdateBuilder,
	tx *sqlx.Tx,
) (sql.Result, error) {
	return d.execStatement(ctx, statement, tx)
}

func (d *DataStore) deleteStatement(
	ctx context.Context,
	statement sq.DeleteBuilder,
	tx *sqlx.Tx,
) (sql.Result, error) {
	return d.execStatement(ctx, statement, tx)
}

// returningInsertStatement inserts and yields the generated id,
// mysql has no RETURNING so it falls back to LastInsertId
func (d *DataStore) returningInsertStatement(
	ctx context.Context,
	statement sq.InsertBuilder,
	tx *sqlx.Tx,
) (int, error) {
	if d.dialect == dialectMysql {
		res, err := d.insertStatement(ctx, statement, tx)
		if err != nil {
			return 0, err
		}
		id, err := res.LastInsertId()
		return int(id), err
	}
	q, a, err := statement.Suffix("RETURNING id").ToSql()
	if err != nil {
		d.log.Error("Unable to construct sql", zap.Error(err))
		return 0, err
	}
	var id int
	if tx != nil {
		err = tx.GetContext(ctx, &id, q, a...)
	} else {
		err = d.db.GetContext(ctx, &id, q, a...)
	}
	return id, err
}

// conditionalUpdate runs a compare and swap style update, zero affected rows is ErrConflict
func (d *DataStore) conditionalUpdate(
	ctx context.Context,
	statement sq.UpdateBuilder,
	tx *sqlx.Tx,
) error {
	res, err := d.updateStatement(ctx, statement, tx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (d *DataStore) begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		d.log.Error("Unable to start transaction", zap.Error(err))
		return nil, err
	}
	return tx, nil
}

func (d *DataStore) rollBack(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		d.log.Error("Rollback failed", zap.Error(err))
	}
}

func (d *DataStore) whereFromAdapater(
	table string,
	query string,
) (func(sq.SelectBuilder) sq.SelectBuilder, error) {
	if query != "" {
		where, err := d.adapters[table].Where(query)
		if err != nil {
			return nil, err
		}
		w, a, err := where.ToSql()
		if err != nil {
			return nil, err
		}
		return func(sb sq.SelectBuilder) sq.SelectBuilder {
			return sb.Where(w, a...)
		}, nil

	}
	return func(sb sq.SelectBuilder) sq.SelectBuilder {
		return sb
	}, nil
}

func (d *DataStore) orderByFromAdapater(
	q sq.SelectBuilder,
	table string,
	defaultOrderby string,
	opts ListOptions,
) sq.SelectBuilder {
	if opts.Sort != "" {
		order, err := d.adapters[table].OrderBy(opts.Sort)
		if err != nil {
			q = q.OrderBy(defaultOrderby)
		} else {
			or, _, _ := order.ToSql()
			q = q.OrderBy(or)
		}
	} else {
		q = q.OrderBy(defaultOrderby)
	}
	return q
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func NewStore(logger *zap.Logger, cfg *config.DatabaseConfiguration) (*DataStore, error) {
	switch cfg.Type {
	case dialectSqlite:
		return NewSqliteStore(logger.Named("database"), cfg)
	case dialectMysql:
		return NewMysqlStore(logger.Named("database"), cfg)
	case dialectPostgres:
		return NewPostgrestore(logger.Named("database"), cfg)
	default:
		return nil, errors.New("unknown datastore")
	}
}

func NewMysqlStore(logger *zap.Logger, cfg *config.DatabaseConfiguration) (*DataStore, error) {
	// clientFoundRows makes RowsAffected report matched rows like the other dialects
	adaptedDsn := cfg.DSN
	if strings.Contains(adaptedDsn, "?") {
		adaptedDsn += "&parseTime=true&clientFoundRows=true"
	} else {
		adaptedDsn += "?parseTime=true&clientFoundRows=true"
	}
	db, err := sqlx.Open("mysql", adaptedDsn)
	if err != nil {
		logger.Error("Could open database", zap.Error(err))
		return nil, err
	}

	migrate := func() error {
		sep := "?"
		if strings.Contains(cfg.DSN, "?") {
			sep = "&"
		}
		migdb, err := sqlx.Open("mysql", cfg.DSN+sep+"multiStatements=true")
		if err != nil {
			logger.Error("Could open database", zap.Error(err))
			return err
		}
		defer migdb.Close()

		migrator := schema.NewMigrator(schema.WithDialect(schema.MySQL))
		mig, err := schema.FSMigrations(migrations, "migrations/mysql/*.sql")
		if err != nil {
			return err
		}
		return migrator.Apply(
			migdb,
			mig,
		)
	}

	return &DataStore{
		log:      logger,
		db:       db,
		sq:       sq.StatementBuilder.PlaceholderFormat(sq.Question),
		dialect:  dialectMysql,
		migrate:  migrate,
		adapters: createMapping(fq.WithDialectMariaDB()),
		now:      utcNow,
	}, nil

}

func NewPostgrestore(logger *zap.Logger, cfg *config.DatabaseConfiguration) (*DataStore, error) {
	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		logger.Error("Could open database", zap.Error(err))
		return nil, err
	}

	migrate := func() error {
		database := db.DB
		migrator := schema.NewMigrator(schema.WithDialect(schema.Postgres))
		mig, err := schema.FSMigrations(migrations, "migrations/pg/*.sql")
		if err != nil {
			return err
		}
		return migrator.Apply(
			database,
			mig,
		)
	}

	return &DataStore{
		log:      logger,
		db:       db,
		sq:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		dialect:  dialectPostgres,
		migrate:  migrate,
		adapters: createMapping(fq.WithDialectPostgres()),
		now:      utcNow,
	}, nil

}

func NewSqliteStore(logger *zap.Logger, cfg *config.DatabaseConfiguration) (*DataStore, error) {
	db, err := sqlx.Open("sqlite3", cfg.DSN)
	if err != nil {
		logger.Error("Could open database", zap.Error(err))
		return nil, err
	}
	// sqlite allows a single writer, serialize through one connection
	db.SetMaxOpenConns(1)

	// check if dsn contains a directory which needs to be created
	split := strings.Split(cfg.DSN, "?")
	if len(split) >= 1 && strings.ContainsRune(split[0], os.PathSeparator) {
		striped := strings.TrimPrefix(split[0], "file:")
		dir := filepath.Dir(striped)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			logger.Warn("Trying to create directory", zap.String("directory", dir))
			err = os.MkdirAll(dir, 0750)
			if err != nil {
				logger.Error("Could open database", zap.Error(err))
				return nil, err
			}
		}

	}

	migrate := func() error {
		database := db.DB
		migrator := schema.NewMigrator(schema.WithDialect(schema.SQLite))
		mig, err := schema.FSMigrations(migrations, "migrations/sqlite/*.sql")
		if err != nil {
			return err
		}
		return migrator.Apply(
			database,
			mig,
		)
	}

	return &DataStore{
		log:      logger,
		db:       db,
		sq:       sq.StatementBuilder.PlaceholderFormat(sq.Question),
		dialect:  dialectSqlite,
		migrate:  migrate,
		adapters: createMapping(fq.WithDialectSQLite()),
		now:      utcNow,
	}, nil

}

func createMapping(options ...func(*fq.Adapter)) map[string]*fq.Adapter {
	adapters := make(map[string]*fq.Adapter)
	adapters["applications"] = fq.NewAdapterFor(tables.ApplicationTable{}, options...)
	return adapters
}

func (d *DataStore) Auditor() Auditor {
	return &auditor{
		db:  d.db,
		sq:  d.sq,
		now: d.now,
	}
}
