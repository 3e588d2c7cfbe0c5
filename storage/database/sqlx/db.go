// Package sqlxrepos is the Postgres school.Store, built with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type (
	DB struct {
		repository
		db *sqlx.DB
	}

	// repository runs its queries against the database or against the transaction of a unit.
	repository struct {
		ext sqlx.ExtContext
	}
)

var (
	_ school.Store      = (*DB)(nil)
	_ school.Repository = (*repository)(nil)
)

// New wraps db, opened with driverName ("postgres" or "pgx").
func New(db *sql.DB, driverName string) *DB {
	xdb := sqlx.NewDb(db, driverName)
	return &DB{repository: repository{ext: xdb}, db: xdb}
}

func (db *DB) WithinTx(ctx context.Context, fn func(repo school.Repository) error) error {
	begin := func(ctx context.Context) (*sqlx.Tx, error) { return db.db.BeginTxx(ctx, nil) }
	return core.RunInTx(ctx, begin, func(tx *sqlx.Tx) error {
		return fn(&repository{ext: tx})
	})
}

func (db *DB) Close() error {
	return db.db.Close()
}

// get scans the single row selected by q into dest, failing with NotFound when there is none.
func (repo *repository) get(ctx context.Context, dest interface{}, q sq.Sqlizer, entity, id string) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.ext, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.NewNotFoundError(entity, id)
		}
		return errors.Wrapf(err, "getting %s", entity)
	}
	return nil
}

func (repo *repository) selectAll(ctx context.Context, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, repo.ext, dest, query, args...)
}

func (repo *repository) exec(ctx context.Context, q sq.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// pgCode returns the SQLSTATE of a Postgres error raised through either driver.
func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// inIDs restricts col to ids; an empty slice leaves the query unrestricted.
func inIDs(where sq.And, col string, ids []string) sq.And {
	if len(ids) == 0 {
		return where
	}
	return append(where, sq.Eq{col: ids})
}

func eq(where sq.And, col, value string) sq.And {
	if value == "" {
		return where
	}
	return append(where, sq.Eq{col: value})
}
