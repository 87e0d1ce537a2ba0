// Package sqlxrepos implements the core repositories on PostgreSQL.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core"
)

// postgres error codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func hasPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

func isUniqueViolation(err error) bool {
	return hasPQCode(err, uniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasPQCode(err, foreignKeyViolation)
}

// trapNoRowsErr maps the "no rows" error to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func get(ctx context.Context, db sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, db, dest, query, args...)
}

func selectAll(ctx context.Context, db sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, db, dest, query, args...)
}

func exec(ctx context.Context, db sqlx.ExecerContext, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// orderBy returns the ORDER BY clauses of the orderings on allowed columns.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool) []string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	return clauses
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// searchExpr matches val anywhere in one of the columns, case-insensitively.
func searchExpr(val string, columns ...string) sq.Or {
	pattern := likePattern(val)
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.ILike{col: pattern})
	}
	return or
}

// DB is the handle the repositories run their queries on.
type DB interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

func likePrefix(s string) string {
	return likeEscaper.Replace(s) + "%"
}
