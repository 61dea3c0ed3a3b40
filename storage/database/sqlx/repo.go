// Package sqlxrepos implements the domain repositories on top of PostgreSQL.
package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const uniqueViolation = "23505"

type baseRepository struct {
	db *sqlx.DB
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps a unique violation of `constraint` to conflict
func trapUniqueErr(err error, constraint string, conflict error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint {
		return conflict
	}
	return errors.Wrap(err, msg)
}

// where accumulates AND-ed conditions along with their positional args.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, replacing each "?" with the next positional placeholder.
func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends the LIMIT / OFFSET clause of p to the args.
func (w *where) page(p *core.Pagination) string {
	if p == nil || p.Limit < 1 {
		return ""
	}
	w.args = append(w.args, p.Limit, p.Offset())
	n := len(w.args)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n-1, n)
}

func likeArg(s string) string {
	return "%" + s + "%"
}
