package core

import (
	"context"
	"math"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	// Transactor runs fn as a single atomic unit of work.
	// Repositories called with the given exec take part in the transaction;
	// any error returned by fn rolls every write back.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination is a 1-indexed page request.
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination sanitizes page & limit; a non-positive limit falls back to defaultLimit.
func NewPagination(page, limit, defaultLimit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Slice returns the [start, end) bounds of the page within a list of n items.
func (p Pagination) Slice(n int) (int, int) {
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

type PageInfo struct {
	TotalItems  int  `json:"totalItems"`
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func (p Pagination) Info(total int) PageInfo {
	pages := int(math.Ceil(float64(total) / float64(p.Limit)))
	return PageInfo{
		TotalItems:  total,
		TotalPages:  pages,
		CurrentPage: p.Page,
		Limit:       p.Limit,
		HasNextPage: p.Page < pages,
		HasPrevPage: p.Page > 1,
	}
}
