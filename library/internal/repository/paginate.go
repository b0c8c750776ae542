package repository

import (
	"context"

	"github.com/Astemirdum/library-cms/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type pageQuery struct {
	// base carries FROM/JOIN/WHERE only; columns are added per query.
	base    sq.SelectBuilder
	columns []string
	orderBy []string
}

func (pq pageQuery) countSQL() (string, []interface{}, error) {
	return pq.base.Columns("count(*)").ToSql()
}

func (pq pageQuery) pageSQL(p model.PageRequest) (string, []interface{}, error) {
	return pq.base.
		Columns(pq.columns...).
		OrderBy(pq.orderBy...).
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset())).
		ToSql()
}

// paginate is the generic filter/sort/paginate primitive behind every listing.
func paginate[T any](ctx context.Context, db sqlx.QueryerContext, pq pageQuery, p model.PageRequest) (model.Paginated[T], error) {
	p = p.Normalize()

	countQ, countArgs, err := pq.countSQL()
	if err != nil {
		return model.Paginated[T]{}, errors.Wrap(err, "count ToSql")
	}
	var total int
	if err := sqlx.GetContext(ctx, db, &total, countQ, countArgs...); err != nil {
		return model.Paginated[T]{}, errors.Wrap(err, "count")
	}

	q, args, err := pq.pageSQL(p)
	if err != nil {
		return model.Paginated[T]{}, errors.Wrap(err, "page ToSql")
	}
	items := make([]T, 0, p.Limit)
	if err := sqlx.SelectContext(ctx, db, &items, q, args...); err != nil {
		return model.Paginated[T]{}, errors.Wrap(err, "page")
	}

	return model.Paginated[T]{
		Paging: model.NewPaging(total, p),
		Data:   items,
	}, nil
}
