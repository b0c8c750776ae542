package repository

import (
	"context"
	"database/sql"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var bookColumns = []string{
	"id",
	`title_en AS "title.en"`,
	`title_ar AS "title.ar"`,
	`description_en AS "description.en"`,
	`description_ar AS "description.ar"`,
	"isbn",
	"genre",
	"number_of_available_copies",
	"is_borrowable",
	"number_of_borrowable_days",
	"is_open_to_reviews",
	"min_age",
	"author_id",
	"cover_image_url",
	"published_date",
	"is_published",
	"created_at",
	"updated_at",
}

// bookListColumns is the management listing projection: no cover url.
var bookListColumns = func() []string {
	cols := make([]string, 0, len(bookColumns)-1)
	for _, c := range bookColumns {
		if c != "cover_image_url" {
			cols = append(cols, c)
		}
	}
	return cols
}()

var localizedColumns = map[model.Lang][]string{
	model.LangEn: {"id", "title_en AS title", "description_en AS description", "genre", "cover_image_url", "is_borrowable"},
	model.LangAr: {"id", "title_ar AS title", "description_ar AS description", "genre", "cover_image_url", "is_borrowable"},
}

func bookReturning() string {
	return "RETURNING " + joinColumns(bookColumns)
}

func bookValues(b model.Book) map[string]interface{} {
	return map[string]interface{}{
		"title_en":                   b.Title.En,
		"title_ar":                   b.Title.Ar,
		"description_en":             b.Description.En,
		"description_ar":             b.Description.Ar,
		"isbn":                       b.ISBN,
		"genre":                      b.Genre,
		"number_of_available_copies": b.NumberOfAvailableCopies,
		"is_borrowable":              b.IsBorrowable,
		"number_of_borrowable_days":  b.NumberOfBorrowableDays,
		"is_open_to_reviews":         b.IsOpenToReviews,
		"min_age":                    b.MinAge,
		"author_id":                  b.AuthorID,
		"cover_image_url":            b.CoverImageURL,
		"published_date":             b.PublishedDate,
	}
}

func (r *repository) CreateBook(ctx context.Context, b model.Book) (model.Book, error) {
	values := bookValues(b)
	values["id"] = b.ID
	values["is_published"] = false
	q := qb.Insert(booksTableName).SetMap(values).Suffix(bookReturning())
	var out model.Book
	if err := r.get(ctx, &out, q); err != nil {
		return model.Book{}, errors.Wrap(mapPgError(err), "CreateBook")
	}
	return out, nil
}

func (r *repository) GetBook(ctx context.Context, id uuid.UUID) (model.Book, error) {
	q := qb.Select(bookColumns...).From(booksTableName).Where(sq.Eq{"id": id})
	var out model.Book
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.NotFound("book")
		}
		return model.Book{}, errors.Wrap(err, "GetBook")
	}
	return out, nil
}

// UpdateBook writes every editable field of an unpublished book.
func (r *repository) UpdateBook(ctx context.Context, b model.Book) (model.Book, error) {
	values := bookValues(b)
	values["updated_at"] = sq.Expr("now()")
	q := qb.Update(booksTableName).
		SetMap(values).
		Where(sq.Eq{"id": b.ID, "is_published": false}).
		Suffix(bookReturning())
	var out model.Book
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, r.publishGateError(ctx, b.ID)
		}
		return model.Book{}, errors.Wrap(mapPgError(err), "UpdateBook")
	}
	return out, nil
}

// TogglePublished flips the publish flag in a single statement.
func (r *repository) TogglePublished(ctx context.Context, id uuid.UUID) (model.Book, error) {
	q := qb.Update(booksTableName).
		Set("is_published", sq.Expr("NOT is_published")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix(bookReturning())
	var out model.Book
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.NotFound("book")
		}
		return model.Book{}, errors.Wrap(err, "TogglePublished")
	}
	return out, nil
}

func (r *repository) DeleteBook(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, qb.Delete(booksTableName).Where(sq.Eq{"id": id, "is_published": false}))
	if err != nil {
		return errors.Wrap(err, "DeleteBook")
	}
	if n == 0 {
		return r.publishGateError(ctx, id)
	}
	return nil
}

// publishGateError explains why a guarded write touched no rows.
func (r *repository) publishGateError(ctx context.Context, id uuid.UUID) error {
	var published bool
	q := qb.Select("is_published").From(booksTableName).Where(sq.Eq{"id": id})
	if err := r.get(ctx, &published, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("book")
		}
		return errors.Wrap(err, "publishGateError")
	}
	return errs.StateConflict("published book cannot be modified")
}

func (r *repository) CountBooks(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	q := qb.Select("count(*)").From(booksTableName).Where(sq.Eq{"id": ids})
	if err := r.get(ctx, &n, q); err != nil {
		return 0, errors.Wrap(err, "CountBooks")
	}
	return n, nil
}

func (r *repository) ListBooks(ctx context.Context, f model.BookFilter) (model.Paginated[model.Book], error) {
	base := qb.Select().From(booksTableName)
	if f.Title != "" {
		p := contains(f.Title)
		base = base.Where(sq.Or{
			sq.ILike{"title_en": p},
			sq.ILike{"title_ar": p},
			sq.ILike{"isbn": p},
		})
	}
	if f.ISBN != "" {
		base = base.Where(sq.ILike{"isbn": contains(f.ISBN)})
	}
	if f.Genre != "" {
		base = base.Where(sq.Eq{"genre": f.Genre})
	}
	if f.Published != nil {
		base = base.Where(sq.Eq{"is_published": *f.Published})
	}
	res, err := paginate[model.Book](ctx, r.ext, pageQuery{
		base:    base,
		columns: bookListColumns,
		orderBy: []string{"created_at DESC", "author_id ASC"},
	}, f.PageRequest)
	return res, errors.Wrap(err, "ListBooks")
}

func (r *repository) ListPublishedBooks(ctx context.Context, f model.PublishedBookFilter, lang model.Lang) (model.Paginated[model.BookCard], error) {
	cols, ok := localizedColumns[lang]
	if !ok {
		cols = localizedColumns[model.LangEn]
	}
	base := qb.Select().From(booksTableName).Where(sq.Eq{"is_published": true})
	if f.Genre != "" {
		base = base.Where(sq.Eq{"genre": f.Genre})
	}
	res, err := paginate[model.BookCard](ctx, r.ext, pageQuery{
		base:    base,
		columns: cols,
		orderBy: []string{"number_of_available_copies DESC", "id ASC"},
	}, f.PageRequest)
	return res, errors.Wrap(err, "ListPublishedBooks")
}

// DecrementCopies takes one copy only while stock remains.
func (r *repository) DecrementCopies(ctx context.Context, id uuid.UUID) error {
	q := qb.Update(booksTableName).
		Set("number_of_available_copies", sq.Expr("number_of_available_copies - 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Gt{"number_of_available_copies": 0})
	n, err := r.exec(ctx, q)
	if err != nil {
		return errors.Wrap(err, "DecrementCopies")
	}
	if n == 0 {
		return errs.ErrOutOfStock
	}
	return nil
}

func (r *repository) IncrementCopies(ctx context.Context, id uuid.UUID) error {
	q := qb.Update(booksTableName).
		Set("number_of_available_copies", sq.Expr("number_of_available_copies + 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	n, err := r.exec(ctx, q)
	if err != nil {
		return errors.Wrap(err, "IncrementCopies")
	}
	if n == 0 {
		return errs.NotFound("book")
	}
	return nil
}

func (r *repository) PublishStats(ctx context.Context) (total, published int, err error) {
	var row struct {
		Total     int `db:"total"`
		Published int `db:"published"`
	}
	q := qb.Select("count(*) AS total", "count(*) FILTER (WHERE is_published) AS published").From(booksTableName)
	if err := r.get(ctx, &row, q); err != nil {
		return 0, 0, errors.Wrap(err, "PublishStats")
	}
	return row.Total, row.Published, nil
}
