package repository

import (
	"context"
	"database/sql"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var authorColumns = []string{
	"id",
	`name_en AS "name.en"`,
	`name_ar AS "name.ar"`,
	"email",
	`biography_en AS "biography.en"`,
	`biography_ar AS "biography.ar"`,
	"profile_image_url",
	"birth_date",
	"created_at",
	"updated_at",
}

func authorReturning() string {
	return "RETURNING " + joinColumns(authorColumns)
}

func (r *repository) CreateAuthor(ctx context.Context, a model.Author) (model.Author, error) {
	q := qb.Insert(authorsTableName).
		Columns("id", "name_en", "name_ar", "email", "biography_en", "biography_ar", "profile_image_url", "birth_date").
		Values(a.ID, a.Name.En, a.Name.Ar, a.Email, a.Biography.En, a.Biography.Ar, a.ProfileImageURL, a.BirthDate).
		Suffix(authorReturning())
	var out model.Author
	if err := r.get(ctx, &out, q); err != nil {
		return model.Author{}, errors.Wrap(mapPgError(err), "CreateAuthor")
	}
	return out, nil
}

func (r *repository) GetAuthor(ctx context.Context, id uuid.UUID) (model.Author, error) {
	q := qb.Select(authorColumns...).From(authorsTableName).Where(sq.Eq{"id": id})
	var out model.Author
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Author{}, errs.NotFound("author")
		}
		return model.Author{}, errors.Wrap(err, "GetAuthor")
	}
	return out, nil
}

func (r *repository) UpdateAuthor(ctx context.Context, a model.Author) (model.Author, error) {
	q := qb.Update(authorsTableName).
		SetMap(map[string]interface{}{
			"name_en":           a.Name.En,
			"name_ar":           a.Name.Ar,
			"email":             a.Email,
			"biography_en":      a.Biography.En,
			"biography_ar":      a.Biography.Ar,
			"profile_image_url": a.ProfileImageURL,
			"birth_date":        a.BirthDate,
			"updated_at":        sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": a.ID}).
		Suffix(authorReturning())
	var out model.Author
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Author{}, errs.NotFound("author")
		}
		return model.Author{}, errors.Wrap(mapPgError(err), "UpdateAuthor")
	}
	return out, nil
}

func (r *repository) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, qb.Delete(authorsTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return errs.Conflict("author still has books in the catalog")
		}
		return errors.Wrap(err, "DeleteAuthor")
	}
	if n == 0 {
		return errs.NotFound("author")
	}
	return nil
}
