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

var memberColumns = []string{
	"id",
	"name",
	"username",
	"email",
	"birth_date",
	"return_rate",
	"created_at",
	"updated_at",
}

func memberReturning() string {
	return "RETURNING " + joinColumns(memberColumns)
}

func (r *repository) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	q := qb.Insert(membersTableName).
		Columns("id", "name", "username", "email", "birth_date", "return_rate").
		Values(m.ID, m.Name, m.Username, m.Email, m.BirthDate, m.ReturnRate).
		Suffix(memberReturning())
	var out model.Member
	if err := r.get(ctx, &out, q); err != nil {
		return model.Member{}, errors.Wrap(mapPgError(err), "CreateMember")
	}
	return out, nil
}

func (r *repository) GetMember(ctx context.Context, id uuid.UUID) (model.Member, error) {
	q := qb.Select(memberColumns...).From(membersTableName).Where(sq.Eq{"id": id})
	var out model.Member
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errs.NotFound("member")
		}
		return model.Member{}, errors.Wrap(err, "GetMember")
	}
	subs, err := r.subscriptions(ctx, id)
	if err != nil {
		return model.Member{}, err
	}
	out.SubscribedBooks = subs
	return out, nil
}

func (r *repository) subscriptions(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	q := qb.Select("book_id").
		From(subscriptionsTableName).
		Where(sq.Eq{"member_id": memberID}).
		OrderBy("book_id")
	if err := r.selectAll(ctx, &ids, q); err != nil {
		return nil, errors.Wrap(err, "subscriptions")
	}
	return ids, nil
}

func (r *repository) UpdateMember(ctx context.Context, m model.Member) (model.Member, error) {
	q := qb.Update(membersTableName).
		SetMap(map[string]interface{}{
			"name":       m.Name,
			"username":   m.Username,
			"email":      m.Email,
			"birth_date": m.BirthDate,
			"updated_at": sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": m.ID}).
		Suffix(memberReturning())
	var out model.Member
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errs.NotFound("member")
		}
		return model.Member{}, errors.Wrap(mapPgError(err), "UpdateMember")
	}
	out.SubscribedBooks = m.SubscribedBooks
	return out, nil
}

func (r *repository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, qb.Delete(membersTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "DeleteMember")
	}
	if n == 0 {
		return errs.NotFound("member")
	}
	return nil
}

// SetSubscriptions replaces the member's subscription set.
func (r *repository) SetSubscriptions(ctx context.Context, memberID uuid.UUID, bookIDs []uuid.UUID) error {
	if _, err := r.exec(ctx, qb.Delete(subscriptionsTableName).Where(sq.Eq{"member_id": memberID})); err != nil {
		return errors.Wrap(err, "SetSubscriptions delete")
	}
	if len(bookIDs) == 0 {
		return nil
	}
	q := qb.Insert(subscriptionsTableName).Columns("member_id", "book_id")
	for _, id := range bookIDs {
		q = q.Values(memberID, id)
	}
	q = q.Suffix("ON CONFLICT DO NOTHING")
	if _, err := r.exec(ctx, q); err != nil {
		return errors.Wrap(mapPgError(err), "SetSubscriptions insert")
	}
	return nil
}

func (r *repository) ToggleSubscription(ctx context.Context, memberID, bookID uuid.UUID) (bool, error) {
	n, err := r.exec(ctx, qb.Delete(subscriptionsTableName).
		Where(sq.Eq{"member_id": memberID, "book_id": bookID}))
	if err != nil {
		return false, errors.Wrap(err, "ToggleSubscription delete")
	}
	if n > 0 {
		return false, nil
	}
	q := qb.Insert(subscriptionsTableName).
		Columns("member_id", "book_id").
		Values(memberID, bookID).
		Suffix("ON CONFLICT DO NOTHING")
	if _, err := r.exec(ctx, q); err != nil {
		return false, errors.Wrap(mapPgError(err), "ToggleSubscription insert")
	}
	return true, nil
}

func (r *repository) SubscriberEmails(ctx context.Context, bookID uuid.UUID) ([]string, error) {
	emails := make([]string, 0)
	q := qb.Select("m.email").
		From(membersTableName + " m").
		Join(subscriptionsTableName + " s ON s.member_id = m.id").
		Where(sq.Eq{"s.book_id": bookID}).
		OrderBy("m.email")
	if err := r.selectAll(ctx, &emails, q); err != nil {
		return nil, errors.Wrap(err, "SubscriberEmails")
	}
	return emails, nil
}

const borrowedBooksCount = "(SELECT count(*) FROM " + loansTableName +
	" l WHERE l.member_id = m.id AND l.returned_at IS NULL) AS borrowed_books_count"

func (r *repository) SearchMembers(ctx context.Context, f model.MemberFilter) (model.Paginated[model.MemberSummary], error) {
	base := qb.Select().From(membersTableName + " m")
	if f.Name != "" {
		base = base.Where(sq.ILike{"m.name": contains(f.Name)})
	}
	if f.Username != "" {
		base = base.Where(sq.ILike{"m.username": contains(f.Username)})
	}
	if f.Email != "" {
		base = base.Where(sq.ILike{"m.email": contains(f.Email)})
	}
	res, err := paginate[model.MemberSummary](ctx, r.ext, pageQuery{
		base:    base,
		columns: []string{"m.id", "m.name", "m.username", "m.email", "m.return_rate", borrowedBooksCount},
		orderBy: []string{"m.return_rate DESC", "m.created_at ASC"},
	}, f.PageRequest)
	return res, errors.Wrap(err, "SearchMembers")
}

// AddReturnRate shifts the score by delta, clamped to [0, 100].
func (r *repository) AddReturnRate(ctx context.Context, memberID uuid.UUID, delta int) (int, error) {
	q := qb.Update(membersTableName).
		Set("return_rate", sq.Expr("LEAST(100, GREATEST(0, return_rate + ?))", delta)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": memberID}).
		Suffix("RETURNING return_rate")
	var rate int
	if err := r.get(ctx, &rate, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.NotFound("member")
		}
		return 0, errors.Wrap(err, "AddReturnRate")
	}
	return rate, nil
}

func (r *repository) AverageReturnRate(ctx context.Context) (float64, error) {
	var avg float64
	q := qb.Select("COALESCE(AVG(return_rate), 0)::float8").From(membersTableName)
	if err := r.get(ctx, &avg, q); err != nil {
		return 0, errors.Wrap(err, "AverageReturnRate")
	}
	return avg, nil
}
