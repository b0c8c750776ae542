package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var loanColumns = []string{"id", "member_id", "book_id", "borrowed_at", "returned_at"}

func (r *repository) CreateLoan(ctx context.Context, l model.Loan) error {
	q := qb.Insert(loansTableName).
		Columns("id", "member_id", "book_id", "borrowed_at").
		Values(l.ID, l.MemberID, l.BookID, l.BorrowedAt)
	if _, err := r.exec(ctx, q); err != nil {
		return errors.Wrap(mapPgError(err), "CreateLoan")
	}
	return nil
}

func (r *repository) OpenLoan(ctx context.Context, memberID, bookID uuid.UUID) (model.Loan, error) {
	q := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"member_id": memberID, "book_id": bookID, "returned_at": nil})
	var out model.Loan
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.NotFound("loan")
		}
		return model.Loan{}, errors.Wrap(err, "OpenLoan")
	}
	return out, nil
}

func (r *repository) LatestLoanForUpdate(ctx context.Context, memberID, bookID uuid.UUID) (model.Loan, error) {
	q := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"member_id": memberID, "book_id": bookID}).
		OrderBy("(returned_at IS NULL) DESC", "borrowed_at DESC").
		Limit(1).
		Suffix("FOR UPDATE")
	var out model.Loan
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrNotBorrowed
		}
		return model.Loan{}, errors.Wrap(err, "LatestLoanForUpdate")
	}
	return out, nil
}

// CloseLoan stamps returned_at once; a closed row is never rewritten.
func (r *repository) CloseLoan(ctx context.Context, loanID uuid.UUID, returnedAt time.Time) (model.Loan, error) {
	q := qb.Update(loansTableName).
		Set("returned_at", returnedAt).
		Where(sq.Eq{"id": loanID, "returned_at": nil}).
		Suffix("RETURNING " + joinColumns(loanColumns))
	var out model.Loan
	if err := r.get(ctx, &out, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrAlreadyReturned
		}
		return model.Loan{}, errors.Wrap(err, "CloseLoan")
	}
	return out, nil
}

func (r *repository) ListLoans(ctx context.Context, memberID uuid.UUID) ([]model.LoanRecord, error) {
	records := make([]model.LoanRecord, 0)
	q := qb.Select(
		"l.id", "l.member_id", "l.book_id", "l.borrowed_at", "l.returned_at",
		`b.title_en AS "title.en"`, `b.title_ar AS "title.ar"`,
		"b.number_of_borrowable_days",
	).
		From(loansTableName + " l").
		Join(booksTableName + " b ON b.id = l.book_id").
		Where(sq.Eq{"l.member_id": memberID}).
		OrderBy("l.borrowed_at DESC")
	if err := r.selectAll(ctx, &records, q); err != nil {
		return nil, errors.Wrap(err, "ListLoans")
	}
	return records, nil
}
