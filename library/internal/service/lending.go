package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/library/internal/repository"
	"github.com/Astemirdum/library-cms/pkg/mailer"
	"github.com/Astemirdum/library-cms/pkg/notify"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BookCache holds read views of books that go stale when stock moves.
type BookCache interface {
	Invalidate(id uuid.UUID)
}

// Lending runs borrow and return, each as one transaction spanning the
// member and the book.
type Lending struct {
	repo     repository.Repository
	notifier notify.Notifier
	books    BookCache
	now      clock
	log      *zap.Logger
}

func NewLending(repo repository.Repository, notifier notify.Notifier, books BookCache, log *zap.Logger) *Lending {
	return &Lending{
		repo:     repo,
		notifier: notifier,
		books:    books,
		now:      time.Now,
		log:      log.Named("lending"),
	}
}

// checkBorrow applies the eligibility rules in their fixed order.
func checkBorrow(member model.Member, book model.Book, now time.Time) error {
	switch {
	case !book.IsBorrowable:
		return errs.ErrNotBorrowable
	case book.NumberOfAvailableCopies <= 0:
		return errs.ErrOutOfStock
	case member.ReturnRate < MinReturnRate:
		return errs.ErrLowStanding
	case member.Age(now) < book.MinAge:
		return errs.ErrAgeRestricted
	}
	return nil
}

func (l *Lending) Borrow(ctx context.Context, memberID, bookID uuid.UUID) (model.BorrowResult, error) {
	var (
		book model.Book
		loan model.Loan
	)
	err := l.repo.InTx(ctx, func(repo repository.Repository) error {
		member, err := repo.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if book, err = repo.GetBook(ctx, bookID); err != nil {
			return err
		}
		now := l.now()
		if err := checkBorrow(member, book, now); err != nil {
			return err
		}
		_, err = repo.OpenLoan(ctx, memberID, bookID)
		switch {
		case err == nil:
			return errs.ErrAlreadyBorrowed
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}

		loan = model.Loan{
			ID:         uuid.New(),
			MemberID:   memberID,
			BookID:     bookID,
			BorrowedAt: now,
		}
		if err := repo.CreateLoan(ctx, loan); err != nil {
			return err
		}
		return repo.DecrementCopies(ctx, bookID)
	})
	if err != nil {
		return model.BorrowResult{}, err
	}
	l.books.Invalidate(bookID)

	l.notifyAuthor(ctx, book)
	return model.BorrowResult{
		Loan:    loan,
		DueDate: book.DueDate(loan.BorrowedAt),
		Message: "Book borrowed successfully!",
	}, nil
}

func (l *Lending) notifyAuthor(ctx context.Context, book model.Book) {
	author, err := l.repo.GetAuthor(ctx, book.AuthorID)
	if err != nil {
		l.log.Warn("author lookup for borrow notice", zap.Stringer("book", book.ID), zap.Error(err))
		return
	}
	if author.Email == "" {
		return
	}
	title := book.Title.En
	l.notifier.Notify(ctx, mailer.Message{
		To:      author.Email,
		Subject: fmt.Sprintf("Your book %q has been borrowed", title),
		Text:    fmt.Sprintf("Hello,\n\nWe wanted to inform you that your book %q has been borrowed by a member.", title),
		HTML: fmt.Sprintf("<p>Hello,</p><p>We wanted to inform you that your book \"<strong>%s</strong>\" has been borrowed by a member.</p>",
			html.EscapeString(title)),
	})
}

func (l *Lending) Return(ctx context.Context, memberID, bookID uuid.UUID) (model.ReturnResult, error) {
	var res model.ReturnResult
	err := l.repo.InTx(ctx, func(repo repository.Repository) error {
		if _, err := repo.GetMember(ctx, memberID); err != nil {
			return err
		}
		book, err := repo.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		loan, err := repo.LatestLoanForUpdate(ctx, memberID, bookID)
		if err != nil {
			return err
		}
		if !loan.IsOpen() {
			return errs.ErrAlreadyReturned
		}

		now := l.now()
		if res.Loan, err = repo.CloseLoan(ctx, loan.ID, now); err != nil {
			return err
		}
		res.OnTime = !now.After(book.DueDate(loan.BorrowedAt))
		delta := ReturnRateStep
		if !res.OnTime {
			delta = -ReturnRateStep
		}
		if res.ReturnRate, err = repo.AddReturnRate(ctx, memberID, delta); err != nil {
			return err
		}
		// stock comes back whether or not the loan was overdue
		return repo.IncrementCopies(ctx, bookID)
	})
	if err != nil {
		return model.ReturnResult{}, err
	}
	l.books.Invalidate(bookID)
	res.Message = "Book returned successfully!"
	return res, nil
}

// Loans lists the member's ledger, newest first, with each row classified.
func (l *Lending) Loans(ctx context.Context, memberID uuid.UUID) ([]model.LoanView, error) {
	if _, err := l.repo.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	records, err := l.repo.ListLoans(ctx, memberID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	views := make([]model.LoanView, 0, len(records))
	for _, rec := range records {
		views = append(views, Classify(rec, now))
	}
	return views, nil
}
