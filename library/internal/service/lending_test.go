package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/pkg/validate"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	repo       *memRepo
	notifier   *recordingNotifier
	lending    *Lending
	catalog    *Catalog
	membership *Membership
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		repo:     newMemRepo(),
		notifier: &recordingNotifier{},
		now:      time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC),
	}
	v := validate.NewCustomValidator()
	f.catalog = NewCatalog(f.repo, f.notifier, v, time.Minute, log)
	f.lending = NewLending(f.repo, f.notifier, f.catalog, log)
	f.lending.now = func() time.Time { return f.now }
	f.membership = NewMembership(f.repo, v, log)
	return f
}

func (f *fixture) author(t *testing.T) model.Author {
	t.Helper()
	a, err := f.repo.CreateAuthor(context.Background(), model.Author{
		ID:        uuid.New(),
		Name:      model.Bilingual{En: "Frank Herbert", Ar: "فرانك هربرت"},
		Email:     uuid.NewString() + "@authors.test",
		Biography: model.Bilingual{En: "Writer", Ar: "كاتب"},
		BirthDate: time.Date(1920, time.October, 8, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) book(t *testing.T, opts ...func(*model.Book)) model.Book {
	t.Helper()
	b := model.Book{
		ID:                      uuid.New(),
		Title:                   model.Bilingual{En: "Dune", Ar: "كثيب"},
		Description:             model.Description{En: "Desert planet", Ar: "كوكب الصحراء"},
		ISBN:                    "978-0-596-" + uuid.NewString()[:5] + "-7",
		Genre:                   "Fiction",
		NumberOfAvailableCopies: 1,
		IsBorrowable:            true,
		NumberOfBorrowableDays:  14,
		AuthorID:                f.author(t).ID,
	}
	for _, o := range opts {
		o(&b)
	}
	b, err := f.repo.CreateBook(context.Background(), b)
	require.NoError(t, err)
	return b
}

func (f *fixture) member(t *testing.T, rate int, birth time.Time) model.Member {
	t.Helper()
	id := uuid.New()
	m, err := f.repo.CreateMember(context.Background(), model.Member{
		ID:         id,
		Name:       "Reader",
		Username:   id.String(),
		Email:      id.String() + "@members.test",
		BirthDate:  birth,
		ReturnRate: rate,
	})
	require.NoError(t, err)
	return m
}

var adult = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

func (f *fixture) copies(t *testing.T, id uuid.UUID) int {
	t.Helper()
	b, err := f.repo.GetBook(context.Background(), id)
	require.NoError(t, err)
	return b.NumberOfAvailableCopies
}

func (f *fixture) rate(t *testing.T, id uuid.UUID) int {
	t.Helper()
	m, err := f.repo.GetMember(context.Background(), id)
	require.NoError(t, err)
	return m.ReturnRate
}

func TestLending_BorrowAndReturnOnTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t)
	first := f.member(t, 50, adult)
	second := f.member(t, 50, adult)

	res, err := f.lending.Borrow(ctx, first.ID, book.ID)
	require.NoError(t, err)
	require.Equal(t, f.now.AddDate(0, 0, 14), res.DueDate)
	require.Equal(t, 0, f.copies(t, book.ID))

	_, err = f.lending.Borrow(ctx, second.ID, book.ID)
	require.ErrorIs(t, err, errs.ErrOutOfStock)
	require.Equal(t, 0, f.copies(t, book.ID))

	f.now = f.now.AddDate(0, 0, 14)
	ret, err := f.lending.Return(ctx, first.ID, book.ID)
	require.NoError(t, err)
	require.True(t, ret.OnTime)
	require.Equal(t, 55, ret.ReturnRate)
	require.Equal(t, 55, f.rate(t, first.ID))
	require.Equal(t, 1, f.copies(t, book.ID))
	require.NotNil(t, ret.Loan.ReturnedAt)
}

func TestLending_LateReturnLowersScoreAndRestoresStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t)
	m := f.member(t, 50, adult)

	_, err := f.lending.Borrow(ctx, m.ID, book.ID)
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 14).Add(time.Second)
	ret, err := f.lending.Return(ctx, m.ID, book.ID)
	require.NoError(t, err)
	require.False(t, ret.OnTime)
	require.Equal(t, 45, f.rate(t, m.ID))
	require.Equal(t, 1, f.copies(t, book.ID))
}

func TestLending_ScoreStaysInRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ceiling", func(t *testing.T) {
		f := newFixture(t)
		book := f.book(t)
		m := f.member(t, 98, adult)
		_, err := f.lending.Borrow(ctx, m.ID, book.ID)
		require.NoError(t, err)
		ret, err := f.lending.Return(ctx, m.ID, book.ID)
		require.NoError(t, err)
		require.Equal(t, 100, ret.ReturnRate)
	})

	t.Run("floor", func(t *testing.T) {
		f := newFixture(t)
		book := f.book(t)
		m := f.member(t, 3, adult)
		// seeded directly: a member this low cannot borrow anymore
		require.NoError(t, f.repo.CreateLoan(ctx, model.Loan{
			ID: uuid.New(), MemberID: m.ID, BookID: book.ID, BorrowedAt: f.now.AddDate(0, 0, -30),
		}))
		ret, err := f.lending.Return(ctx, m.ID, book.ID)
		require.NoError(t, err)
		require.False(t, ret.OnTime)
		require.Equal(t, 0, ret.ReturnRate)
	})
}

func TestLending_BorrowRejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		rate   int
		birth  time.Time
		book   func(*model.Book)
		target error
	}{
		{
			name:   "low standing with stock available",
			rate:   25,
			birth:  adult,
			target: errs.ErrLowStanding,
		},
		{
			name:   "under age",
			rate:   50,
			birth:  now.AddDate(-10, 0, 0),
			book:   func(b *model.Book) { b.MinAge = 12 },
			target: errs.ErrAgeRestricted,
		},
		{
			name:   "birthday not reached yet this year",
			rate:   50,
			birth:  now.AddDate(-12, 0, 1),
			book:   func(b *model.Book) { b.MinAge = 12 },
			target: errs.ErrAgeRestricted,
		},
		{
			name:   "not borrowable",
			rate:   50,
			birth:  adult,
			book:   func(b *model.Book) { b.IsBorrowable = false },
			target: errs.ErrNotBorrowable,
		},
		{
			name:  "not borrowable wins over stock and standing",
			rate:  0,
			birth: adult,
			book: func(b *model.Book) {
				b.IsBorrowable = false
				b.NumberOfAvailableCopies = 0
			},
			target: errs.ErrNotBorrowable,
		},
		{
			name:   "stock is checked before standing",
			rate:   10,
			birth:  adult,
			book:   func(b *model.Book) { b.NumberOfAvailableCopies = 0 },
			target: errs.ErrOutOfStock,
		},
		{
			name:   "standing is checked before age",
			rate:   10,
			birth:  now.AddDate(-5, 0, 0),
			book:   func(b *model.Book) { b.MinAge = 18 },
			target: errs.ErrLowStanding,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			var opts []func(*model.Book)
			if tt.book != nil {
				opts = append(opts, tt.book)
			}
			book := f.book(t, opts...)
			m := f.member(t, tt.rate, tt.birth)
			before := f.copies(t, book.ID)

			_, err := f.lending.Borrow(ctx, m.ID, book.ID)
			require.ErrorIs(t, err, tt.target)
			require.Equal(t, before, f.copies(t, book.ID))
			require.Empty(t, f.notifier.sent())
		})
	}
}

func TestLending_AgeGateAtBirthday(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	book := f.book(t, func(b *model.Book) { b.MinAge = 12 })
	m := f.member(t, 50, f.now.AddDate(-12, 0, 0))

	_, err := f.lending.Borrow(context.Background(), m.ID, book.ID)
	require.NoError(t, err)
}

func TestLending_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t)
	m := f.member(t, 50, adult)

	_, err := f.lending.Borrow(ctx, uuid.New(), uuid.New())
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.EqualError(t, err, "member not found")

	_, err = f.lending.Borrow(ctx, m.ID, uuid.New())
	require.EqualError(t, err, "book not found")

	_, err = f.lending.Return(ctx, uuid.New(), book.ID)
	require.EqualError(t, err, "member not found")

	_, err = f.lending.Return(ctx, m.ID, uuid.New())
	require.EqualError(t, err, "book not found")
}

func TestLending_AlreadyBorrowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, func(b *model.Book) { b.NumberOfAvailableCopies = 3 })
	m := f.member(t, 50, adult)

	_, err := f.lending.Borrow(ctx, m.ID, book.ID)
	require.NoError(t, err)

	_, err = f.lending.Borrow(ctx, m.ID, book.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyBorrowed)
	require.Equal(t, 2, f.copies(t, book.ID))

	_, err = f.lending.Return(ctx, m.ID, book.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	_, err = f.lending.Borrow(ctx, m.ID, book.ID)
	require.NoError(t, err)
}

func TestLending_ReturnRejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t)
	m := f.member(t, 50, adult)

	_, err := f.lending.Return(ctx, m.ID, book.ID)
	require.ErrorIs(t, err, errs.ErrNotBorrowed)

	_, err = f.lending.Borrow(ctx, m.ID, book.ID)
	require.NoError(t, err)
	_, err = f.lending.Return(ctx, m.ID, book.ID)
	require.NoError(t, err)

	_, err = f.lending.Return(ctx, m.ID, book.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	require.Equal(t, 1, f.copies(t, book.ID))
	require.Equal(t, 55, f.rate(t, m.ID))
}

func TestLending_ConcurrentBorrowNeverOversells(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, func(b *model.Book) { b.NumberOfAvailableCopies = 3 })

	const borrowers = 10
	members := make([]model.Member, borrowers)
	for i := range members {
		members[i] = f.member(t, 50, adult)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok         int
		outOfStock int
	)
	for _, m := range members {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.lending.Borrow(ctx, m.ID, book.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, errs.ErrOutOfStock):
				outOfStock++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, ok)
	require.Equal(t, borrowers-3, outOfStock)
	require.Equal(t, 0, f.copies(t, book.ID))
}

func TestLending_NotifiesAuthorAfterBorrow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	book := f.book(t)
	m := f.member(t, 50, adult)
	author, err := f.repo.GetAuthor(context.Background(), book.AuthorID)
	require.NoError(t, err)

	_, err = f.lending.Borrow(context.Background(), m.ID, book.ID)
	require.NoError(t, err)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	require.Equal(t, author.Email, sent[0].To)
	require.Equal(t, `Your book "Dune" has been borrowed`, sent[0].Subject)
	require.Contains(t, sent[0].HTML, "<strong>Dune</strong>")
}

func TestLending_Loans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	open := f.book(t)
	closed := f.book(t)
	m := f.member(t, 50, adult)

	_, err := f.lending.Borrow(ctx, m.ID, closed.ID)
	require.NoError(t, err)
	_, err = f.lending.Return(ctx, m.ID, closed.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	_, err = f.lending.Borrow(ctx, m.ID, open.ID)
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 15)
	views, err := f.lending.Loans(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.Equal(t, open.ID, views[0].BorrowedBookID)
	require.False(t, views[0].IsReturned)
	require.True(t, views[0].ExpiredFlag)
	require.NotNil(t, views[0].DaysLeft)

	require.Equal(t, closed.ID, views[1].BorrowedBookID)
	require.True(t, views[1].IsReturned)
	require.Nil(t, views[1].DaysLeft)
	require.False(t, views[1].ExpiredFlag)
	require.False(t, views[1].WarningFlag)

	_, err = f.lending.Loans(ctx, uuid.New())
	require.ErrorIs(t, err, errs.ErrNotFound)
}
