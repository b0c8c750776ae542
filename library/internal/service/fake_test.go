package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/library/internal/repository"
	"github.com/Astemirdum/library-cms/pkg/mailer"
	"github.com/google/uuid"
)

// memRepo is an in-memory repository.Repository. Transactions are serialized
// and roll back by restoring a snapshot.
type memRepo struct {
	tx sync.Mutex
	mu sync.Mutex

	authors map[uuid.UUID]model.Author
	books   map[uuid.UUID]model.Book
	members map[uuid.UUID]model.Member
	subs    map[uuid.UUID]map[uuid.UUID]bool
	loans   []model.Loan
}

var _ repository.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		authors: map[uuid.UUID]model.Author{},
		books:   map[uuid.UUID]model.Book{},
		members: map[uuid.UUID]model.Member{},
		subs:    map[uuid.UUID]map[uuid.UUID]bool{},
	}
}

type memState struct {
	authors map[uuid.UUID]model.Author
	books   map[uuid.UUID]model.Book
	members map[uuid.UUID]model.Member
	subs    map[uuid.UUID]map[uuid.UUID]bool
	loans   []model.Loan
}

func (r *memRepo) snapshot() memState {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := memState{
		authors: make(map[uuid.UUID]model.Author, len(r.authors)),
		books:   make(map[uuid.UUID]model.Book, len(r.books)),
		members: make(map[uuid.UUID]model.Member, len(r.members)),
		subs:    make(map[uuid.UUID]map[uuid.UUID]bool, len(r.subs)),
		loans:   append([]model.Loan(nil), r.loans...),
	}
	for k, v := range r.authors {
		s.authors[k] = v
	}
	for k, v := range r.books {
		s.books[k] = v
	}
	for k, v := range r.members {
		s.members[k] = v
	}
	for k, v := range r.subs {
		m := make(map[uuid.UUID]bool, len(v))
		for b := range v {
			m[b] = true
		}
		s.subs[k] = m
	}
	return s
}

func (r *memRepo) restore(s memState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authors, r.books, r.members, r.subs, r.loans = s.authors, s.books, s.members, s.subs, s.loans
}

func (r *memRepo) InTx(_ context.Context, fn func(repo repository.Repository) error) error {
	r.tx.Lock()
	defer r.tx.Unlock()
	snap := r.snapshot()
	if err := fn(r); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memRepo) CreateAuthor(_ context.Context, a model.Author) (model.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.authors {
		if x.Email == a.Email {
			return model.Author{}, errs.Conflict("author with this email already exists")
		}
	}
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	r.authors[a.ID] = a
	return a, nil
}

func (r *memRepo) GetAuthor(_ context.Context, id uuid.UUID) (model.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.authors[id]
	if !ok {
		return model.Author{}, errs.NotFound("author")
	}
	return a, nil
}

func (r *memRepo) UpdateAuthor(_ context.Context, a model.Author) (model.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authors[a.ID]; !ok {
		return model.Author{}, errs.NotFound("author")
	}
	for _, x := range r.authors {
		if x.ID != a.ID && x.Email == a.Email {
			return model.Author{}, errs.Conflict("author with this email already exists")
		}
	}
	r.authors[a.ID] = a
	return a, nil
}

func (r *memRepo) DeleteAuthor(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authors[id]; !ok {
		return errs.NotFound("author")
	}
	for _, b := range r.books {
		if b.AuthorID == id {
			return errs.Conflict("author still has books in the catalog")
		}
	}
	delete(r.authors, id)
	return nil
}

func (r *memRepo) CreateBook(_ context.Context, b model.Book) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.isbnTaken(b); err != nil {
		return model.Book{}, err
	}
	if _, ok := r.authors[b.AuthorID]; !ok {
		return model.Book{}, errs.Reference("invalid authorId: author does not exist")
	}
	b.IsPublished = false
	b.CreatedAt, b.UpdatedAt = time.Now(), time.Now()
	r.books[b.ID] = b
	return b, nil
}

func (r *memRepo) isbnTaken(b model.Book) error {
	for _, x := range r.books {
		if x.ID != b.ID && x.ISBN == b.ISBN {
			return errs.Conflict("book with this isbn already exists")
		}
	}
	return nil
}

func (r *memRepo) GetBook(_ context.Context, id uuid.UUID) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return model.Book{}, errs.NotFound("book")
	}
	return b, nil
}

func (r *memRepo) UpdateBook(_ context.Context, b model.Book) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.books[b.ID]
	if !ok {
		return model.Book{}, errs.NotFound("book")
	}
	if cur.IsPublished {
		return model.Book{}, errs.StateConflict("published book cannot be modified")
	}
	if err := r.isbnTaken(b); err != nil {
		return model.Book{}, err
	}
	b.IsPublished = cur.IsPublished
	b.CreatedAt = cur.CreatedAt
	r.books[b.ID] = b
	return b, nil
}

func (r *memRepo) TogglePublished(_ context.Context, id uuid.UUID) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return model.Book{}, errs.NotFound("book")
	}
	b.IsPublished = !b.IsPublished
	r.books[id] = b
	return b, nil
}

func (r *memRepo) DeleteBook(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return errs.NotFound("book")
	}
	if b.IsPublished {
		return errs.StateConflict("published book cannot be modified")
	}
	delete(r.books, id)
	return nil
}

func (r *memRepo) CountBooks(_ context.Context, ids []uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := r.books[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) ListBooks(_ context.Context, f model.BookFilter) (model.Paginated[model.Book], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Book
	for _, b := range r.books {
		if f.Genre != "" && b.Genre != f.Genre {
			continue
		}
		if f.Published != nil && b.IsPublished != *f.Published {
			continue
		}
		if f.Title != "" && !strings.Contains(strings.ToLower(b.Title.En+b.Title.Ar+b.ISBN), strings.ToLower(f.Title)) {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.PageRequest), nil
}

func (r *memRepo) ListPublishedBooks(_ context.Context, f model.PublishedBookFilter, lang model.Lang) (model.Paginated[model.BookCard], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.BookCard
	for _, b := range r.books {
		if !b.IsPublished || (f.Genre != "" && b.Genre != f.Genre) {
			continue
		}
		all = append(all, model.BookCard{ID: b.ID, Title: b.Title.In(lang), Genre: b.Genre})
	}
	return page(all, f.PageRequest), nil
}

func page[T any](all []T, p model.PageRequest) model.Paginated[T] {
	p = p.Normalize()
	from := p.Offset()
	if from > len(all) {
		from = len(all)
	}
	to := from + p.Limit
	if to > len(all) {
		to = len(all)
	}
	return model.Paginated[T]{Paging: model.NewPaging(len(all), p), Data: append([]T{}, all[from:to]...)}
}

func (r *memRepo) DecrementCopies(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok || b.NumberOfAvailableCopies <= 0 {
		return errs.ErrOutOfStock
	}
	b.NumberOfAvailableCopies--
	r.books[id] = b
	return nil
}

func (r *memRepo) IncrementCopies(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return errs.NotFound("book")
	}
	b.NumberOfAvailableCopies++
	r.books[id] = b
	return nil
}

func (r *memRepo) PublishStats(_ context.Context) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	published := 0
	for _, b := range r.books {
		if b.IsPublished {
			published++
		}
	}
	return len(r.books), published, nil
}

func (r *memRepo) CreateMember(_ context.Context, m model.Member) (model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.memberTaken(m); err != nil {
		return model.Member{}, err
	}
	m.SubscribedBooks = nil
	r.members[m.ID] = m
	return m, nil
}

func (r *memRepo) memberTaken(m model.Member) error {
	for _, x := range r.members {
		if x.ID != m.ID && (x.Username == m.Username || x.Email == m.Email) {
			return errs.Conflict("username or email already exists")
		}
	}
	return nil
}

func (r *memRepo) GetMember(_ context.Context, id uuid.UUID) (model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return model.Member{}, errs.NotFound("member")
	}
	m.SubscribedBooks = make([]uuid.UUID, 0, len(r.subs[id]))
	for b := range r.subs[id] {
		m.SubscribedBooks = append(m.SubscribedBooks, b)
	}
	sort.Slice(m.SubscribedBooks, func(i, j int) bool {
		return m.SubscribedBooks[i].String() < m.SubscribedBooks[j].String()
	})
	return m, nil
}

func (r *memRepo) UpdateMember(_ context.Context, m model.Member) (model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.members[m.ID]
	if !ok {
		return model.Member{}, errs.NotFound("member")
	}
	if err := r.memberTaken(m); err != nil {
		return model.Member{}, err
	}
	m.ReturnRate = cur.ReturnRate
	subs := m.SubscribedBooks
	m.SubscribedBooks = nil
	r.members[m.ID] = m
	m.SubscribedBooks = subs
	return m, nil
}

func (r *memRepo) DeleteMember(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return errs.NotFound("member")
	}
	delete(r.members, id)
	delete(r.subs, id)
	kept := r.loans[:0]
	for _, l := range r.loans {
		if l.MemberID != id {
			kept = append(kept, l)
		}
	}
	r.loans = kept
	return nil
}

func (r *memRepo) SetSubscriptions(_ context.Context, memberID uuid.UUID, bookIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[uuid.UUID]bool, len(bookIDs))
	for _, id := range bookIDs {
		set[id] = true
	}
	r.subs[memberID] = set
	return nil
}

func (r *memRepo) ToggleSubscription(_ context.Context, memberID, bookID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.subs[memberID]
	if set == nil {
		set = map[uuid.UUID]bool{}
		r.subs[memberID] = set
	}
	if set[bookID] {
		delete(set, bookID)
		return false, nil
	}
	set[bookID] = true
	return true, nil
}

func (r *memRepo) SubscriberEmails(_ context.Context, bookID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for memberID, set := range r.subs {
		if set[bookID] {
			out = append(out, r.members[memberID].Email)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRepo) SearchMembers(_ context.Context, f model.MemberFilter) (model.Paginated[model.MemberSummary], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.MemberSummary
	for _, m := range r.members {
		if f.Name != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Name)) {
			continue
		}
		s := model.MemberSummary{ID: m.ID, Name: m.Name, Username: m.Username, Email: m.Email, ReturnRate: m.ReturnRate}
		for _, l := range r.loans {
			if l.MemberID == m.ID && l.IsOpen() {
				s.BorrowedBooksCount++
			}
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ReturnRate > all[j].ReturnRate })
	return page(all, f.PageRequest), nil
}

func (r *memRepo) AddReturnRate(_ context.Context, memberID uuid.UUID, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberID]
	if !ok {
		return 0, errs.NotFound("member")
	}
	m.ReturnRate += delta
	if m.ReturnRate > 100 {
		m.ReturnRate = 100
	}
	if m.ReturnRate < 0 {
		m.ReturnRate = 0
	}
	r.members[memberID] = m
	return m.ReturnRate, nil
}

func (r *memRepo) AverageReturnRate(_ context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) == 0 {
		return 0, nil
	}
	sum := 0
	for _, m := range r.members {
		sum += m.ReturnRate
	}
	return float64(sum) / float64(len(r.members)), nil
}

func (r *memRepo) CreateLoan(_ context.Context, l model.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.loans {
		if x.MemberID == l.MemberID && x.BookID == l.BookID && x.IsOpen() {
			return errs.ErrAlreadyBorrowed
		}
	}
	r.loans = append(r.loans, l)
	return nil
}

func (r *memRepo) OpenLoan(_ context.Context, memberID, bookID uuid.UUID) (model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.loans {
		if x.MemberID == memberID && x.BookID == bookID && x.IsOpen() {
			return x, nil
		}
	}
	return model.Loan{}, errs.NotFound("loan")
}

func (r *memRepo) LatestLoanForUpdate(_ context.Context, memberID, bookID uuid.UUID) (model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  model.Loan
		found bool
	)
	for _, x := range r.loans {
		if x.MemberID != memberID || x.BookID != bookID {
			continue
		}
		if !found ||
			(x.IsOpen() && !best.IsOpen()) ||
			(x.IsOpen() == best.IsOpen() && x.BorrowedAt.After(best.BorrowedAt)) {
			best, found = x, true
		}
	}
	if !found {
		return model.Loan{}, errs.ErrNotBorrowed
	}
	return best, nil
}

func (r *memRepo) CloseLoan(_ context.Context, loanID uuid.UUID, returnedAt time.Time) (model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.loans {
		if x.ID != loanID {
			continue
		}
		if !x.IsOpen() {
			return model.Loan{}, errs.ErrAlreadyReturned
		}
		t := returnedAt
		r.loans[i].ReturnedAt = &t
		return r.loans[i], nil
	}
	return model.Loan{}, errs.NotFound("loan")
}

func (r *memRepo) ListLoans(_ context.Context, memberID uuid.UUID) ([]model.LoanRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.LoanRecord, 0)
	for _, x := range r.loans {
		if x.MemberID != memberID {
			continue
		}
		b := r.books[x.BookID]
		out = append(out, model.LoanRecord{Loan: x, Title: b.Title, NumberOfBorrowableDays: b.NumberOfBorrowableDays})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BorrowedAt.After(out[j].BorrowedAt) })
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []mailer.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg mailer.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) sent() []mailer.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.Message(nil), n.msgs...)
}
