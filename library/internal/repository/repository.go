package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Repository interface {
	// InTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	AuthorRepository
	BookRepository
	MemberRepository
	LoanRepository
}

type AuthorRepository interface {
	CreateAuthor(ctx context.Context, a model.Author) (model.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (model.Author, error)
	UpdateAuthor(ctx context.Context, a model.Author) (model.Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
}

type BookRepository interface {
	CreateBook(ctx context.Context, b model.Book) (model.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (model.Book, error)
	UpdateBook(ctx context.Context, b model.Book) (model.Book, error)
	TogglePublished(ctx context.Context, id uuid.UUID) (model.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	CountBooks(ctx context.Context, ids []uuid.UUID) (int, error)
	ListBooks(ctx context.Context, f model.BookFilter) (model.Paginated[model.Book], error)
	ListPublishedBooks(ctx context.Context, f model.PublishedBookFilter, lang model.Lang) (model.Paginated[model.BookCard], error)
	DecrementCopies(ctx context.Context, id uuid.UUID) error
	IncrementCopies(ctx context.Context, id uuid.UUID) error
	PublishStats(ctx context.Context) (total, published int, err error)
}

type MemberRepository interface {
	CreateMember(ctx context.Context, m model.Member) (model.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (model.Member, error)
	UpdateMember(ctx context.Context, m model.Member) (model.Member, error)
	DeleteMember(ctx context.Context, id uuid.UUID) error
	SetSubscriptions(ctx context.Context, memberID uuid.UUID, bookIDs []uuid.UUID) error
	ToggleSubscription(ctx context.Context, memberID, bookID uuid.UUID) (subscribed bool, err error)
	SubscriberEmails(ctx context.Context, bookID uuid.UUID) ([]string, error)
	SearchMembers(ctx context.Context, f model.MemberFilter) (model.Paginated[model.MemberSummary], error)
	AddReturnRate(ctx context.Context, memberID uuid.UUID, delta int) (int, error)
	AverageReturnRate(ctx context.Context) (float64, error)
}

type LoanRepository interface {
	CreateLoan(ctx context.Context, l model.Loan) error
	OpenLoan(ctx context.Context, memberID, bookID uuid.UUID) (model.Loan, error)
	// LatestLoanForUpdate locks the ledger entry a return applies to:
	// the open one if any, otherwise the most recent.
	LatestLoanForUpdate(ctx context.Context, memberID, bookID uuid.UUID) (model.Loan, error)
	CloseLoan(ctx context.Context, loanID uuid.UUID, returnedAt time.Time) (model.Loan, error)
	ListLoans(ctx context.Context, memberID uuid.UUID) ([]model.LoanRecord, error)
}

type repository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		ext: db,
		log: log.Named("repo"),
	}, nil
}

const (
	authorsTableName       = `authors`
	booksTableName         = `books`
	membersTableName       = `members`
	subscriptionsTableName = `member_subscriptions`
	loansTableName         = `loans`
)

const (
	authorsEmailKey    = "authors_email_key"
	booksISBNKey       = "books_isbn_key"
	membersUsernameKey = "members_username_key"
	membersEmailKey    = "members_email_key"
	loansOpenIndex     = "loans_open_uidx"
	booksAuthorFKey    = "books_author_id_fkey"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) InTx(ctx context.Context, fn func(repo Repository) error) error {
	if _, ok := r.ext.(*sqlx.Tx); ok {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "BeginTxx")
	}
	if err := fn(&repository{db: r.db, ext: tx, log: r.log}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Error("tx.Rollback", zap.Error(rbErr))
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "tx.Commit")
}

func (r *repository) get(ctx context.Context, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "ToSql")
	}
	if err := sqlx.GetContext(ctx, r.ext, dest, query, args...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.Error("get", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		}
		return err
	}
	return nil
}

func (r *repository) selectAll(ctx context.Context, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "ToSql")
	}
	r.log.Debug("select", zap.String("q", query), zap.Any("args", args))
	return sqlx.SelectContext(ctx, r.ext, dest, query, args...)
}

func (r *repository) exec(ctx context.Context, q sq.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "ToSql")
	}
	res, err := r.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// mapPgError turns constraint violations into core errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case loansOpenIndex:
			return errs.ErrAlreadyBorrowed
		case authorsEmailKey:
			return errs.Conflict("author with this email already exists")
		case booksISBNKey:
			return errs.Conflict("book with this isbn already exists")
		case membersUsernameKey, membersEmailKey:
			return errs.Conflict("username or email already exists")
		}
		return errs.Conflict(pgErr.Message)
	case pgerrcode.ForeignKeyViolation:
		if pgErr.ConstraintName == booksAuthorFKey {
			return errs.Reference("invalid authorId: author does not exist")
		}
		return errs.Reference(pgErr.Message)
	case pgerrcode.CheckViolation:
		return errs.Validation(pgErr.ConstraintName)
	}
	return err
}

// contains builds an ILIKE pattern matching s anywhere, with wildcards escaped.
func contains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
