package repository

import (
	"testing"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestContains(t *testing.T) {
	t.Parallel()
	require.Equal(t, "%dune%", contains("dune"))
	require.Equal(t, `%50\% off\_sale%`, contains("50% off_sale"))
	require.Equal(t, `%a\\b%`, contains(`a\b`))
}

func TestMapPgError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "open loan index",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: loansOpenIndex},
			want: errs.ErrAlreadyBorrowed,
		},
		{
			name: "isbn",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: booksISBNKey},
			want: errs.ErrConflict,
		},
		{
			name: "member email",
			err:  errors.Wrap(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: membersEmailKey}, "insert"),
			want: errs.ErrConflict,
		},
		{
			name: "author fk",
			err:  &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: booksAuthorFKey},
			want: errs.ErrReference,
		},
		{
			name: "check",
			err:  &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "books_number_of_available_copies_check"},
			want: errs.ErrValidation,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, mapPgError(tt.err), tt.want)
		})
	}

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapPgError(plain))
}

func TestPageQuery(t *testing.T) {
	t.Parallel()
	pq := pageQuery{
		base:    qb.Select().From(booksTableName).Where(sq.Eq{"is_published": true}),
		columns: localizedColumns[model.LangAr],
		orderBy: []string{"number_of_available_copies DESC", "id ASC"},
	}

	q, args, err := pq.countSQL()
	require.NoError(t, err)
	require.Equal(t, "SELECT count(*) FROM books WHERE is_published = $1", q)
	require.Equal(t, []interface{}{true}, args)

	q, args, err = pq.pageSQL(model.PageRequest{Page: 3, Limit: 5})
	require.NoError(t, err)
	require.Equal(t,
		"SELECT id, title_ar AS title, description_ar AS description, genre, cover_image_url, is_borrowable "+
			"FROM books WHERE is_published = $1 "+
			"ORDER BY number_of_available_copies DESC, id ASC LIMIT 5 OFFSET 10", q)
	require.Equal(t, []interface{}{true}, args)
}

func TestBookListColumns(t *testing.T) {
	t.Parallel()
	require.NotContains(t, bookListColumns, "cover_image_url")
	require.Len(t, bookListColumns, len(bookColumns)-1)
}
