package errs_test

import (
	"fmt"
	"testing"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("borrow: %w", errs.NotFound("book"))
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NotErrorIs(t, err, errs.ErrReference)
	require.EqualError(t, err, "borrow: book not found")

	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errs.KindNotFound, kind)

	_, ok = errs.KindOf(fmt.Errorf("plain"))
	require.False(t, ok)
}

func TestValidation(t *testing.T) {
	t.Parallel()
	err := errs.Validation("isbn is required", "genre is required")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.EqualError(t, err, "validation error: isbn is required; genre is required")
}
