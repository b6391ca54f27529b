package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/batchworks/regrade/internal/batch"
)

func TestFetchReturnsPendingIdentifiers(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	src, err := NewSourceWithPool(mock, "puzzles")
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(7)).AddRow(int64(12))
	mock.ExpectQuery("SELECT id FROM puzzles WHERE difficulty IS NULL").WillReturnRows(rows)

	ids, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []batch.Identifier{3, 7, 12}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchPropagatesQueryError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	src, err := NewSourceWithPool(mock, "puzzles")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id FROM puzzles").WillReturnError(errors.New("relation does not exist"))

	_, err = src.Fetch(context.Background())
	require.ErrorContains(t, err, "select pending puzzles")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSourceWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewSourceWithPool(mock, "puzzles; DROP TABLE puzzles")
	require.ErrorContains(t, err, "invalid table name")

	_, err = NewSourceWithPool(nil, "puzzles")
	require.ErrorContains(t, err, "pool is required")
}
