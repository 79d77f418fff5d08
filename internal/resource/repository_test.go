package resource

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resourceColumns = []string{"id", "name", "kind", "category", "open_hour", "close_hour"}

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestRepositoryGetResources(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// rows come back in arbitrary order; the result follows the request
	mock.ExpectQuery(regexp.QuoteMeta("FROM resources WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(resourceColumns).
			AddRow("treadmill-01", "Treadmill 01", "machine", "Cardio", 0, 24).
			AddRow("trainer-alex", "Alex", "trainer", "Strength", 9, 17))

	got, err := repo.GetResources(context.Background(), []string{"trainer-alex", "treadmill-01"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "trainer-alex", got[0].ID)
	assert.Equal(t, DailyWindow{OpenHour: 9, CloseHour: 17}, got[0].Window)
	assert.Equal(t, KindMachine, got[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetResourcesMissing(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM resources WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(resourceColumns).
			AddRow("treadmill-01", "Treadmill 01", "machine", "Cardio", 0, 24))

	_, err := repo.GetResources(context.Background(), []string{"treadmill-01", "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "resource not found: ghost")
}

func TestRepositoryList(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM resources ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(resourceColumns).
			AddRow("a", "A", "machine", "Cardio", 6, 22).
			AddRow("b", "B", "trainer", "", 9, 17))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "B", list[1].Name)
}
