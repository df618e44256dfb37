package regions

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"short_name", "display_name", "lat1", "lng1", "lat2", "lng2", "center_lat", "center_lng"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestListForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM regions r\s+JOIN user_regions ur .* WHERE ur.user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("ber", "Berlin", 52.3, 13.0, 52.7, 13.8, 52.5, 13.4).
			AddRow("muc", "Munich", 48.0, 11.3, 48.3, 11.8, 48.1, 11.5))

	got, err := repo.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ber", got[0].ShortName)
	assert.Equal(t, 13.4, got[0].Center.Lng)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUser_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM regions r`).WithArgs("u2").WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.ListForUser(context.Background(), "u2")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetByShortName(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM regions r WHERE r.short_name = \$1`).
		WithArgs("muc").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("muc", "Munich", 0.0, 0.0, 0.0, 0.0, 0.0, 0.0))
	mock.ExpectQuery(`FROM regions r WHERE r.short_name = \$1`).
		WithArgs("zzz").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByShortName(context.Background(), "muc")
	require.NoError(t, err)
	assert.Equal(t, "Munich", got.DisplayName)

	_, err = repo.GetByShortName(context.Background(), "zzz")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestInsertAndGrant(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO regions .* RETURNING id`).
		WithArgs("muc", "Munich", 1.0, 2.0, 3.0, 4.0, 2.0, 3.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectExec(`INSERT INTO user_regions .* ON CONFLICT DO NOTHING`).
		WithArgs("u1", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Insert(context.Background(), &models.Region{
		ShortName: "muc", DisplayName: "Munich",
		Corner1: models.Coordinate{Lat: 1, Lng: 2},
		Corner2: models.Coordinate{Lat: 3, Lng: 4},
		Center:  models.Coordinate{Lat: 2, Lng: 3},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Grant(context.Background(), "u1", id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIDByShortName(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM regions WHERE short_name = \$1`).
		WithArgs("muc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(`SELECT id FROM regions WHERE short_name = \$1`).
		WithArgs("zzz").
		WillReturnError(sql.ErrNoRows)

	id, err := repo.IDByShortName(context.Background(), "muc")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	_, err = repo.IDByShortName(context.Background(), "zzz")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestHasAccess(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1", "muc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1", "ber").
		WillReturnError(errors.New("boom"))

	ok, err := repo.HasAccess(context.Background(), "u1", "muc")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.HasAccess(context.Background(), "u1", "ber")
	assert.ErrorContains(t, err, "failed to check region access")
}
