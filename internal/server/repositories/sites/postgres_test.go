package sites

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "region", "name", "category", "comment", "image", "lat", "lng", "created_at", "changed_at", "deleted_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func day(d int) time.Time {
	return time.Date(2024, 4, d, 10, 0, 0, 0, time.UTC)
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, region, .* FROM sites WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, "muc", "Oak", "Nistkasten", "", "img/a.jpg", 48.1, 11.5, day(1), day(2), nil))

	s, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "7", s.ID)
	assert.Equal(t, "Oak", s.Name)
	assert.Equal(t, day(2), s.LastChanged())
	assert.Nil(t, s.DeletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sites WHERE id`).WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestInsert_ReturnsID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := day(1)
	mock.ExpectQuery(`INSERT INTO sites .* RETURNING id`).
		WithArgs("muc", "u1", "Oak", "Nistkasten", "c", "", 48.1, 11.5, sqlmock.AnyArg(), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := repo.Insert(context.Background(), "u1", &models.Site{
		ID: "cabc", Region: "muc", Name: "Oak", Category: "Nistkasten", Comment: "c", Lat: 48.1, Lng: 11.5,
		Stamps: models.Stamps{CreatedAt: &created},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO sites`).WillReturnError(errors.New("db is down"))

	_, err := repo.Insert(context.Background(), "u1", &models.Site{Region: "muc"})
	assert.ErrorContains(t, err, "failed to insert site")
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE sites SET name = \$2, .* WHERE id = \$1`).
		WithArgs(int64(7), "Oak", "", "", "", 0.0, 0.0, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sites SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Update(context.Background(), &models.Site{ID: "7", Name: "Oak"}))
	assert.ErrorIs(t, repo.Update(context.Background(), &models.Site{ID: "8"}), common.ErrorNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), &models.Site{ID: "cabc"}), common.ErrInvalidID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeleted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE sites SET deleted_at = \$2 WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(7), day(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDeleted(context.Background(), 7, day(3)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListLive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sites WHERE region = \$1 AND deleted_at IS NULL ORDER BY id`).
		WithArgs("muc").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "muc", "a", "", "", "", 1.0, 2.0, day(1), nil, nil).
			AddRow(2, "muc", "b", "", "", "", 3.0, 4.0, day(1), nil, nil))

	got, err := repo.ListLive(context.Background(), "muc")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[1].ID)
}

func TestListLive_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sites`).WithArgs("ber").WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.ListLive(context.Background(), "ber")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCandidates(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, COALESCE\(changed_at, created_at, \$1\), lat, lng`).
		WithArgs(models.EpochSentinel).
		WillReturnRows(sqlmock.NewRows([]string{"id", "last", "lat", "lng"}).AddRow(3, day(4), 48.1, 11.5))

	got, err := repo.Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{ID: 3, LastChanged: day(4), Lat: 48.1, Lng: 11.5}}, got)
}
