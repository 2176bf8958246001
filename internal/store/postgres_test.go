package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"construction-api/internal/models"
)

func setupPostgresRepo[T Document](t *testing.T, table string) (*PostgresRepository[T], sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository[T](db, table), mock
}

func supplierJSON(t *testing.T, s models.Supplier) []byte {
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return b
}

func newSupplier(name string) models.Supplier {
	return models.Supplier{
		ID:            primitive.NewObjectID(),
		Name:          name,
		ContactPerson: "Ada",
		Email:         "ada@example.com",
		Phone:         "555-0100",
		Materials:     "steel",
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPostgresRepositoryEnsureTable(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS suppliers`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS suppliers_created_at_idx`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryList(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	a, b := newSupplier("Acme"), newSupplier("Bolt")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM suppliers ORDER BY created_at DESC, id DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow(supplierJSON(t, b)).
			AddRow(supplierJSON(t, a)))

	docs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, b.ID, docs[0].ID)
	assert.Equal(t, "Acme", docs[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryListError(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	mock.ExpectQuery(`SELECT data FROM suppliers`).WillReturnError(errors.New("connection refused"))

	_, err := repo.List(context.Background())
	assert.EqualError(t, err, "connection refused")
}

func TestPostgresRepositoryInsert(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	s := newSupplier("Acme")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO suppliers (id, created_at, data) VALUES ($1, $2, $3)`)).
		WithArgs(s.ID.Hex(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryFindByID(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	s := newSupplier("Acme")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM suppliers WHERE id = $1`)).
		WithArgs(s.ID.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(supplierJSON(t, s)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM suppliers WHERE id = $1`)).
		WithArgs(s.ID.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	got, err := repo.FindByID(context.Background(), s.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, s.Name, got.Name)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.FindByID(context.Background(), s.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryMalformedIDNeverQueries(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)

	_, err := repo.FindByID(context.Background(), "bad-id")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Update(context.Background(), "bad-id", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "bad-id"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryUpdate(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	s := newSupplier("Acme")
	updated := s
	updated.Phone = "555-0199"

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE suppliers SET data = data || $1::jsonb WHERE id = $2 RETURNING data`)).
		WithArgs([]byte(`{"phone":"555-0199"}`), s.ID.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(supplierJSON(t, updated)))

	got, err := repo.Update(context.Background(), s.ID.Hex(), map[string]any{"phone": "555-0199"})
	require.NoError(t, err)
	assert.Equal(t, "555-0199", got.Phone)
	assert.Equal(t, "Acme", got.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryUpdateMissing(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	id := primitive.NewObjectID().Hex()

	mock.ExpectQuery(`UPDATE suppliers SET data`).
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := repo.Update(context.Background(), id, map[string]any{"phone": "1"})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryDelete(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	id := primitive.NewObjectID().Hex()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM suppliers WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM suppliers WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryInsertManyKeepsGoing(t *testing.T) {
	repo, mock := setupPostgresRepo[models.Supplier](t, SuppliersCollection)
	docs := []models.Supplier{newSupplier("a"), newSupplier("b"), newSupplier("c")}

	mock.ExpectExec(`INSERT INTO suppliers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO suppliers`).WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectExec(`INSERT INTO suppliers`).WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.InsertMany(context.Background(), docs)
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 inserts into suppliers failed")
	require.NoError(t, mock.ExpectationsWereMet())
}
