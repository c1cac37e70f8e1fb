package docstore

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonHas matches a JSON document argument containing the given fields.
type jsonHas map[string]any

func (j jsonHas) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		return false
	}
	for k, want := range j {
		if got[k] != want {
			return false
		}
	}
	return true
}

func newMockStore(t *testing.T) (*MySQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQL(db, nil), mock
}

func TestMySQLGet(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectDocSQL)).
		WithArgs("parkingSpots", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"status":"available","floor":2}`)))

	d, err := s.Get(context.Background(), "parkingSpots", "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", d.ID)
	status, _ := d.Fields.String("status")
	assert.Equal(t, "available", status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLGetMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectDocSQL)).
		WithArgs("parkingSpots", "Z9").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := s.Get(context.Background(), "parkingSpots", "Z9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMySQLQueryFiltersAndSkipsBadRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(listDocsSQL+userFilterSQL)).
		WithArgs("bookings", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("b1", []byte(`{"userId":"u1","startTime":"2026-03-01T10:00:00Z"}`)).
			AddRow("bad", []byte(`not json`)).
			AddRow("b2", []byte(`{"userId":"u1","startTime":"2026-03-01T12:00:00Z"}`)))

	docs, err := s.Query(context.Background(), Query{
		Collection: "bookings",
		Where:      &Filter{Field: "userId", Value: "u1"},
		OrderBy:    "startTime",
		Descending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b1"}, ids(docs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLQueryFiltersOtherFieldsByJSONPath(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(listDocsSQL+filterClause)).
		WithArgs("parkingSpots", "$.status", "reserved").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("A1", []byte(`{"status":"reserved"}`)))

	docs, err := s.Query(context.Background(), Query{
		Collection: "parkingSpots",
		Where:      &Filter{Field: "status", Value: "reserved"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, ids(docs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCreateInsertsWithoutUpsert(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("^" + regexp.QuoteMeta(insertDocSQL) + "$").
		WithArgs("parkingSpots", "A1", jsonHas{"status": "available"}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.RunTransaction(context.Background(), func(_ context.Context, tx Tx) error {
		return tx.Create("parkingSpots", "A1", Fields{"status": "available"})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCreateDuplicateKey(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("^" + regexp.QuoteMeta(insertDocSQL) + "$").
		WithArgs("parkingSpots", "A1", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'parkingSpots-A1' for key 'PRIMARY'"})
	mock.ExpectRollback()

	err := s.RunTransaction(context.Background(), func(_ context.Context, tx Tx) error {
		return tx.Create("parkingSpots", "A1", Fields{"status": "available"})
	})
	assert.ErrorIs(t, err, ErrExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSet(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(upsertDocSQL)).
		WithArgs("users", "u1", jsonHas{"name": "Ann"}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Set(context.Background(), "users", "u1", Fields{"name": "Ann"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTransactionCommitsBufferedWrites(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdSQL)).
		WithArgs("parkingSpots", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"status":"available","floor":2}`)))
	mock.ExpectExec(regexp.QuoteMeta(updateDocSQL)).
		WithArgs(jsonHas{"status": "reserved", "floor": 2.0}, "parkingSpots", "A1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(upsertDocSQL)).
		WithArgs("bookings", "b1", jsonHas{"spotId": "A1"}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.RunTransaction(context.Background(), func(_ context.Context, tx Tx) error {
		d, err := tx.Get("parkingSpots", "A1")
		if err != nil {
			return err
		}
		status, _ := d.Fields.String("status")
		require.Equal(t, "available", status)
		if err := tx.Update("parkingSpots", "A1", Fields{"status": "reserved"}); err != nil {
			return err
		}
		return tx.Set("bookings", "b1", Fields{"spotId": "A1"})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTransactionRollsBackOnCallbackError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdSQL)).
		WithArgs("parkingSpots", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"status":"reserved"}`)))
	mock.ExpectRollback()

	taken := errors.New("taken")
	err := s.RunTransaction(context.Background(), func(_ context.Context, tx Tx) error {
		if _, err := tx.Get("parkingSpots", "A1"); err != nil {
			return err
		}
		return taken
	})
	assert.ErrorIs(t, err, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpdateMissingDocument(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdSQL)).
		WithArgs("parkingSpots", "Z9").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))
	mock.ExpectRollback()

	err := s.Update(context.Background(), "parkingSpots", "Z9", Fields{"status": "occupied"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSubscriptionReloadsAfterWrite(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(listDocsSQL)).
		WithArgs("parkingSpots").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("A1", []byte(`{"status":"available"}`)))
	mock.ExpectExec(regexp.QuoteMeta(upsertDocSQL)).
		WithArgs("parkingSpots", "A2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(listDocsSQL)).
		WithArgs("parkingSpots").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("A1", []byte(`{"status":"available"}`)).
			AddRow("A2", []byte(`{"status":"available"}`)))

	sub, err := s.Subscribe(context.Background(), Query{Collection: "parkingSpots"})
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, []string{"A1"}, ids(nextSnapshot(t, sub).Docs))
	require.NoError(t, s.Set(context.Background(), "parkingSpots", "A2", Fields{"status": "available"}))
	assert.Equal(t, []string{"A1", "A2"}, ids(nextSnapshot(t, sub).Docs))
}
