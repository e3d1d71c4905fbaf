package summary

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var summaryColumns = []string{
	"id", "call_sid", "user_id", "transcript_sid", "from_number", "to_number",
	"duration", "summary", "language_code", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_LookupUserIDNormalizesPhone(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id\nFROM user_configurations\nWHERE phone_number = $1")).
		WithArgs("+15550100").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-7"))

	id, ok, err := s.LookupUserID(context.Background(), "+1 (555) 0100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-7", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupUserIDMiss(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM user_configurations").
		WithArgs("+15550100").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, ok, err := s.LookupUserID(context.Background(), "+15550100")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStore_LookupUserIDEmptyPhoneSkipsQuery(t *testing.T) {
	s, mock := newMockStore(t)
	_, ok, err := s.LookupUserID(context.Background(), "  ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTwiceOverwritesSummary(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := created.Add(40 * time.Second)
	user := "user-7"

	upsert := regexp.QuoteMeta("ON CONFLICT (call_sid)")
	mock.ExpectQuery(upsert).
		WithArgs("id-1", "CA1", "user-7", "GT1", "+15550100", "+34911222333", 90, "first", "es-ES", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(summaryColumns).
			AddRow("id-1", "CA1", "user-7", "GT1", "+15550100", "+34911222333", 90, "first", "es-ES", created, created))
	mock.ExpectQuery(upsert).
		WithArgs("id-2", "CA1", nil, "GT2", "+15550100", "+34911222333", 95, "second", "es-ES", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(summaryColumns).
			AddRow("id-1", "CA1", "user-7", "GT2", "+15550100", "+34911222333", 95, "second", "es-ES", created, updated))

	first, err := s.Upsert(context.Background(), Record{
		ID: "id-1", CallSID: "CA1", UserID: &user, TranscriptSID: "GT1",
		From: "+15550100", To: "+34911222333", DurationSeconds: 90, Summary: "first", LanguageCode: "es-ES",
	})
	require.NoError(t, err)

	second, err := s.Upsert(context.Background(), Record{
		ID: "id-2", CallSID: "CA1", TranscriptSID: "GT2",
		From: "+15550100", To: "+34911222333", DurationSeconds: 95, Summary: "second", LanguageCode: "es-ES",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "the row is updated in place")
	assert.Equal(t, "second", second.Summary)
	require.NotNil(t, second.UserID)
	assert.Equal(t, "user-7", *second.UserID, "a known owner is kept")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertRequiresCallSID(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.Upsert(context.Background(), Record{Summary: "x"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestPostgresStore_UpsertWrapsDatabaseErrors(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO call_summaries").WillReturnError(errors.New("unique violation"))

	_, err := s.Upsert(context.Background(), Record{ID: "id", CallSID: "CA1", Summary: "x"})
	assert.ErrorContains(t, err, "upsert call summary")
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM call_summaries").
		WithArgs("CA1").
		WillReturnRows(sqlmock.NewRows(summaryColumns).
			AddRow("id-1", "CA1", nil, "GT1", "+15550100", "", 60, "text", "en-US", now, now))
	mock.ExpectQuery("FROM call_summaries").
		WithArgs("CA404").
		WillReturnRows(sqlmock.NewRows(summaryColumns))

	rec, ok, err := s.Get(context.Background(), "CA1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, rec.UserID)
	assert.Equal(t, "text", rec.Summary)

	_, ok, err = s.Get(context.Background(), "CA404")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_UpsertKeepsIdentity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	user := "u1"

	first, err := s.Upsert(ctx, Record{ID: "a", CallSID: "CA1", UserID: &user, Summary: "one"})
	require.NoError(t, err)
	second, err := s.Upsert(ctx, Record{ID: "b", CallSID: "CA1", Summary: "two"})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "a", second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	require.NotNil(t, second.UserID)
	assert.Equal(t, "u1", *second.UserID)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	_, err = s.Upsert(ctx, Record{Summary: "orphan"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
