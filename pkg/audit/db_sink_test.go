package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDBSink(t *testing.T) *DBSink {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	sink, err := NewDBSink(db)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

func TestDBSink_LogAndSearch(t *testing.T) {
	sink := setupDBSink(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	events := []*SecurityEvent{
		{ID: "e1", Timestamp: base, Event: EventPermissionCheck, Status: StatusSuccess, UserID: "u1", Message: "first"},
		{ID: "e2", Timestamp: base.Add(time.Minute), Event: EventAccessDenied, Status: StatusDenied, UserID: "u1", Message: "second"},
		{ID: "e3", Timestamp: base.Add(2 * time.Minute), Event: EventRoleAssign, Status: StatusSuccess, UserID: "admin",
			ResourceID: "u1", Details: map[string]string{"role": "operator"}},
	}
	for _, e := range events {
		require.NoError(t, sink.Log(ctx, e))
	}

	all, err := sink.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "e3", all[0].ID)
	assert.Equal(t, "e1", all[2].ID)
	assert.Equal(t, "operator", all[0].Details["role"])

	byUser, err := sink.Search(ctx, SearchFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byType, err := sink.Search(ctx, SearchFilter{EventType: EventAccessDenied})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "e2", byType[0].ID)

	byStatus, err := sink.Search(ctx, SearchFilter{Status: StatusDenied})
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)

	since := base.Add(30 * time.Second)
	until := base.Add(90 * time.Second)
	windowed, err := sink.Search(ctx, SearchFilter{Since: &since, Until: &until})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "e2", windowed[0].ID)

	limited, err := sink.Search(ctx, SearchFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDBSink_NilDatabase(t *testing.T) {
	_, err := NewDBSink(nil)
	assert.Error(t, err)
}

func TestDBSink_EventWithoutDetails(t *testing.T) {
	sink := setupDBSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Log(ctx, &SecurityEvent{
		ID:        "e1",
		Timestamp: time.Now().UTC(),
		Event:     EventCacheInvalidation,
		Status:    StatusSuccess,
	}))

	found, err := sink.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Nil(t, found[0].Details)
}
