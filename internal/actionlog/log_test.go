package actionlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesSchemaAndVersion(t *testing.T) {
	l := createTestLog(t)

	v, err := l.version()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)
	assert.Len(t, migrations, schemaVersion)

	var mode string
	require.NoError(t, l.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	ctx := context.Background()

	l1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l1.Append(ctx, Record{ID: "a", Session: "s", Seq: 1, Type: "INC", StateHash: "h"}))
	require.NoError(t, l1.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	n, err := l2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendAndReadOrder(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, Record{ID: "c", Session: "s2", Seq: 2, Type: "B", StateHash: "h"}))
	require.NoError(t, l.Append(ctx, Record{ID: "b", Session: "s1", Seq: 1, Type: "A", StateHash: "h"}))
	require.NoError(t, l.Append(ctx, Record{ID: "a", Session: "s3", Seq: 2, Type: "C", StateHash: "h"}))

	records, err := l.Records(ctx)
	require.NoError(t, err)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids, "ordered by seq then id")
}

func TestAppendDuplicateIDIsIgnored(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()
	rec := Record{ID: "x", Session: "s", Seq: 1, Type: "INC", StateHash: "h"}

	require.NoError(t, l.Append(ctx, rec))
	require.NoError(t, l.Append(ctx, rec))

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendRejectsReusedSessionSeq(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, Record{ID: "x", Session: "s", Seq: 1, Type: "INC", StateHash: "h"}))
	err := l.Append(ctx, Record{ID: "y", Session: "s", Seq: 1, Type: "INC", StateHash: "h"})
	assert.Error(t, err)
}

func TestAppendRejectsFloatPayload(t *testing.T) {
	l := createTestLog(t)
	err := l.Append(context.Background(), Record{ID: "x", Session: "s", Seq: 1, Type: "ADD",
		Payload: map[string]any{"amount": 1.5}, StateHash: "h"})
	assert.Error(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, Record{ID: "x", Session: "s", Seq: 1, Type: "ADD",
		Payload: map[string]any{"amount": 2, "tags": []any{"a"}}, StateHash: "h"}))
	require.NoError(t, l.Append(ctx, Record{ID: "y", Session: "s", Seq: 2, Type: "INC", StateHash: "h"}))

	got, err := l.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": int64(2), "tags": []any{"a"}}, got.Payload)

	got, err = l.Get(ctx, "y")
	require.NoError(t, err)
	assert.Nil(t, got.Payload, "empty payload reads back as nil")
}

func TestGetUnknown(t *testing.T) {
	l := createTestLog(t)
	_, err := l.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyLog(t *testing.T) {
	l := createTestLog(t)
	ctx := context.Background()

	records, err := l.Records(ctx)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	last, err := l.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}

func TestInMemoryLog(t *testing.T) {
	l, err := Open(":memory:")
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Append(ctx, Record{ID: "x", Session: "s", Seq: 1, Type: "INC", StateHash: "h"}))
	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
