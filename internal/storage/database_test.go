package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDocumentRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	body, err := db.LoadDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Nil(t, body, "missing documents load as nil")

	require.NoError(t, db.SaveDocument(ctx, "doc", []byte(`{"v":1}`)))
	require.NoError(t, db.SaveDocument(ctx, "doc", []byte(`{"v":2}`)))

	body, err = db.LoadDocument(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(body))

	require.NoError(t, db.DeleteDocument(ctx, "doc"))
	body, err = db.LoadDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestLoadDocumentDetectsCorruption(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SaveDocument(ctx, "doc", []byte(`{"v":1}`)))

	_, err := db.conn.ExecContext(ctx, `UPDATE documents SET body = ? WHERE key = ?`, []byte(`{"v":9}`), "doc")
	require.NoError(t, err)

	_, err = db.LoadDocument(ctx, "doc")
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestSources(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertSource(ctx, "/tmp/words", SourceLocal, "deck-1")
	require.NoError(t, err)
	_, err = db.InsertSource(ctx, "https://example.com/words.git", SourceGit, "deck-2")
	require.NoError(t, err)

	_, err = db.InsertSource(ctx, "/tmp/words", SourceLocal, "deck-1")
	assert.Error(t, err, "paths are unique")

	s, err := db.FindSourceByPath(ctx, "/tmp/words")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "deck-1", s.DeckID)
	assert.False(t, s.LastScanned.Valid)

	require.NoError(t, db.UpdateSourceLastScanned(ctx, id))
	s, err = db.FindSourceByPath(ctx, "/tmp/words")
	require.NoError(t, err)
	assert.True(t, s.LastScanned.Valid)

	missing, err := db.FindSourceByPath(ctx, "/nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := db.GetAllSources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, SourceGit, all[1].Type)

	require.NoError(t, db.DeleteSource(ctx, id))
	all, err = db.GetAllSources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicard.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveDocument(context.Background(), "k", []byte("{}")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	body, err := db.LoadDocument(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))
}
