package study

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexicard/internal/document"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/session"
	"github.com/conorfennell/lexicard/internal/storage"
)

var t0 = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

type memStore struct {
	docs    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string][]byte{}}
}

func (m *memStore) LoadDocument(_ context.Context, key string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.docs[key], nil
}

func (m *memStore) SaveDocument(_ context.Context, key string, body []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.docs[key] = append([]byte(nil), body...)
	return nil
}

func openService(t *testing.T, store Store, now *time.Time) *Service {
	t.Helper()
	svc, err := Open(context.Background(), store,
		WithClock(func() time.Time { return *now }),
		WithLocation(time.UTC),
	)
	require.NoError(t, err)
	return svc
}

func TestOpenFreshDocumentIsSaved(t *testing.T) {
	store := newMemStore()
	now := t0
	svc := openService(t, store, &now)

	assert.Equal(t, 1, store.saves)
	decks := svc.Decks()
	require.Len(t, decks, 1)
	assert.Equal(t, document.DefaultDeckName, decks[0].Name)
	assert.Equal(t, decks[0].ID, svc.SelectedDeckID())
	assert.Equal(t, domain.DefaultSettings(), svc.Settings())

	again := openService(t, store, &now)
	assert.Equal(t, 1, store.saves, "a readable document is not rewritten")
	assert.Equal(t, decks[0].ID, again.SelectedDeckID())
}

func TestOpenTreatsCorruptDocumentAsAbsent(t *testing.T) {
	store := newMemStore()
	store.loadErr = storage.ErrCorrupt
	now := t0
	svc := openService(t, store, &now)
	assert.Len(t, svc.Decks(), 1)

	store.loadErr = errors.New("disk on fire")
	_, err := Open(context.Background(), store)
	assert.Error(t, err)
}

func TestOpenRepairsSettings(t *testing.T) {
	store := newMemStore()
	store.docs[DefaultKey] = []byte(`{
		"decks": {"d1": {"id": "d1", "name": "Words"}},
		"cards": {},
		"settings": {"newPerDay": -4, "reviewMode": "zh2en"}
	}`)
	now := t0
	svc := openService(t, store, &now)

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, domain.DefaultNewPerDay, svc.Settings().NewPerDay)
	assert.Equal(t, domain.ModeZhToEn, svc.Settings().ReviewMode)
	assert.Equal(t, "d1", svc.SelectedDeckID())
}

func TestDeckLifecycle(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc := openService(t, newMemStore(), &now)

	d, err := svc.CreateDeck(ctx, "  English ")
	require.NoError(t, err)
	assert.Equal(t, "English", d.Name)
	assert.Equal(t, d.ID, svc.SelectedDeckID())

	_, err = svc.CreateDeck(ctx, " ")
	assert.ErrorIs(t, err, document.ErrEmptyName)

	require.NoError(t, svc.RenameDeck(ctx, d.ID, "Vocabulary"))
	assert.ErrorIs(t, svc.RenameDeck(ctx, "nope", "x"), document.ErrDeckNotFound)
	assert.ErrorIs(t, svc.SelectDeck(ctx, "nope"), document.ErrDeckNotFound)

	_, _, err = svc.ImportText(ctx, d.ID, "apple\t苹果\npear\t梨", domain.DupSkip)
	require.NoError(t, err)

	n, err := svc.DeleteDeck(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, svc.Decks(), 1)
	assert.Empty(t, svc.Cards(domain.AllDecks))
	assert.NotEqual(t, d.ID, svc.SelectedDeckID())
}

func TestImportAndPreview(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc := openService(t, newMemStore(), &now)

	res, lineErrs, err := svc.ImportText(ctx, "", "apple\t苹果\nbanana\t香蕉\nbroken", domain.DupSkip)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	require.Len(t, lineErrs, 1)
	assert.Equal(t, 3, lineErrs[0].Line)

	p, err := svc.PreviewImport("", "Apple\t苹果\ncherry,樱桃")
	require.NoError(t, err)
	assert.Len(t, p.Records, 2)
	assert.Equal(t, 1, p.Duplicates)

	res, _, err = svc.ImportText(ctx, "", "APPLE\t大苹果\tAn apple a day.", domain.DupOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	_, err = svc.PreviewImport("missing", "a\tb")
	assert.ErrorIs(t, err, document.ErrDeckNotFound)
	_, err = svc.Import(ctx, "missing", nil, domain.DupSkip)
	assert.ErrorIs(t, err, document.ErrDeckNotFound)
}

func TestSessionGradingPersists(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	now := t0
	svc := openService(t, store, &now)

	saves := store.saves
	idle, err := svc.Grade(ctx, "x", 5)
	require.NoError(t, err, "grading without a session is a no-op")
	assert.False(t, idle.Applied)
	assert.Equal(t, "idle", idle.Session.State)
	idle, err = svc.Answer(ctx, "x", "apple")
	require.NoError(t, err)
	assert.False(t, idle.Applied)
	assert.Equal(t, saves, store.saves)
	_, err = svc.Skip()
	assert.ErrorIs(t, err, ErrNoSession)

	_, _, err = svc.ImportText(ctx, "", "apple\t苹果\nbanana\t香蕉", domain.DupSkip)
	require.NoError(t, err)

	_, err = svc.StartSession("bogus", "")
	assert.ErrorIs(t, err, session.ErrUnknownMode)

	v, err := svc.StartSession(session.ModeNew, "")
	require.NoError(t, err)
	assert.Equal(t, "active", v.State)
	assert.Equal(t, 2, v.Remaining)
	require.NotNil(t, v.Current)

	saves = store.saves
	stale, err := svc.Grade(ctx, "not-current", 5)
	require.NoError(t, err)
	assert.False(t, stale.Applied)
	assert.Equal(t, saves, store.saves, "stale grades are not saved")

	first := v.Current.ID
	r, err := svc.Grade(ctx, first, 5)
	require.NoError(t, err)
	assert.True(t, r.Applied)
	assert.True(t, r.Correct)
	assert.Equal(t, domain.KindNew, r.Event.Kind)
	assert.Equal(t, t0.Add(24*time.Hour), r.Card.DueAt)
	assert.Equal(t, 1, r.Session.Remaining)
	assert.Equal(t, saves+1, store.saves)

	second := r.Session.Current.ID
	blank, err := svc.Answer(ctx, second, "   ")
	require.NoError(t, err)
	assert.False(t, blank.Applied)

	r, err = svc.Answer(ctx, second, "wrong")
	require.NoError(t, err)
	assert.True(t, r.Applied)
	assert.False(t, r.Correct)
	assert.True(t, r.Complete)
	assert.Equal(t, "idle", r.Session.State)

	st := svc.Stats("")
	assert.Equal(t, 2, st.TodayTotal)
	assert.Equal(t, 1, st.TodayCorrect)
	assert.Equal(t, 2, st.TodayNew)
	assert.Equal(t, 50, st.Accuracy)

	// History and schedules survive a reload.
	reloaded := openService(t, store, &now)
	assert.Equal(t, st, reloaded.Stats(""))
	trend := reloaded.Trend(domain.AllDecks, 2)
	require.Len(t, trend, 2)
	assert.Equal(t, 2, trend[1].Total)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc := openService(t, newMemStore(), &now)

	n := 5
	mode := domain.ModeZhToEn
	topic := "food"
	got, err := svc.UpdateSettings(ctx, SettingsPatch{NewPerDay: &n, ReviewMode: &mode, FilterTopic: &topic})
	require.NoError(t, err)
	assert.Equal(t, 5, got.NewPerDay)
	assert.Equal(t, domain.ModeZhToEn, got.ReviewMode)
	assert.Equal(t, "food", got.FilterTopic)

	bad := -1
	_, err = svc.UpdateSettings(ctx, SettingsPatch{NewPerDay: &bad})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	badMode := domain.ReviewMode("fr2de")
	_, err = svc.UpdateSettings(ctx, SettingsPatch{ReviewMode: &badMode})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, 5, svc.Settings().NewPerDay, "rejected updates leave settings alone")
}

func TestExportRestore(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc := openService(t, newMemStore(), &now)
	_, _, err := svc.ImportText(ctx, "", "apple\t苹果", domain.DupSkip)
	require.NoError(t, err)

	backup, err := svc.Export()
	require.NoError(t, err)

	other := openService(t, newMemStore(), &now)
	require.NoError(t, other.Restore(ctx, backup))
	assert.Len(t, other.Cards(domain.AllDecks), 1)
	assert.Equal(t, svc.SelectedDeckID(), other.SelectedDeckID())

	assert.ErrorIs(t, other.Restore(ctx, []byte(`{"decks":{}}`)), document.ErrInvalidBackup)
	assert.ErrorIs(t, other.Restore(ctx, []byte(`not json`)), document.ErrInvalidBackup)
}

func TestRestoreKeepsDocumentOnBadBackup(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	now := t0
	svc := openService(t, store, &now)
	_, _, err := svc.ImportText(ctx, "", "apple\t苹果", domain.DupSkip)
	require.NoError(t, err)
	before := append([]byte(nil), store.docs[DefaultKey]...)
	saves := store.saves

	bad := `{"decks":{"d1":{"id":"d1","name":"TOEFL"}},"cards":{"c1":{"id":"c1","deckId":"d1","front":"a","back":"b","reps":"3"}}}`
	assert.ErrorIs(t, svc.Restore(ctx, []byte(bad)), document.ErrInvalidBackup)

	assert.Equal(t, saves, store.saves)
	assert.Equal(t, before, store.docs[DefaultKey])
	assert.Len(t, svc.Cards(domain.AllDecks), 1)
}

func TestSaveFailureIsReported(t *testing.T) {
	store := newMemStore()
	now := t0
	svc := openService(t, store, &now)
	store.saveErr = errors.New("read-only")

	_, err := svc.CreateDeck(context.Background(), "x")
	assert.Error(t, err)
}
