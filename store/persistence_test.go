package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vegasq/ncfstore/internal/rowjson"
	"github.com/vegasq/ncfstore/ncf"
)

func newManager(t *testing.T, dir string, opts PersistenceOptions) (*PersistenceManager, *ProfileStore, *EventStore) {
	t.Helper()
	profiles, events := newStores()
	opts.DataDir = dir
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	pm, err := NewPersistenceManager(profiles, events, opts)
	require.NoError(t, err)
	return pm, profiles, events
}

func TestNewPersistenceManagerRequiresDir(t *testing.T) {
	profiles, events := newStores()
	_, err := NewPersistenceManager(profiles, events, PersistenceOptions{})
	assert.Error(t, err)
}

func TestSaveAndLoadAll(t *testing.T) {
	dir := t.TempDir()
	pm, profiles, events := newManager(t, dir, PersistenceOptions{})

	_, err := profiles.Create("u1", map[string]interface{}{"plan": "pro", "age": int64(30)})
	require.NoError(t, err)
	e1, err := events.AddEvent("view", "u1", map[string]interface{}{"page": "/home"}, t0)
	require.NoError(t, err)
	e2, err := events.AddEvent("buy", "u1", map[string]interface{}{"amount": 12.5}, t0.Add(24*time.Hour))
	require.NoError(t, err)

	require.NoError(t, pm.SaveAll())
	assert.FileExists(t, filepath.Join(dir, "profiles.json.zst"))
	assert.FileExists(t, pm.DayFile(t0))
	assert.FileExists(t, pm.DayFile(t0.Add(24*time.Hour)))

	pm2, profiles2, events2 := newManager(t, dir, PersistenceOptions{})
	require.NoError(t, pm2.LoadAll())

	p, ok := profiles2.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "pro", p.Properties["plan"])
	assert.Equal(t, int64(30), p.Properties["age"])
	assert.Equal(t, 2, p.EventCount, "replayed events are not counted twice")
	assert.ElementsMatch(t, []string{e1.EventID, e2.EventID}, p.Events)

	require.Equal(t, 2, events2.Len())
	got, ok := events2.Get(e2.EventID)
	require.True(t, ok)
	assert.Equal(t, "buy", got.EventName)
	assert.Equal(t, e2.Timestamp, got.Timestamp)
	assert.Equal(t, map[string]interface{}{"amount": 12.5}, got.Properties)

	got, ok = events2.Get(e1.EventID)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"page": "/home"}, got.Properties)
}

func TestDayFileIsReadableNCF(t *testing.T) {
	dir := t.TempDir()
	pm, _, events := newManager(t, dir, PersistenceOptions{Compression: "zstd"})
	_, err := events.AddEvent("view", "u1", map[string]interface{}{"n": int64(1)}, t0)
	require.NoError(t, err)
	_, err = events.AddEvent("view", "u2", nil, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, pm.SaveEventsNCF())

	r, err := ncf.Open(pm.DayFile(t0))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "zstd", r.Header().Compression)
	assert.Equal(t, 2, r.RowCount())
	col, ok := r.Column("timestamp")
	require.True(t, ok)
	assert.Equal(t, ncf.TypeTimestamp, col.Type)

	values, err := r.ReadColumn("n")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), nil}, values)
}

func TestLoadEventsSkipsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	pm, _, events := newManager(t, dir, PersistenceOptions{})
	require.NoError(t, os.WriteFile(pm.DayFile(t0), []byte("not an ncf file at all, really not"), 0o644))

	n, err := pm.LoadEventsNCF()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, events.Len())
}

func TestLoadWithoutData(t *testing.T) {
	pm, profiles, events := newManager(t, t.TempDir(), PersistenceOptions{})
	require.NoError(t, pm.LoadAll())
	assert.Equal(t, 0, profiles.Len())
	assert.Equal(t, 0, events.Len())
}

func TestSaveWidensIntegerToFloat(t *testing.T) {
	dir := t.TempDir()
	pm, _, events := newManager(t, dir, PersistenceOptions{})
	for i, body := range []string{`{"amount":10}`, `{"amount":10.5}`} {
		props, err := rowjson.DecodeRow([]byte(body))
		require.NoError(t, err)
		_, err = events.AddEvent("purchase", "u1", props, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	require.NoError(t, pm.SaveEventsNCF())

	pm2, _, events2 := newManager(t, dir, PersistenceOptions{})
	restored, err := pm2.LoadEventsNCF()
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	var amounts []interface{}
	for _, ev := range events2.ByName("purchase") {
		amounts = append(amounts, ev.Properties["amount"])
	}
	assert.ElementsMatch(t, []interface{}{10.0, 10.5}, amounts)
}

func TestSaveStoresConflictingPropertyAsText(t *testing.T) {
	dir := t.TempDir()
	pm, _, events := newManager(t, dir, PersistenceOptions{})
	_, err := events.AddEvent("view", "u1", map[string]interface{}{"ref": "email"}, t0)
	require.NoError(t, err)
	_, err = events.AddEvent("view", "u1", map[string]interface{}{"ref": int64(7)}, t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = events.AddEvent("view", "u1", map[string]interface{}{"ref": []interface{}{"a", int64(1)}}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	_, err = events.AddEvent("view", "u1", nil, t0.Add(3*time.Minute))
	require.NoError(t, err)

	require.NoError(t, pm.SaveEventsNCF())
	assert.FileExists(t, pm.DayFile(t0))
	var inMemory []interface{}
	for _, ev := range events.ByName("view") {
		inMemory = append(inMemory, ev.Properties["ref"])
	}
	assert.Contains(t, inMemory, int64(7), "events in memory keep their values")

	pm2, _, events2 := newManager(t, dir, PersistenceOptions{})
	restored, err := pm2.LoadEventsNCF()
	require.NoError(t, err)
	assert.Equal(t, 4, restored)

	var refs []interface{}
	for _, ev := range events2.ByName("view") {
		if ref, ok := ev.Properties["ref"]; ok {
			refs = append(refs, ref)
		}
	}
	assert.ElementsMatch(t, []interface{}{"email", "7", `["a",1]`}, refs)
}

func TestMixedTypeFields(t *testing.T) {
	rows := []map[string]interface{}{
		{"a": int64(1), "b": "x", "c": nil},
		{"a": 2.5, "b": int64(3), "c": true},
		{"a": int64(4), "b": nil, "d": "y"},
	}
	assert.Equal(t, []string{"b"}, mixedTypeFields(rows))
}

func TestApplyRetentionPolicy(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	pm, _, events := newManager(t, t.TempDir(), PersistenceOptions{Now: func() time.Time { return now }})

	old, err := events.AddEvent("view", "u1", nil, now.AddDate(0, 0, -8))
	require.NoError(t, err)
	edge, err := events.AddEvent("view", "u1", nil, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, pm.SaveEventsNCF())
	require.NoError(t, os.WriteFile(filepath.Join(pm.dir, ncfDirName, "events-garbage.ncf"), nil, 0o644))

	removed, err := pm.ApplyRetentionPolicy(7)
	require.NoError(t, err)
	assert.Equal(t, []string{pm.DayFile(old.Timestamp)}, removed)
	assert.FileExists(t, pm.DayFile(edge.Timestamp))

	_, ok := events.Get(old.EventID)
	assert.False(t, ok)
	_, ok = events.Get(edge.EventID)
	assert.True(t, ok)

	_, err = pm.ApplyRetentionPolicy(-1)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	pm, _, events := newManager(t, dir, PersistenceOptions{SaveInterval: 10 * time.Millisecond})
	_, err := events.AddEvent("view", "u1", nil, t0)
	require.NoError(t, err)

	pm.Start(context.Background())
	require.Eventually(t, func() bool {
		_, err := os.Stat(pm.DayFile(t0))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, pm.Stop())
	assert.FileExists(t, filepath.Join(dir, "profiles.json.zst"))
}

func TestStopWithoutStart(t *testing.T) {
	dir := t.TempDir()
	pm, _, _ := newManager(t, dir, PersistenceOptions{})
	require.NoError(t, pm.Stop())
	assert.FileExists(t, filepath.Join(dir, "profiles.json.zst"))
}
