package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/ncfstore/query"
)

// seedFunnel gives three users a view -> cart -> buy funnel with gaps:
// u1 completes it within an hour, u2 takes two days, u3 never buys.
func seedFunnel(t *testing.T) *Engine {
	t.Helper()
	profiles, events := newStores()

	type step struct {
		user, name string
		at         time.Duration
	}
	steps := []step{
		{"u1", "view", 0},
		{"u1", "cart", 10 * time.Minute},
		{"u1", "buy", 30 * time.Minute},
		{"u2", "view", 0},
		{"u2", "cart", time.Hour},
		{"u2", "buy", 48 * time.Hour},
		{"u3", "view", 0},
		{"u3", "cart", time.Minute},
	}
	for _, s := range steps {
		_, err := events.AddEvent(s.name, s.user, map[string]interface{}{"price": int64(10)}, t0.Add(s.at))
		require.NoError(t, err)
	}
	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := profiles.Update(id, map[string]interface{}{"country": "US"})
		require.NoError(t, err)
	}
	return NewEngine(profiles, events)
}

func userIDs(r *query.Result) []string {
	var ids []string
	for _, row := range r.Rows() {
		ids = append(ids, row["userId"].(string))
	}
	return ids
}

func TestQueryUserProfiles(t *testing.T) {
	engine := seedFunnel(t)

	result := engine.QueryUserProfiles(query.New().Where(query.Gte("eventCount", 3)))
	assert.Equal(t, []string{"u1", "u2"}, userIDs(result))

	row := result.Rows()[0]
	assert.Equal(t, "US", row["country"])
	assert.Equal(t, int64(3), row["eventCount"])
	assert.Contains(t, row, "firstSeenAt")
	assert.Contains(t, row, "lastSeenAt")
}

func TestQueryEvents(t *testing.T) {
	engine := seedFunnel(t)

	result := engine.QueryEvents(query.New().
		Where(query.Eq("eventName", "buy")).
		Aggregate("price", query.AggSum, ""))
	assert.Equal(t, 2, result.RowCount())
	assert.Equal(t, 20.0, result.Aggregations()["sum_price"])

	all := engine.QueryEvents(nil)
	assert.Equal(t, 8, all.RowCount())
}

func TestQueryUserEvents(t *testing.T) {
	engine := seedFunnel(t)

	result := engine.QueryUserEvents("u3", query.New().OrderBy("timestamp", query.Descending))
	require.Equal(t, 2, result.RowCount())
	assert.Equal(t, "cart", result.Rows()[0]["eventName"])

	assert.True(t, engine.QueryUserEvents("nobody", nil).IsEmpty())
}

func TestFindUsersWithEvent(t *testing.T) {
	engine := seedFunnel(t)

	assert.Equal(t, []string{"u1", "u2"}, userIDs(engine.FindUsersWithEvent("buy", nil)))
	assert.True(t, engine.FindUsersWithEvent("refund", nil).IsEmpty())
}

func TestFindUsersWithEventSequence(t *testing.T) {
	engine := seedFunnel(t)
	funnel := []string{"view", "cart", "buy"}

	assert.Equal(t, []string{"u1", "u2"}, userIDs(engine.FindUsersWithEventSequence(funnel, 0, nil)))
	assert.Equal(t, []string{"u1"}, userIDs(engine.FindUsersWithEventSequence(funnel, time.Hour, nil)))
	assert.Equal(t, []string{"u1", "u2", "u3"}, userIDs(engine.FindUsersWithEventSequence([]string{"view", "cart"}, 0, nil)))
	assert.True(t, engine.FindUsersWithEventSequence(nil, 0, nil).IsEmpty())
	assert.True(t, engine.FindUsersWithEventSequence([]string{"buy", "view"}, 0, nil).IsEmpty())
}

func TestContainsSequenceRetriesLaterStart(t *testing.T) {
	at := func(name string, d time.Duration) Event {
		return Event{EventName: name, Timestamp: t0.Add(d)}
	}
	events := []Event{
		at("a", 0),
		at("a", time.Hour),
		at("b", time.Hour+time.Minute),
	}

	assert.True(t, containsSequence(events, []string{"a", "b"}, 10*time.Minute))
	assert.False(t, containsSequence(events, []string{"a", "b"}, 30*time.Second))
	assert.True(t, containsSequence(events, []string{"a"}, 0))
}
