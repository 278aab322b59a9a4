package store

import (
	"sort"
	"time"

	"github.com/vegasq/ncfstore/query"
)

// Engine runs queries against the in-memory stores. Every method turns the
// relevant records into rows and hands them to Query.Execute; a nil query
// returns all rows.
type Engine struct {
	profiles *ProfileStore
	events   *EventStore
}

// NewEngine creates an engine over the given stores.
func NewEngine(profiles *ProfileStore, events *EventStore) *Engine {
	return &Engine{profiles: profiles, events: events}
}

// QueryUserProfiles queries every profile.
func (e *Engine) QueryUserProfiles(q *query.Query) *query.Result {
	profiles := e.profiles.All()
	rows := make([]map[string]interface{}, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, p.Row())
	}
	return run(q, rows)
}

// QueryEvents queries every event.
func (e *Engine) QueryEvents(q *query.Query) *query.Result {
	return run(q, eventRows(e.events.All()))
}

// QueryUserEvents queries the events of one user.
func (e *Engine) QueryUserEvents(userID string, q *query.Query) *query.Result {
	return run(q, eventRows(e.events.ByUser(userID)))
}

// FindUsersWithEvent queries the profiles of users who performed eventName
// at least once.
func (e *Engine) FindUsersWithEvent(eventName string, q *query.Query) *query.Result {
	return run(q, e.profileRows(distinctUsers(e.events.ByName(eventName))))
}

// FindUsersWithEventSequence queries the profiles of users who performed
// the named events in order. When within is positive every later step must
// happen no more than within after the first step.
func (e *Engine) FindUsersWithEventSequence(sequence []string, within time.Duration, q *query.Query) *query.Result {
	if len(sequence) == 0 {
		return query.NewResult(nil, nil)
	}

	var matched []string
	for _, userID := range distinctUsers(e.events.ByName(sequence[0])) {
		events := e.events.ByUser(userID)
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Timestamp.Before(events[j].Timestamp)
		})
		if containsSequence(events, sequence, within) {
			matched = append(matched, userID)
		}
	}
	return run(q, e.profileRows(matched))
}

// containsSequence reports whether events, sorted by time, contain the names
// in sequence as a subsequence. Each occurrence of the first name is tried
// as a starting point so a window miss does not hide a later match.
func containsSequence(events []Event, sequence []string, within time.Duration) bool {
	for start, first := range events {
		if first.EventName != sequence[0] {
			continue
		}
		step := 1
		for _, ev := range events[start+1:] {
			if step == len(sequence) {
				break
			}
			if within > 0 && ev.Timestamp.Sub(first.Timestamp) > within {
				break
			}
			if ev.EventName == sequence[step] {
				step++
			}
		}
		if step == len(sequence) {
			return true
		}
	}
	return false
}

func (e *Engine) profileRows(userIDs []string) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := e.profiles.Get(id); ok {
			rows = append(rows, p.Row())
		}
	}
	return rows
}

func eventRows(events []Event) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(events))
	for _, ev := range events {
		rows = append(rows, ev.Row())
	}
	return rows
}

// distinctUsers returns user IDs in order of first appearance.
func distinctUsers(events []Event) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ev := range events {
		if _, ok := seen[ev.UserID]; ok {
			continue
		}
		seen[ev.UserID] = struct{}{}
		out = append(out, ev.UserID)
	}
	return out
}

func run(q *query.Query, rows []map[string]interface{}) *query.Result {
	if q == nil {
		q = query.New()
	}
	return q.Execute(rows)
}
