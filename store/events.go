package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// EventStore holds events and the indexes used to look them up by name and
// by user. Adding an event also updates the user's profile. It is safe for
// concurrent use.
type EventStore struct {
	profiles *ProfileStore

	mu     sync.RWMutex
	events map[string]Event
	order  []string
	byName map[string][]string
	byUser map[string][]string
}

// NewEventStore creates an empty store that records profile activity in
// profiles.
func NewEventStore(profiles *ProfileStore) *EventStore {
	return &EventStore{
		profiles: profiles,
		events:   make(map[string]Event),
		byName:   make(map[string][]string),
		byUser:   make(map[string][]string),
	}
}

// AddEvent records a new event with a generated ID. A zero ts means now.
func (s *EventStore) AddEvent(name, userID string, props map[string]interface{}, ts time.Time) (Event, error) {
	if name == "" || userID == "" {
		return Event{}, fmt.Errorf("%w: event name and user ID are required", ErrInvalidEvent)
	}
	ev := NewEvent(name, userID, props, ts)

	s.mu.Lock()
	s.insert(ev)
	s.mu.Unlock()

	s.profiles.recordEvent(userID, ev.EventID, false)
	return ev, nil
}

// Restore inserts an event that already has an ID, as read back from disk.
// It reports false and changes nothing if the ID is already present.
func (s *EventStore) Restore(ev Event) bool {
	s.mu.Lock()
	if _, ok := s.events[ev.EventID]; ok {
		s.mu.Unlock()
		return false
	}
	s.insert(ev)
	s.mu.Unlock()

	s.profiles.recordEvent(ev.UserID, ev.EventID, true)
	return true
}

func (s *EventStore) insert(ev Event) {
	s.events[ev.EventID] = ev
	s.order = append(s.order, ev.EventID)
	s.byName[ev.EventName] = append(s.byName[ev.EventName], ev.EventID)
	s.byUser[ev.UserID] = append(s.byUser[ev.UserID], ev.EventID)
}

// Get returns one event by ID.
func (s *EventStore) Get(eventID string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	return ev, ok
}

// ByName returns events with the given name in insertion order.
func (s *EventStore) ByName(name string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byName[name], nil)
}

// ByUser returns a user's events in insertion order.
func (s *EventStore) ByUser(userID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID], nil)
}

// ByUserAndName returns a user's events with the given name.
func (s *EventStore) ByUserAndName(userID, name string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID], func(ev Event) bool {
		return ev.EventName == name
	})
}

// ByUserInRange returns a user's events with start <= timestamp <= end.
func (s *EventStore) ByUserInRange(userID string, start, end time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID], func(ev Event) bool {
		return !ev.Timestamp.Before(start) && !ev.Timestamp.After(end)
	})
}

// All returns every event in insertion order.
func (s *EventStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order, nil)
}

// Len returns the number of events held.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *EventStore) collect(ids []string, keep func(Event) bool) []Event {
	out := make([]Event, 0, len(ids))
	for _, id := range ids {
		ev := s.events[id]
		if keep == nil || keep(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// DeleteBefore drops events older than cutoff from memory and from their
// profiles' event lists. It returns how many were dropped.
func (s *EventStore) DeleteBefore(cutoff time.Time) int {
	s.mu.Lock()
	dropped := make(map[string]map[string]struct{})
	n := 0
	for id, ev := range s.events {
		if !ev.Timestamp.Before(cutoff) {
			continue
		}
		if dropped[ev.UserID] == nil {
			dropped[ev.UserID] = make(map[string]struct{})
		}
		dropped[ev.UserID][id] = struct{}{}
		delete(s.events, id)
		n++
	}
	if n > 0 {
		s.order = s.live(s.order)
		for name, ids := range s.byName {
			if s.byName[name] = s.live(ids); len(s.byName[name]) == 0 {
				delete(s.byName, name)
			}
		}
		for user, ids := range s.byUser {
			if s.byUser[user] = s.live(ids); len(s.byUser[user]) == 0 {
				delete(s.byUser, user)
			}
		}
	}
	s.mu.Unlock()

	s.profiles.forgetEvents(dropped)
	return n
}

func (s *EventStore) live(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if _, ok := s.events[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// byDay groups events by the UTC calendar day of their timestamp.
func byDay(events []Event) (map[string][]Event, []string) {
	groups := make(map[string][]Event)
	for _, ev := range events {
		day := ev.Timestamp.UTC().Format(dayLayout)
		groups[day] = append(groups[day], ev)
	}
	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)
	return groups, days
}
