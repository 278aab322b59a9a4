package store

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// UserProfile aggregates what is known about one user. EventCount counts
// every event ever recorded; Events lists the IDs still held in memory.
type UserProfile struct {
	UserID      string                 `json:"userId"`
	Properties  map[string]interface{} `json:"properties"`
	FirstSeenAt time.Time              `json:"firstSeenAt"`
	LastSeenAt  time.Time              `json:"lastSeenAt"`
	EventCount  int                    `json:"eventCount"`
	Events      []string               `json:"events"`
}

// Row flattens the profile into the row shape the query engine consumes.
func (p UserProfile) Row() map[string]interface{} {
	row := make(map[string]interface{}, len(p.Properties)+4)
	for k, v := range p.Properties {
		row[k] = v
	}
	row["userId"] = p.UserID
	row["firstSeenAt"] = p.FirstSeenAt
	row["lastSeenAt"] = p.LastSeenAt
	row["eventCount"] = int64(p.EventCount)
	return row
}

func (p *UserProfile) clone() UserProfile {
	out := *p
	out.Properties = make(map[string]interface{}, len(p.Properties))
	for k, v := range p.Properties {
		out.Properties[k] = v
	}
	out.Events = slices.Clone(p.Events)
	if out.Events == nil {
		out.Events = []string{}
	}
	return out
}

// ProfileStore holds user profiles keyed by user ID. It is safe for
// concurrent use; profiles handed out are copies.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
	now      func() time.Time
}

// NewProfileStore creates an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]*UserProfile),
		now:      time.Now,
	}
}

// Get returns the profile of userID.
func (s *ProfileStore) Get(userID string) (UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return UserProfile{}, false
	}
	return p.clone(), true
}

// Create adds a new profile and fails if userID already has one.
func (s *ProfileStore) Create(userID string, props map[string]interface{}) (UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; ok {
		return UserProfile{}, fmt.Errorf("%w: %s", ErrProfileExists, userID)
	}
	return s.create(userID, props).clone(), nil
}

// GetOrCreate returns the profile of userID, creating it with props when
// missing. created reports which happened.
func (s *ProfileStore) GetOrCreate(userID string, props map[string]interface{}) (profile UserProfile, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		return p.clone(), false
	}
	return s.create(userID, props).clone(), true
}

func (s *ProfileStore) create(userID string, props map[string]interface{}) *UserProfile {
	now := s.now().UTC()
	p := &UserProfile{
		UserID:      userID,
		Properties:  make(map[string]interface{}, len(props)),
		FirstSeenAt: now,
		LastSeenAt:  now,
		Events:      []string{},
	}
	for k, v := range props {
		p.Properties[k] = v
	}
	s.profiles[userID] = p
	return p
}

// Update merges props into an existing profile.
func (s *ProfileStore) Update(userID string, props map[string]interface{}) (UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return UserProfile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	for k, v := range props {
		p.Properties[k] = v
	}
	p.LastSeenAt = s.now().UTC()
	return p.clone(), nil
}

// Delete removes a profile and reports whether it existed.
func (s *ProfileStore) Delete(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return false
	}
	delete(s.profiles, userID)
	return true
}

// All returns every profile ordered by user ID.
func (s *ProfileStore) All() []UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Len returns the number of profiles.
func (s *ProfileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Restore inserts or replaces a profile as-is, used when loading snapshots.
func (s *ProfileStore) Restore(p UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	restored := p.clone()
	s.profiles[p.UserID] = &restored
}

// recordEvent attaches an event to a user's profile, creating the profile
// if needed. When replaying, an ID already listed is not counted twice and
// the last-seen time is left alone.
func (s *ProfileStore) recordEvent(userID, eventID string, replay bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = s.create(userID, nil)
	}
	if replay {
		if slices.Contains(p.Events, eventID) {
			return
		}
	} else {
		p.LastSeenAt = s.now().UTC()
	}
	p.Events = append(p.Events, eventID)
	p.EventCount++
}

// forgetEvents removes event IDs from profiles without touching EventCount.
func (s *ProfileStore) forgetEvents(byUser map[string]map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, ids := range byUser {
		p, ok := s.profiles[userID]
		if !ok {
			continue
		}
		p.Events = slices.DeleteFunc(p.Events, func(id string) bool {
			_, drop := ids[id]
			return drop
		})
	}
}
