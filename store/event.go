package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reserved row keys for events. They override properties of the same name.
const (
	FieldEventID   = "eventId"
	FieldEventName = "eventName"
	FieldUserID    = "userId"
	FieldTimestamp = "timestamp"
)

// Event is one thing a user did.
type Event struct {
	EventID    string                 `json:"eventId"`
	EventName  string                 `json:"eventName"`
	UserID     string                 `json:"userId"`
	Properties map[string]interface{} `json:"properties"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewEvent fills in a random ID and, when ts is zero, the current time.
// Timestamps are kept at millisecond precision, as stored on disk.
func NewEvent(name, userID string, props map[string]interface{}, ts time.Time) Event {
	if props == nil {
		props = make(map[string]interface{})
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		EventID:    uuid.NewString(),
		EventName:  name,
		UserID:     userID,
		Properties: props,
		Timestamp:  ts.UTC().Truncate(time.Millisecond),
	}
}

// Row flattens the event into the row shape the query engine consumes.
func (e Event) Row() map[string]interface{} {
	row := make(map[string]interface{}, len(e.Properties)+4)
	for k, v := range e.Properties {
		row[k] = v
	}
	row[FieldEventID] = e.EventID
	row[FieldEventName] = e.EventName
	row[FieldUserID] = e.UserID
	row[FieldTimestamp] = e.Timestamp
	return row
}

// eventFromRow is the inverse of Row for rows read back from NCF files.
// Null properties are dropped since they only exist as column padding.
func eventFromRow(row map[string]interface{}) (Event, error) {
	id, _ := row[FieldEventID].(string)
	name, _ := row[FieldEventName].(string)
	userID, _ := row[FieldUserID].(string)
	if id == "" || name == "" || userID == "" {
		return Event{}, fmt.Errorf("%w: row is missing %s, %s or %s", ErrInvalidEvent, FieldEventID, FieldEventName, FieldUserID)
	}

	var ts time.Time
	switch v := row[FieldTimestamp].(type) {
	case time.Time:
		ts = v.UTC()
	case int64:
		ts = time.UnixMilli(v).UTC()
	default:
		return Event{}, fmt.Errorf("%w: event %s has timestamp of type %T", ErrInvalidEvent, id, v)
	}

	props := make(map[string]interface{}, len(row))
	for k, v := range row {
		switch k {
		case FieldEventID, FieldEventName, FieldUserID, FieldTimestamp:
			continue
		}
		if v != nil {
			props[k] = v
		}
	}

	return Event{EventID: id, EventName: name, UserID: userID, Properties: props, Timestamp: ts}, nil
}
