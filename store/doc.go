// Package store keeps user profiles and events in memory, answers queries
// over them with the query package, and persists them to a data directory.
//
// Layout of a data directory:
//
//	<dir>/profiles.json.zst          zstd-compressed JSON snapshot of all profiles
//	<dir>/ncf/events-YYYY-MM-DD.ncf  one NCF file per UTC day of events
//
// Events are written as rows with the columns eventId, eventName, userId and
// timestamp plus one column per property name seen that day.
package store
