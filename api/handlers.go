package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vegasq/ncfstore/internal/rowjson"
	"github.com/vegasq/ncfstore/query"
	"github.com/vegasq/ncfstore/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody decodes a JSON body into target. An empty body leaves target
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) error {
	err := rowjson.DecodeInto(http.MaxBytesReader(w, r.Body, maxBodyBytes), target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func normalizeProps(props map[string]interface{}) map[string]interface{} {
	for k, v := range props {
		props[k] = rowjson.Normalize(v)
	}
	return props
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"profiles": s.profiles.Len(),
		"events":   s.events.Len(),
	})
}

type userRequest struct {
	UserID     string                 `json:"userId"`
	Properties map[string]interface{} `json:"properties"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.profiles.All())
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("userId is required"))
		return
	}

	profile, err := s.profiles.Create(req.UserID, normalizeProps(req.Properties))
	if errors.Is(err, store.ErrProfileExists) {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	profile, ok := s.profiles.Get(userID)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", store.ErrProfileNotFound, userID))
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

// handleUpdateUser merges properties into the profile, creating it first
// when the user is new.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var req userRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	props := normalizeProps(req.Properties)

	if _, created := s.profiles.GetOrCreate(userID, props); created {
		profile, _ := s.profiles.Get(userID)
		s.writeJSON(w, http.StatusCreated, profile)
		return
	}
	profile, err := s.profiles.Update(userID, props)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if !s.profiles.Delete(userID) {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", store.ErrProfileNotFound, userID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserEvents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.events.ByUser(mux.Vars(r)["userId"]))
}

// eventRequest is the body of POST /api/events. Timestamp is optional and
// may be unix milliseconds or an RFC 3339 string.
type eventRequest struct {
	EventName  string                 `json:"eventName"`
	UserID     string                 `json:"userId"`
	Properties map[string]interface{} `json:"properties"`
	Timestamp  interface{}            `json:"timestamp"`
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch ts := rowjson.Normalize(v).(type) {
	case nil:
		return time.Time{}, nil
	case int64:
		return time.UnixMilli(ts), nil
	case float64:
		return time.UnixMilli(int64(ts)), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("invalid timestamp of type %T", ts)
	}
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ev, err := s.events.AddEvent(req.EventName, req.UserID, normalizeProps(req.Properties), ts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.metrics.eventsIngested.Inc()
	s.writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.events.All())
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]
	ev, ok := s.events.Get(eventID)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("event not found: %s", eventID))
		return
	}
	s.writeJSON(w, http.StatusOK, ev)
}

// buildQuery decodes a query.Request body. It writes the 400 response
// itself and returns nil on failure.
func (s *Server) buildQuery(w http.ResponseWriter, body io.Reader) *query.Query {
	req, err := query.DecodeRequest(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil
	}
	q, err := req.Build()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil
	}
	return q
}

func (s *Server) writeResult(w http.ResponseWriter, target string, result *query.Result) {
	s.metrics.queryRows.WithLabelValues(target).Observe(float64(result.RowCount()))
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQueryUsers(w http.ResponseWriter, r *http.Request) {
	q := s.buildQuery(w, http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if q == nil {
		return
	}
	s.log.Debug("Querying users", zap.Stringer("query", q))
	s.writeResult(w, "users", s.engine.QueryUserProfiles(q))
}

func (s *Server) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	q := s.buildQuery(w, http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if q == nil {
		return
	}
	s.log.Debug("Querying events", zap.Stringer("query", q))
	s.writeResult(w, "events", s.engine.QueryEvents(q))
}

func (s *Server) handleQueryUserEvents(w http.ResponseWriter, r *http.Request) {
	q := s.buildQuery(w, http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if q == nil {
		return
	}
	s.writeResult(w, "user_events", s.engine.QueryUserEvents(mux.Vars(r)["userId"], q))
}

// funnelRequest carries the event criteria of the with-event and
// with-sequence routes next to a query over the matching profiles.
type funnelRequest struct {
	EventName string          `json:"eventName"`
	Events    []string        `json:"events"`
	WithinMs  int64           `json:"withinMs"`
	Query     json.RawMessage `json:"query"`
}

func (s *Server) decodeFunnel(w http.ResponseWriter, r *http.Request) (*funnelRequest, *query.Query) {
	var req funnelRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, nil
	}
	if req.WithinMs < 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("withinMs must be non-negative"))
		return nil, nil
	}
	q := s.buildQuery(w, bytes.NewReader(req.Query))
	if q == nil {
		return nil, nil
	}
	return &req, q
}

func (s *Server) handleUsersWithEvent(w http.ResponseWriter, r *http.Request) {
	req, q := s.decodeFunnel(w, r)
	if q == nil {
		return
	}
	if req.EventName == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("eventName is required"))
		return
	}
	s.writeResult(w, "users_with_event", s.engine.FindUsersWithEvent(req.EventName, q))
}

func (s *Server) handleUsersWithSequence(w http.ResponseWriter, r *http.Request) {
	req, q := s.decodeFunnel(w, r)
	if q == nil {
		return
	}
	if len(req.Events) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("events must list at least one event name"))
		return
	}
	within := time.Duration(req.WithinMs) * time.Millisecond
	s.writeResult(w, "users_with_sequence", s.engine.FindUsersWithEventSequence(req.Events, within, q))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.persistence.SaveAll(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.persistence.LoadAll(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}
