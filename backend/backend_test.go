package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func newTestClient(t *testing.T, router *mux.Router) *Client {
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoggedEventsOmitsEmptyAxes(t *testing.T) {
	var got map[string][]string
	r := mux.NewRouter()
	r.HandleFunc("/api/events/search", func(w http.ResponseWriter, req *http.Request) {
		got = req.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"_id": "e1", "title": "Sync", "startTime": map[string]any{"unix": 1714557600000}},
			},
		})
	}).Methods(http.MethodGet)
	c := newTestClient(t, r)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	items, err := c.LoggedEvents(context.Background(), LoggedQuery{
		ResourceID: "room1",
		StartDate:  null.TimeFrom(start),
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "e1", items[0].ID)

	assert.Equal(t, map[string][]string{
		"resourceId": {"room1"},
		"startDate":  {"1714521600000"},
	}, got)
}

func TestStatusErrorCarriesBody(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/calendar/events", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "mailbox unavailable", http.StatusBadGateway)
	})
	c := newTestClient(t, r)

	_, err := c.LiveEvents(context.Background(), LiveQuery{RoomEmail: "room1@example.com"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "mailbox unavailable")
}

func TestEnvelopeFailure(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/users/search", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "ann", req.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "search disabled"})
	})
	c := newTestClient(t, r)

	_, err := c.SearchUsers(context.Background(), "ann")
	var envErr *EnvelopeError
	require.True(t, errors.As(err, &envErr))
	assert.Equal(t, "search disabled", envErr.Message)
}

func TestRepairSyncDecodesFailureBody(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/events/miss-sync/sync/{id}", func(w http.ResponseWriter, req *http.Request) {
		if mux.Vars(req)["id"] == "broken" {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"errors":  []string{"resource mailbox not found"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"updated": map[string]any{"globalSyncId": "g1"},
		})
	}).Methods(http.MethodPost)
	c := newTestClient(t, r)

	resp, err := c.RepairSync(context.Background(), "ok")
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, null.StringFrom("g1"), resp.Updated.GlobalSyncID)
	assert.False(t, resp.Updated.SyncID.Valid)

	resp, err = c.RepairSync(context.Background(), "broken")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, []string{"resource mailbox not found"}, resp.Errors)
}

func TestDeleteLiveEventSendsRoom(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/calendar/events/{id}", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{"roomEmail":"room1@example.com"}`, string(b))
		assert.Equal(t, "AAMk=", mux.Vars(req)["id"])
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}).Methods(http.MethodDelete)
	c := newTestClient(t, r)

	require.NoError(t, c.DeleteLiveEvent(context.Background(), "AAMk=", "room1@example.com"))
}

func TestActivityLogsPagination(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/activity-logs", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.False(t, q.Has("user"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       []map[string]any{{"_id": "l1", "action": "LOGIN", "users": "ann"}},
			"pagination": map[string]int{"page": 2, "limit": 20, "total": 41, "pages": 3},
		})
	})
	c := newTestClient(t, r)

	logs, meta, err := c.ActivityLogs(context.Background(), ActivityQuery{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, 3, meta.Pages)
	assert.Equal(t, 41, meta.Total)
}

func TestQueryEncodings(t *testing.T) {
	day := time.Date(2024, 5, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)

	ms := MissingSyncQuery{EndDate: null.TimeFrom(day)}.Values()
	assert.Equal(t, "2024-05-31T23:59:59.999Z", ms.Get("endDate"))
	assert.False(t, ms.Has("startDate"))

	cq := CancellationQuery{StartTime: null.TimeFrom(day), RoomID: " "}.Values()
	assert.Equal(t, "1717199999999", cq.Get("startTime"))
	assert.False(t, cq.Has("roomID"))

	assert.True(t, LoggedQuery{}.IsEmpty())
	assert.Empty(t, LiveQuery{}.Values())
}
