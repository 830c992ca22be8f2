package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomadmin/backend"
	"roomadmin/clock"
	"roomadmin/model"
	"roomadmin/notify"
	"roomadmin/screen"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBackend(t *testing.T) *backend.Client {
	r := mux.NewRouter()
	send := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	r.HandleFunc("/api/events/search", func(w http.ResponseWriter, req *http.Request) {
		var data []map[string]any
		for i := 0; i < 12; i++ {
			data = append(data, map[string]any{
				"_id":        "evt-" + string(rune('a'+i)),
				"title":      "Booking",
				"startTime":  map[string]any{"unix": 1714557600 + i*86400},
				"resourceId": req.URL.Query().Get("resourceId"),
			})
		}
		send(w, http.StatusOK, map[string]any{"success": true, "data": data})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/events/miss-sync", func(w http.ResponseWriter, _ *http.Request) {
		send(w, http.StatusOK, map[string]any{
			"success": true,
			"count":   2,
			"data": []map[string]any{
				{"_id": "ok", "resourceSyncId": "r1"},
				{"_id": "bad", "resourceSyncId": "r2"},
			},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/events/miss-sync/sync/ok", func(w http.ResponseWriter, _ *http.Request) {
		send(w, http.StatusOK, map[string]any{"success": true, "updated": map[string]any{"globalSyncId": "g1", "syncId": "s1"}})
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/events/miss-sync/sync/bad", func(w http.ResponseWriter, _ *http.Request) {
		send(w, http.StatusInternalServerError, map[string]any{"success": false, "errors": []string{"room not mapped"}})
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, srv.Client())
}

type staticIdentity struct{ user *model.User }

func (s staticIdentity) User() *model.User { return s.user }

func newTestRouter(t *testing.T) *mux.Router {
	api := fakeBackend(t)
	hub := notify.NewHub(clock.NewFake(time.Now()), notify.DefaultTTLs)
	opts := screen.Options{
		Clock:     clock.NewFake(time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)),
		Publisher: hub,
	}
	return NewRouter(&Server{
		Screens: map[string]*screen.Screen{
			"userEvents":  screen.NewUserEvents(api, opts),
			"missingSync": screen.NewMissingSync(api, opts),
		},
		Hub:               hub,
		Session:           staticIdentity{user: &model.User{ID: "u1", Name: "Ada"}},
		RepairConcurrency: 2,
	})
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func field(t *testing.T, data any, path ...string) any {
	t.Helper()
	for _, p := range path {
		m, ok := data.(map[string]any)
		require.True(t, ok, "no object at %s", p)
		data = m[p]
	}
	return data
}

func TestSearchWithoutFilterIsRejected(t *testing.T) {
	r := newTestRouter(t)
	code, resp := do(t, r, http.MethodPost, "/v1/screens/userEvents/search", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "please select at least one filter", resp.Error)
}

func TestFilterSearchAndPage(t *testing.T) {
	r := newTestRouter(t)

	code, resp := do(t, r, http.MethodPut, "/v1/screens/userEvents/filter",
		`{"resourceId":"room1","start":"2024-05-01","end":{"unix":1717199999}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, field(t, resp.Data, "empty"))

	code, resp = do(t, r, http.MethodPost, "/v1/screens/userEvents/search", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(12), field(t, resp.Data, "page", "totalItems"))
	assert.Equal(t, float64(2), field(t, resp.Data, "page", "totalPages"))
	assert.Equal(t, true, field(t, resp.Data, "showPager"))
	items := field(t, resp.Data, "page", "items").([]any)
	assert.Equal(t, "evt-l", field(t, items[0], "id"))

	code, resp = do(t, r, http.MethodPut, "/v1/screens/userEvents/page/2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(11), field(t, resp.Data, "from"))
	assert.Equal(t, float64(12), field(t, resp.Data, "to"))

	code, _ = do(t, r, http.MethodPut, "/v1/screens/userEvents/page-size", `{"size":15}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, r, http.MethodGet, "/v1/notifications", "")
	require.Equal(t, http.StatusOK, code)
	notes := resp.Data.([]any)
	require.Len(t, notes, 1)
	assert.Equal(t, "Found 12 events", field(t, notes[0], "message"))
}

func TestRepairEndpoints(t *testing.T) {
	r := newTestRouter(t)
	code, resp := do(t, r, http.MethodPost, "/v1/screens/missingSync/search", "")
	require.Equal(t, http.StatusOK, code)
	rows := field(t, resp.Data, "sync").([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "partiallyMissing", field(t, rows[0], "state"))

	code, resp = do(t, r, http.MethodPost, "/v1/screens/missingSync/events/ok/repair", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "syncSucceeded", field(t, resp.Data, "state"))

	code, resp = do(t, r, http.MethodPost, "/v1/screens/missingSync/events/bad/repair", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, []string{"room not mapped"}, resp.Errors)

	code, _ = do(t, r, http.MethodPost, "/v1/screens/missingSync/events/ok/repair", "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodPost, "/v1/screens/userEvents/events/ok/repair", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestUnknownScreenAndIdentity(t *testing.T) {
	r := newTestRouter(t)
	code, _ := do(t, r, http.MethodGet, "/v1/screens/nope", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, resp := do(t, r, http.MethodGet, "/v1/me", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ada", field(t, resp.Data, "name"))
}
