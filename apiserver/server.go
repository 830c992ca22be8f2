//  This file is part of the eliona project.
//  Copyright © 2022 LEICOM iTEC AG. All Rights Reserved.
//  ______ _ _
// |  ____| (_)
// | |__  | |_  ___  _ __   __ _
// |  __| | | |/ _ \| '_ \ / _` |
// | |____| | | (_) | | | | (_| |
// |______|_|_|\___/|_| |_|\__,_|
//
//  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING
//  BUT NOT LIMITED  TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
//  NON INFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM,
//  DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
//  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package apiserver exposes the console screens as JSON view models and
// intent endpoints for a rendering front end.
package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roomadmin/backend"
	"roomadmin/filter"
	"roomadmin/model"
	"roomadmin/notify"
	"roomadmin/paging"
	"roomadmin/reconcile"
	"roomadmin/screen"
	"roomadmin/timevalue"

	"github.com/eliona-smart-building-assistant/go-eliona/frontend"
	"github.com/eliona-smart-building-assistant/go-utils/log"
	"github.com/gorilla/mux"
	"github.com/volatiletech/null/v8"
)

type Identity interface {
	User() *model.User
}

type Server struct {
	Screens  map[string]*screen.Screen
	Activity *screen.ActivityScreen
	Hub      *notify.Hub
	Session  Identity
	// RepairConcurrency bounds repair-all requests.
	RepairConcurrency int
}

func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/me", s.me).Methods(http.MethodGet)
	v1.HandleFunc("/notifications", s.notifications).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/ws", s.Hub.ServeWS).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/{id}", s.dismissNotification).Methods(http.MethodDelete)
	v1.HandleFunc("/activity", s.activity).Methods(http.MethodGet)

	sc := v1.PathPrefix("/screens/{screen}").Subrouter()
	sc.HandleFunc("", s.view).Methods(http.MethodGet)
	sc.HandleFunc("/filter", s.setFilter).Methods(http.MethodPut)
	sc.HandleFunc("/panel", s.togglePanel).Methods(http.MethodPost)
	sc.HandleFunc("/search", s.search).Methods(http.MethodPost)
	sc.HandleFunc("/clear", s.clear).Methods(http.MethodPost)
	sc.HandleFunc("/page/{page:[0-9]+}", s.goToPage).Methods(http.MethodPut)
	sc.HandleFunc("/page-size", s.setPageSize).Methods(http.MethodPut)
	sc.HandleFunc("/users", s.users).Methods(http.MethodGet)
	sc.HandleFunc("/users/query", s.userQuery).Methods(http.MethodPut)
	sc.HandleFunc("/users/select", s.selectUser).Methods(http.MethodPost)
	sc.HandleFunc("/users", s.clearUsers).Methods(http.MethodDelete)
	sc.HandleFunc("/repair", s.repairAll).Methods(http.MethodPost)
	sc.HandleFunc("/events/{id}", s.deleteEvent).Methods(http.MethodDelete)
	sc.HandleFunc("/events/{id}", s.updateEvent).Methods(http.MethodPatch)
	sc.HandleFunc("/events/{id}/sync", s.updateSync).Methods(http.MethodPatch)
	sc.HandleFunc("/events/{id}/repair", s.repair).Methods(http.MethodPost)
	sc.HandleFunc("/events/{id}/owner", s.owner).Methods(http.MethodGet)
	sc.HandleFunc("/events/{id}/participants", s.participants).Methods(http.MethodGet)
	return r
}

type View struct {
	Filter     filter.State                 `json:"filter"`
	Empty      bool                         `json:"empty"`
	Page       paging.Page[model.ViewEvent] `json:"page"`
	Pages      []paging.Token               `json:"pages"`
	ShowPager  bool                         `json:"showPager"`
	From       int                          `json:"from"`
	To         int                          `json:"to"`
	FocusDate  null.Time                    `json:"focusDate"`
	Sync       []reconcile.Row              `json:"sync,omitempty"`
	Warning    string                       `json:"warning,omitempty"`
	UserPicker filter.PickerState           `json:"userPicker"`
}

func viewOf(sc *screen.Screen) View {
	page := sc.Page()
	from, to := paging.ItemRange(page.Page, page.PageSize, page.TotalItems)
	return View{
		Filter:     sc.Filter.State(),
		Empty:      sc.Filter.IsEmpty(),
		Page:       page,
		Pages:      sc.Tokens(),
		ShowPager:  paging.Visible(page.TotalPages),
		From:       from,
		To:         to,
		FocusDate:  sc.FocusDate(),
		Sync:       sc.SyncRows(),
		UserPicker: sc.Users.State(),
	}
}

func (s *Server) screen(w http.ResponseWriter, r *http.Request) (*screen.Screen, bool) {
	name := mux.Vars(r)["screen"]
	sc, ok := s.Screens[name]
	if !ok {
		writeError(w, screen.ErrNotFound)
		return nil, false
	}
	return sc, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "Invalid request payload")
		return false
	}
	return true
}

func actingUser(r *http.Request) string {
	if env := frontend.GetEnvironment(r.Context()); env != nil {
		return env.UserId
	}
	return ""
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	if s.Session == nil || s.Session.User() == nil {
		writeJSON(w, http.StatusUnauthorized, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.Session.User())
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Hub.Active())
}

func (s *Server) dismissNotification(w http.ResponseWriter, r *http.Request) {
	if !s.Hub.Dismiss(mux.Vars(r)["id"]) {
		writeError(w, screen.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sc))
}

// filterRequest sets the given axes; absent fields are left alone. Dates
// accept any encoding the time normalizer does.
type filterRequest struct {
	Start      json.RawMessage `json:"start"`
	End        json.RawMessage `json:"end"`
	ResourceID *string         `json:"resourceId"`
	UserID     *string         `json:"userId"`
	Text       *string         `json:"text"`
}

func (s *Server) setFilter(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Start != nil {
		sc.Filter.SetStart(timevalue.Normalize(req.Start))
	}
	if req.End != nil {
		sc.Filter.SetEnd(timevalue.Normalize(req.End))
	}
	if req.ResourceID != nil {
		sc.Filter.SetResourceID(*req.ResourceID)
	}
	if req.UserID != nil {
		sc.Filter.SetUserID(*req.UserID)
	}
	if req.Text != nil {
		sc.Filter.SetTextQuery(*req.Text)
	}
	v := viewOf(sc)
	if err := sc.Filter.Validate(); err != nil {
		v.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) togglePanel(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	sc.Filter.TogglePanel()
	writeJSON(w, http.StatusOK, viewOf(sc))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	res, err := sc.Search(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	v := viewOf(sc)
	if res.Warning != nil {
		v.Warning = res.Warning.Error()
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	sc.Clear()
	writeJSON(w, http.StatusOK, viewOf(sc))
}

func (s *Server) goToPage(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		badRequest(w, "Invalid page")
		return
	}
	sc.GoToPage(page)
	writeJSON(w, http.StatusOK, viewOf(sc))
}

func (s *Server) setPageSize(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	var req struct {
		Size int `json:"size"`
	}
	if !decode(w, r, &req) {
		return
	}
	valid := false
	for _, size := range paging.PageSizes {
		valid = valid || size == req.Size
	}
	if !valid {
		badRequest(w, "Invalid page size")
		return
	}
	sc.SetPageSize(req.Size)
	writeJSON(w, http.StatusOK, viewOf(sc))
}

func (s *Server) users(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sc.Users.State())
}

func (s *Server) userQuery(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if !decode(w, r, &req) {
		return
	}
	sc.Users.SetQuery(req.Query)
	writeJSON(w, http.StatusOK, sc.Users.State())
}

func (s *Server) selectUser(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	var u model.User
	if !decode(w, r, &u) {
		return
	}
	sc.Users.Select(u)
	sc.Filter.SetUserID(u.ID)
	writeJSON(w, http.StatusOK, viewOf(sc))
}

func (s *Server) clearUsers(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	sc.Users.Clear()
	sc.Filter.SetUserID("")
	writeJSON(w, http.StatusOK, viewOf(sc))
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	log.Info("apiserver", "User %q deletes event %s.", actingUser(r), id)
	if err := sc.DeleteLive(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sc))
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	var u backend.LoggedEventUpdate
	if !decode(w, r, &u) {
		return
	}
	id := mux.Vars(r)["id"]
	log.Info("apiserver", "User %q updates event %s.", actingUser(r), id)
	e, err := sc.UpdateLogged(r.Context(), id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateSync(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	var u backend.MissingSyncUpdate
	if !decode(w, r, &u) {
		return
	}
	id := mux.Vars(r)["id"]
	log.Info("apiserver", "User %q edits sync record %s.", actingUser(r), id)
	e, err := sc.UpdateMissingSync(r.Context(), id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) repair(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	e, err := sc.Repair(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Event model.ViewEvent `json:"event"`
		State string          `json:"state"`
	}{e, string(sc.SyncState(id))})
}

func (s *Server) repairAll(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	results, err := sc.RepairAll(r.Context(), s.RepairConcurrency)
	if err != nil {
		writeError(w, err)
		return
	}
	type result struct {
		EventID string `json:"eventId"`
		Error   string `json:"error,omitempty"`
	}
	out := make([]result, 0, len(results))
	for _, res := range results {
		item := result{EventID: res.EventID}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	owner, err := sc.Owner(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, owner)
}

func (s *Server) participants(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.screen(w, r)
	if !ok {
		return
	}
	users, err := sc.Participants(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	if s.Activity == nil {
		writeError(w, screen.ErrNotFound)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filterQuery := backend.ActivityQuery{
		Page:      page,
		User:      q.Get("user"),
		Action:    q.Get("action"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
	res, err := s.Activity.Filter(r.Context(), filterQuery)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
