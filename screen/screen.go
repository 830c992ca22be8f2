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

// Package screen wires the filter, search, paging and sync state of each
// console screen together.
package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomadmin/backend"
	"roomadmin/clock"
	"roomadmin/filter"
	"roomadmin/model"
	syncmodel "roomadmin/model/sync"
	"roomadmin/normalize"
	"roomadmin/notify"
	"roomadmin/paging"
	"roomadmin/query"
	"roomadmin/reconcile"
	"roomadmin/timevalue"

	"github.com/eliona-smart-building-assistant/go-utils/log"
	"github.com/volatiletech/null/v8"
)

// API is the part of the backend the screens use. *backend.Client
// implements it.
type API interface {
	query.LiveAPI
	query.LoggedAPI
	query.CancellationAPI
	query.MissingSyncAPI
	query.UserLookup
	filter.UserSearcher
	reconcile.Repairer
	DeleteLiveEvent(ctx context.Context, eventID, roomEmail string) error
	UpdateLoggedEvent(ctx context.Context, eventID string, u backend.LoggedEventUpdate) (model.LoggedEventItem, error)
	UpdateMissingSync(ctx context.Context, eventID string, u backend.MissingSyncUpdate) (model.LoggedEventItem, error)
	CancellationOwner(ctx context.Context, eventID string) (model.CancellationOwner, error)
	ActivityLogs(ctx context.Context, q backend.ActivityQuery) ([]model.ActivityLog, model.PageMeta, error)
}

var ErrNotFound = errors.New("event not found")

// ErrNoSync is returned by sync operations on screens without a report.
var ErrNoSync = errors.New("screen has no sync report")

type Options struct {
	Clock    clock.Clock
	Location *time.Location
	PageSize int
	Debounce time.Duration
	Timeout  time.Duration
	// Policy overrides the screen's default empty query policy.
	Policy         query.Policy
	DefaultRoom    string
	MinUserQuery   int
	NarrowViewport bool
	Publisher      reconcile.Publisher
	SuccessTTL     time.Duration
	FailureTTL     time.Duration
	// OnPageChange is called after every page change, e.g. to scroll the
	// results view to the top.
	OnPageChange func(page int)
}

type Screen struct {
	Name    string
	Filter  *filter.Composer
	Results *query.Orchestrator
	Users   *filter.UserPicker
	// Sync is set on the missing-sync screen only.
	Sync *reconcile.Reconciler

	api         API
	opts        Options
	defaultRoom string
}

func NewCalendar(api API, opts Options) *Screen {
	src := query.LiveCalendarSource{API: api, Location: opts.Location, DefaultRoom: opts.DefaultRoom}
	return build("calendar", api, src, opts, query.PolicyAllow, monthRange(opts), nil)
}

func NewUserEvents(api API, opts Options) *Screen {
	src := query.LoggedEventSource{API: api, Location: opts.Location}
	return build("userEvents", api, src, opts, query.PolicyBlock, filter.DateRange{}, query.NarrowByEventID)
}

func NewCancelled(api API, opts Options) *Screen {
	src := query.CancellationSource{API: api, Location: opts.Location}
	return build("cancelled", api, src, opts, query.PolicyAllow, monthRange(opts), nil)
}

func NewMissingSync(api API, opts Options) *Screen {
	src := query.MissingSyncSource{API: api, Location: opts.Location}
	s := build("missingSync", api, src, opts, query.PolicyAllow, monthRange(opts), nil)
	s.Sync = reconcile.New(api, reconcile.Options{
		Clock:      opts.Clock,
		SuccessTTL: opts.SuccessTTL,
		FailureTTL: opts.FailureTTL,
		Publisher:  opts.Publisher,
	})
	return s
}

func build(name string, api API, src query.Source, opts Options, policy query.Policy, initial filter.DateRange, narrow query.NarrowFunc) *Screen {
	if opts.Policy != "" {
		policy = opts.Policy
	}
	if opts.PageSize <= 0 {
		opts.PageSize = paging.DefaultPageSize
	}
	return &Screen{
		Name: name,
		Filter: filter.NewComposer(filter.Options{
			Clock:          opts.Clock,
			Debounce:       opts.Debounce,
			NarrowViewport: opts.NarrowViewport,
			InitialRange:   initial,
		}),
		Results: query.New(src, query.Options{
			Policy:       policy,
			Pager:        paging.NewPager(opts.PageSize, opts.OnPageChange),
			Timeout:      opts.Timeout,
			Narrow:       narrow,
			InitialRange: initial,
		}),
		Users: filter.NewUserPicker(api, filter.PickerOptions{
			Clock:     opts.Clock,
			Debounce:  opts.Debounce,
			MinLength: opts.MinUserQuery,
			Timeout:   opts.Timeout,
		}),
		api:         api,
		opts:        opts,
		defaultRoom: opts.DefaultRoom,
	}
}

func monthRange(opts Options) filter.DateRange {
	now := time.Now()
	if opts.Clock != nil {
		now = opts.Clock.Now()
	}
	l := opts.Location
	if l == nil {
		l = time.UTC
	}
	start, end := timevalue.MonthRange(now, l)
	return filter.DateRange{Start: null.TimeFrom(start), End: null.TimeFrom(end)}
}

// Search runs the screen's current filter and reports the outcome as a
// notification. A superseded search is dropped silently.
func (s *Screen) Search(ctx context.Context) (query.Result, error) {
	res, err := s.Results.Search(ctx, s.Filter.State())
	switch {
	case errors.Is(err, query.ErrStaleResponse):
		return res, err
	case err != nil:
		var terr *query.TransportError
		if s.Sync != nil && errors.As(err, &terr) {
			s.Sync.Load(nil)
		}
		s.publish(notify.Error, failureMessage(err))
		return res, err
	}
	if res.Warning != nil {
		s.publish(notify.Info, res.Warning.Error())
	}
	if n := len(res.Events); n > 0 {
		s.publish(notify.Success, fmt.Sprintf("Found %d events", n))
	} else {
		s.publish(notify.Info, "No events found")
	}
	s.Filter.ClosePanel()
	if s.Sync != nil {
		s.Sync.Load(loggedItems(res.Events))
	}
	return res, nil
}

func failureMessage(err error) string {
	var verr *filter.ValidationError
	var terr *query.TransportError
	switch {
	case errors.Is(err, query.ErrEmptyQuery):
		return "Please select at least one filter"
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &terr):
		return "Failed to fetch events"
	}
	return err.Error()
}

// Page is the current page of the narrowed result list.
func (s *Screen) Page() paging.Page[model.ViewEvent] {
	return s.Results.Page(s.Filter.State())
}

func (s *Screen) GoToPage(page int) int {
	return s.Results.Pager().Go(page)
}

func (s *Screen) SetPageSize(size int) {
	s.Results.Pager().SetPageSize(size)
}

// Tokens are the page buttons for the current page.
func (s *Screen) Tokens() []paging.Token {
	st := s.Results.Pager().State()
	return paging.PageNumbers(st.CurrentPage, st.TotalPages)
}

// Clear resets the filter to its defaults and empties the results.
func (s *Screen) Clear() {
	s.Filter.Reset()
	s.Filter.ClosePanel()
	s.Users.Clear()
	s.Results.Clear()
	if s.Sync != nil {
		s.Sync.Load(nil)
	}
}

// DeleteLive removes a live calendar item from the room it was found in.
func (s *Screen) DeleteLive(ctx context.Context, id string) error {
	e, ok := s.Results.Get(id)
	if !ok || e.Raw.Live == nil {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}
	room := s.Filter.State().ResourceID
	if room == "" {
		room = s.defaultRoom
	}
	if err := s.api.DeleteLiveEvent(ctx, id, room); err != nil {
		log.Error("screen", "deleting event %s: %v", id, err)
		s.publish(notify.Error, "Failed to delete event")
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	s.Results.Remove(id)
	s.publish(notify.Success, "Event deleted successfully")
	return nil
}

// UpdateLogged saves edits to a logged event and swaps in the stored record.
func (s *Screen) UpdateLogged(ctx context.Context, id string, u backend.LoggedEventUpdate) (model.ViewEvent, error) {
	item, err := s.api.UpdateLoggedEvent(ctx, id, u)
	if err != nil {
		log.Error("screen", "updating event %s: %v", id, err)
		s.publish(notify.Error, "Failed to update event")
		return model.ViewEvent{}, fmt.Errorf("updating event %s: %w", id, err)
	}
	e := normalize.Logged(item)
	s.Results.Replace(e)
	s.publish(notify.Success, "Event updated successfully")
	return e, nil
}

// UpdateMissingSync edits a report row by hand.
func (s *Screen) UpdateMissingSync(ctx context.Context, id string, u backend.MissingSyncUpdate) (model.ViewEvent, error) {
	if s.Sync == nil {
		return model.ViewEvent{}, ErrNoSync
	}
	item, err := s.api.UpdateMissingSync(ctx, id, u)
	if err != nil {
		log.Error("screen", "updating sync record %s: %v", id, err)
		s.publish(notify.Error, "Failed to update record")
		return model.ViewEvent{}, fmt.Errorf("updating sync record %s: %w", id, err)
	}
	e := normalize.Logged(item)
	s.Results.Replace(e)
	s.Sync.Replace(item)
	s.publish(notify.Success, "Record updated successfully")
	return e, nil
}

// Repair runs a sync repair and refreshes the row with the merged record.
func (s *Screen) Repair(ctx context.Context, id string) (model.ViewEvent, error) {
	if s.Sync == nil {
		return model.ViewEvent{}, ErrNoSync
	}
	item, err := s.Sync.Repair(ctx, id)
	if err != nil {
		return model.ViewEvent{}, err
	}
	e := normalize.Logged(item)
	s.Results.Replace(e)
	return e, nil
}

// RepairAll repairs every incomplete row of the report.
func (s *Screen) RepairAll(ctx context.Context, concurrency int) ([]reconcile.Result, error) {
	if s.Sync == nil {
		return nil, ErrNoSync
	}
	results := s.Sync.RepairAll(ctx, s.Sync.Incomplete(), concurrency)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if item, ok := s.Sync.Record(r.EventID); ok {
			s.Results.Replace(normalize.Logged(item))
		}
	}
	return results, nil
}

func (s *Screen) SyncRows() []reconcile.Row {
	if s.Sync == nil {
		return nil
	}
	return s.Sync.Snapshot()
}

func (s *Screen) SyncState(id string) syncmodel.State {
	if s.Sync == nil {
		return ""
	}
	return s.Sync.State(id)
}

// Owner resolves who booked a cancelled event.
func (s *Screen) Owner(ctx context.Context, id string) (model.CancellationOwner, error) {
	owner, err := s.api.CancellationOwner(ctx, id)
	if err != nil {
		return model.CancellationOwner{}, fmt.Errorf("looking up owner of %s: %w", id, err)
	}
	return owner, nil
}

// Participants resolves owner and attendees of a logged event.
func (s *Screen) Participants(ctx context.Context, id string) (map[string]model.User, error) {
	e, ok := s.Results.Get(id)
	if !ok || e.Raw.Logged == nil {
		return nil, fmt.Errorf("resolving participants of %s: %w", id, ErrNotFound)
	}
	return query.ResolveParticipants(ctx, s.api, *e.Raw.Logged)
}

func (s *Screen) FocusDate() null.Time {
	return s.Results.FocusDate()
}

func (s *Screen) publish(kind notify.Kind, message string) {
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(kind, message)
	}
}

func loggedItems(events []model.ViewEvent) []model.LoggedEventItem {
	items := make([]model.LoggedEventItem, 0, len(events))
	for _, e := range events {
		if e.Raw.Logged != nil {
			items = append(items, *e.Raw.Logged)
		}
	}
	return items
}
