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

package query

import (
	"context"
	"strings"
	"time"

	"roomadmin/backend"
	"roomadmin/filter"
	"roomadmin/model"
	"roomadmin/normalize"
	"roomadmin/timevalue"

	"github.com/volatiletech/null/v8"
)

// Source fetches one kind of raw events for a filter state.
type Source interface {
	Kind() model.SourceKind
	Fetch(ctx context.Context, state filter.State) (normalize.Batch, error)
}

type LiveAPI interface {
	LiveEvents(ctx context.Context, q backend.LiveQuery) ([]model.LiveCalendarItem, error)
}

type LoggedAPI interface {
	LoggedEvents(ctx context.Context, q backend.LoggedQuery) ([]model.LoggedEventItem, error)
}

type CancellationAPI interface {
	CancelledTransactions(ctx context.Context, q backend.CancellationQuery) ([]model.Transaction, error)
}

type MissingSyncAPI interface {
	MissingSync(ctx context.Context, q backend.MissingSyncQuery) ([]model.LoggedEventItem, int, error)
}

const dayLayout = "2006-01-02"

// LiveCalendarSource reads one room's calendar. The room comes from the
// resource axis, falling back to DefaultRoom.
type LiveCalendarSource struct {
	API         LiveAPI
	Location    *time.Location
	DefaultRoom string
}

func (s LiveCalendarSource) Kind() model.SourceKind { return model.LiveCalendar }

func (s LiveCalendarSource) Query(state filter.State) backend.LiveQuery {
	room := state.ResourceID
	if room == "" {
		room = s.DefaultRoom
	}
	q := backend.LiveQuery{
		RoomEmail: room,
		Search:    strings.TrimSpace(state.TextQuery),
	}
	if state.DateRange.Start.Valid {
		q.StartDate = state.DateRange.Start.Time.In(loc(s.Location)).Format(dayLayout)
	}
	if state.DateRange.End.Valid {
		q.EndDate = state.DateRange.End.Time.In(loc(s.Location)).Format(dayLayout)
	}
	return q
}

func (s LiveCalendarSource) Fetch(ctx context.Context, state filter.State) (normalize.Batch, error) {
	q := s.Query(state)
	if q.RoomEmail == "" {
		return normalize.Batch{}, &filter.ValidationError{Field: "resourceId", Reason: "a room email is required"}
	}
	items, err := s.API.LiveEvents(ctx, q)
	if err != nil {
		return normalize.Batch{}, err
	}
	return normalize.Batch{Live: items}, nil
}

// LoggedEventSource searches stored events. The text axis is an event id.
type LoggedEventSource struct {
	API      LoggedAPI
	Location *time.Location
}

func (s LoggedEventSource) Kind() model.SourceKind { return model.LoggedEvent }

func (s LoggedEventSource) Query(state filter.State) backend.LoggedQuery {
	return backend.LoggedQuery{
		EventID:    strings.TrimSpace(state.TextQuery),
		UserID:     state.UserID,
		ResourceID: state.ResourceID,
		StartDate:  startOfDay(state.DateRange.Start, s.Location),
		EndDate:    endOfDay(state.DateRange.End, s.Location),
	}
}

func (s LoggedEventSource) Fetch(ctx context.Context, state filter.State) (normalize.Batch, error) {
	items, err := s.API.LoggedEvents(ctx, s.Query(state))
	if err != nil {
		return normalize.Batch{}, err
	}
	return normalize.Batch{Logged: items}, nil
}

// CancellationSource reads the cancellation log.
type CancellationSource struct {
	API      CancellationAPI
	Location *time.Location
}

func (s CancellationSource) Kind() model.SourceKind { return model.CancellationLog }

func (s CancellationSource) Query(state filter.State) backend.CancellationQuery {
	return backend.CancellationQuery{
		StartTime: startOfDay(state.DateRange.Start, s.Location),
		EndTime:   endOfDay(state.DateRange.End, s.Location),
		RoomID:    state.ResourceID,
		EventID:   strings.TrimSpace(state.TextQuery),
	}
}

func (s CancellationSource) Fetch(ctx context.Context, state filter.State) (normalize.Batch, error) {
	txs, err := s.API.CancelledTransactions(ctx, s.Query(state))
	if err != nil {
		return normalize.Batch{}, err
	}
	return normalize.Batch{Cancellations: txs}, nil
}

// MissingSyncSource reads the report of records lacking sync identifiers.
type MissingSyncSource struct {
	API      MissingSyncAPI
	Location *time.Location
}

func (s MissingSyncSource) Kind() model.SourceKind { return model.LoggedEvent }

func (s MissingSyncSource) Query(state filter.State) backend.MissingSyncQuery {
	return backend.MissingSyncQuery{
		StartDate: startOfDay(state.DateRange.Start, s.Location),
		EndDate:   endOfDay(state.DateRange.End, s.Location),
		EventID:   strings.TrimSpace(state.TextQuery),
		RoomID:    state.ResourceID,
	}
}

func (s MissingSyncSource) Fetch(ctx context.Context, state filter.State) (normalize.Batch, error) {
	items, _, err := s.API.MissingSync(ctx, s.Query(state))
	if err != nil {
		return normalize.Batch{}, err
	}
	return normalize.Batch{Logged: items}, nil
}

func loc(l *time.Location) *time.Location {
	if l == nil {
		return time.UTC
	}
	return l
}

func startOfDay(t null.Time, l *time.Location) null.Time {
	if !t.Valid {
		return t
	}
	return null.TimeFrom(timevalue.StartOfDay(t.Time, loc(l)))
}

func endOfDay(t null.Time, l *time.Location) null.Time {
	if !t.Valid {
		return t
	}
	return null.TimeFrom(timevalue.EndOfDay(t.Time, loc(l)))
}
