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

// Package normalize folds live calendar items, logged events and cancellation
// log entries into the single ViewEvent shape every screen renders.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"roomadmin/model"
	"roomadmin/timevalue"

	"github.com/volatiletech/null/v8"
)

const (
	CancelledSubjectPrefix = "Canceled:"
	UntitledEvent          = "Untitled Event"
	UnknownLocation        = "Unknown Location"
)

var zoneSuffix = regexp.MustCompile(`(Z|[+-]\d{2}:?\d{2})$`)

// Live maps a calendar provider item. The provider's date-times carry no zone
// and are read as UTC.
func Live(item model.LiveCalendarItem) model.ViewEvent {
	var location string
	if item.Location != nil {
		location = item.Location.DisplayName
	}
	it := item
	return model.ViewEvent{
		ID:          item.ID,
		Title:       titleOr(item.Subject),
		Start:       providerTime(item.Start),
		End:         providerTime(item.End),
		Location:    resolveLocation(location, ""),
		IsCancelled: false,
		Kind:        model.LiveCalendar,
		Raw:         model.RawEvent{Live: &it},
	}
}

// Logged maps a stored booking record.
func Logged(item model.LoggedEventItem) model.ViewEvent {
	it := item
	return model.ViewEvent{
		ID:          item.ID,
		Title:       titleOr(item.Title),
		Start:       item.StartTime.Time(),
		End:         item.EndTime.Time(),
		Location:    resolveLocation("", item.ResourceID),
		IsCancelled: item.Cancelled,
		Kind:        model.LoggedEvent,
		Raw:         model.RawEvent{Logged: &it},
	}
}

// Cancellation maps a cancellation log entry. The title names the room by the
// local part of its address.
func Cancellation(tx model.Transaction) model.ViewEvent {
	t := tx
	room, _, _ := strings.Cut(tx.RoomID, "@")
	return model.ViewEvent{
		ID:          tx.EventID,
		Title:       "Cancelled: " + room,
		Start:       tx.StartTime.Time(),
		End:         tx.EndTime.Time(),
		Location:    resolveLocation("", tx.RoomID),
		IsCancelled: true,
		Kind:        model.CancellationLog,
		Raw:         model.RawEvent{Transaction: &t},
	}
}

// FilterLiveCancelled drops provider items already represented in the
// cancellation log. The prefix match is case-sensitive.
func FilterLiveCancelled(items []model.LiveCalendarItem) []model.LiveCalendarItem {
	out := make([]model.LiveCalendarItem, 0, len(items))
	for _, it := range items {
		if strings.HasPrefix(it.Subject, CancelledSubjectPrefix) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Decode normalizes one raw backend item of the given kind.
func Decode(raw json.RawMessage, kind model.SourceKind) (model.ViewEvent, error) {
	switch kind {
	case model.LiveCalendar:
		var it model.LiveCalendarItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return model.ViewEvent{}, fmt.Errorf("decoding calendar item: %v", err)
		}
		return Live(it), nil
	case model.LoggedEvent:
		var it model.LoggedEventItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return model.ViewEvent{}, fmt.Errorf("decoding logged event: %v", err)
		}
		return Logged(it), nil
	case model.CancellationLog:
		var tx model.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return model.ViewEvent{}, fmt.Errorf("decoding transaction: %v", err)
		}
		return Cancellation(tx), nil
	}
	return model.ViewEvent{}, fmt.Errorf("unknown source kind %q", kind)
}

// Batch is one query's worth of raw items. Only the field matching the query's
// source is populated.
type Batch struct {
	Live          []model.LiveCalendarItem
	Logged        []model.LoggedEventItem
	Cancellations []model.Transaction
}

func (b Batch) Len() int {
	return len(b.Live) + len(b.Logged) + len(b.Cancellations)
}

// Events runs the batch through the cancellation filter and the normalizers.
// Logged events come back latest first.
func (b Batch) Events() []model.ViewEvent {
	events := make([]model.ViewEvent, 0, b.Len())
	for _, it := range FilterLiveCancelled(b.Live) {
		events = append(events, Live(it))
	}
	if len(b.Logged) > 0 {
		logged := make([]model.ViewEvent, 0, len(b.Logged))
		for _, it := range b.Logged {
			logged = append(logged, Logged(it))
		}
		SortByStartDesc(logged)
		events = append(events, logged...)
	}
	for _, tx := range b.Cancellations {
		events = append(events, Cancellation(tx))
	}
	return events
}

// SortByStartDesc orders events latest first. Events without a start go last
// and ties keep their order.
func SortByStartDesc(events []model.ViewEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Start, events[j].Start
		if !a.Valid || !b.Valid {
			return a.Valid && !b.Valid
		}
		return a.Time.After(b.Time)
	})
}

// FocusDate picks the day a calendar view should open on. Cancellation logs
// focus their earliest entry, other sources their first.
func FocusDate(events []model.ViewEvent) null.Time {
	if len(events) == 0 {
		return null.Time{}
	}
	if events[0].Kind != model.CancellationLog {
		return events[0].Start
	}
	var earliest null.Time
	for _, e := range events {
		if !e.Start.Valid {
			continue
		}
		if !earliest.Valid || e.Start.Time.Before(earliest.Time) {
			earliest = e.Start
		}
	}
	return earliest
}

func providerTime(dt *model.DateTimeTZ) null.Time {
	if dt == nil || strings.TrimSpace(dt.DateTime) == "" {
		return null.Time{}
	}
	s := strings.TrimSpace(dt.DateTime)
	if !zoneSuffix.MatchString(s) {
		if t := timevalue.Normalize(s + "Z"); t.Valid {
			return t
		}
	}
	return timevalue.Normalize(s)
}

func resolveLocation(displayName, resourceID string) string {
	if n := strings.TrimSpace(displayName); n != "" {
		return n
	}
	if r := strings.TrimSpace(resourceID); r != "" {
		return r
	}
	return UnknownLocation
}

func titleOr(title string) string {
	if strings.TrimSpace(title) == "" {
		return UntitledEvent
	}
	return title
}
