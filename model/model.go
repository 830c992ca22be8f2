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

package model

import (
	"encoding/json"

	"roomadmin/timevalue"

	"github.com/volatiletech/null/v8"
)

type SourceKind string

const (
	LiveCalendar    SourceKind = "liveCalendar"
	LoggedEvent     SourceKind = "loggedEvent"
	CancellationLog SourceKind = "cancellationLog"
)

// DateTimeTZ is the calendar provider's naive date-time with its zone name.
type DateTimeTZ struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Location struct {
	DisplayName string `json:"displayName"`
}

type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type Attendee struct {
	Type         string       `json:"type,omitempty"`
	EmailAddress EmailAddress `json:"emailAddress"`
}

// LiveCalendarItem is read straight from the room's calendar provider.
type LiveCalendarItem struct {
	ID          string      `json:"id"`
	Subject     string      `json:"subject"`
	Start       *DateTimeTZ `json:"start,omitempty"`
	End         *DateTimeTZ `json:"end,omitempty"`
	Location    *Location   `json:"location,omitempty"`
	Organizer   *Recipient  `json:"organizer,omitempty"`
	Attendees   []Attendee  `json:"attendees"`
	BodyPreview string      `json:"bodyPreview"`
	ICalUID     string      `json:"iCalUId"`
}

// LoggedEventItem is a booking persisted by the backend, with its audit trail
// and the identifiers that link it to downstream systems.
type LoggedEventItem struct {
	ID             string          `json:"_id"`
	Title          string          `json:"title"`
	StartTime      timevalue.Value `json:"startTime"`
	EndTime        timevalue.Value `json:"endTime"`
	UpdateTime     timevalue.Value `json:"updateTime"`
	ResourceID     string          `json:"resourceId"`
	Owner          string          `json:"owner"`
	Attendees      []string        `json:"attendees"`
	Cancelled      bool            `json:"cancelled"`
	Transactions   []Transaction   `json:"transactions"`
	GlobalSyncID   null.String     `json:"globalSyncId"`
	ResourceSyncID null.String     `json:"resourceSyncId"`
	SyncID         null.String     `json:"syncId"`
	CheckInPin     string          `json:"checkInPin,omitempty"`
	CheckedIn      bool            `json:"checkedIn"`
	Private        bool            `json:"private"`
	PendingSync    bool            `json:"pendingSync"`
	Impersonate    bool            `json:"impersonate"`
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionCancel Action = "cancel"
)

// Transaction is an append-only audit entry for an action on an event.
type Transaction struct {
	ID        string          `json:"_id"`
	Action    Action          `json:"action"`
	Time      timevalue.Value `json:"time"`
	EventID   string          `json:"eventId"`
	RoomID    string          `json:"roomId"`
	Subject   string          `json:"subject"`
	StartTime timevalue.Value `json:"startTime"`
	EndTime   timevalue.Value `json:"endTime"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// CancellationOwner resolves who booked a cancelled event.
type CancellationOwner struct {
	Event json.RawMessage `json:"event"`
	Owner *User           `json:"owner"`
}

type ActivityLog struct {
	ID        string          `json:"_id"`
	Action    string          `json:"action"`
	Users     string          `json:"users"`
	Detail    string          `json:"detail"`
	Timestamp timevalue.Value `json:"timestamp"`
}

// PageMeta is the server-side paging block of list responses.
type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// RawEvent retains exactly one source payload of a ViewEvent.
type RawEvent struct {
	Live        *LiveCalendarItem
	Logged      *LoggedEventItem
	Transaction *Transaction
}

func (r RawEvent) MarshalJSON() ([]byte, error) {
	switch {
	case r.Live != nil:
		return json.Marshal(r.Live)
	case r.Logged != nil:
		return json.Marshal(r.Logged)
	case r.Transaction != nil:
		return json.Marshal(r.Transaction)
	}
	return []byte("null"), nil
}

// ViewEvent is the source-independent projection every screen renders.
type ViewEvent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Start       null.Time  `json:"start"`
	End         null.Time  `json:"end"`
	Location    string     `json:"location"`
	IsCancelled bool       `json:"isCancelled"`
	Kind        SourceKind `json:"kind"`
	Raw         RawEvent   `json:"raw"`
}
