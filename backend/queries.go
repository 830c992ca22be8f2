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

package backend

import (
	"net/url"
	"strconv"
	"strings"

	"roomadmin/timevalue"

	"github.com/volatiletech/null/v8"
)

// Every query omits unset fields instead of sending empty values.

type LiveQuery struct {
	RoomEmail string
	// StartDate and EndDate are calendar days, YYYY-MM-DD.
	StartDate string
	EndDate   string
	Search    string
}

func (q LiveQuery) Values() url.Values {
	v := url.Values{}
	set(v, "roomEmail", q.RoomEmail)
	set(v, "startDate", q.StartDate)
	set(v, "endDate", q.EndDate)
	set(v, "search", q.Search)
	return v
}

// LoggedQuery searches stored events. Dates go out as epoch milliseconds.
type LoggedQuery struct {
	EventID    string
	UserID     string
	ResourceID string
	StartDate  null.Time
	EndDate    null.Time
}

func (q LoggedQuery) Values() url.Values {
	v := url.Values{}
	set(v, "eventId", q.EventID)
	set(v, "userId", q.UserID)
	set(v, "resourceId", q.ResourceID)
	setMillis(v, "startDate", q.StartDate)
	setMillis(v, "endDate", q.EndDate)
	return v
}

func (q LoggedQuery) IsEmpty() bool {
	return len(q.Values()) == 0
}

// CancellationQuery searches the cancellation log. Times go out as epoch
// milliseconds.
type CancellationQuery struct {
	StartTime null.Time
	EndTime   null.Time
	RoomID    string
	EventID   string
}

func (q CancellationQuery) Values() url.Values {
	v := url.Values{}
	setMillis(v, "startTime", q.StartTime)
	setMillis(v, "endTime", q.EndTime)
	set(v, "roomID", q.RoomID)
	set(v, "eventId", q.EventID)
	return v
}

// MissingSyncQuery lists records lacking sync identifiers. Dates go out as
// ISO-8601.
type MissingSyncQuery struct {
	StartDate null.Time
	EndDate   null.Time
	EventID   string
	RoomID    string
}

func (q MissingSyncQuery) Values() url.Values {
	v := url.Values{}
	if q.StartDate.Valid {
		v.Set("startDate", timevalue.ToISO(q.StartDate))
	}
	if q.EndDate.Valid {
		v.Set("endDate", timevalue.ToISO(q.EndDate))
	}
	set(v, "eventId", q.EventID)
	set(v, "roomId", q.RoomID)
	return v
}

type ActivityQuery struct {
	Page      int
	Limit     int
	User      string
	Action    string
	StartDate string
	EndDate   string
}

func (q ActivityQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	set(v, "user", q.User)
	set(v, "action", q.Action)
	set(v, "startDate", q.StartDate)
	set(v, "endDate", q.EndDate)
	return v
}

func set(v url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		v.Set(key, value)
	}
}

func setMillis(v url.Values, key string, t null.Time) {
	if t.Valid {
		v.Set(key, strconv.FormatInt(t.Time.UnixMilli(), 10))
	}
}
