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
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"roomadmin/model"
	syncmodel "roomadmin/model/sync"

	"github.com/friendsofgo/errors"
)

func (c *Client) LiveEvents(ctx context.Context, q LiveQuery) ([]model.LiveCalendarItem, error) {
	env, err := call[[]model.LiveCalendarItem](ctx, c, http.MethodGet, "/api/calendar/events", q.Values(), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) DeleteLiveEvent(ctx context.Context, eventID, roomEmail string) error {
	body := struct {
		RoomEmail string `json:"roomEmail"`
	}{roomEmail}
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, "/api/calendar/events/"+pathID(eventID), nil, body)
	return err
}

func (c *Client) LoggedEvents(ctx context.Context, q LoggedQuery) ([]model.LoggedEventItem, error) {
	env, err := call[[]model.LoggedEventItem](ctx, c, http.MethodGet, "/api/events/search", q.Values(), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// LoggedEventUpdate carries only the fields being changed.
type LoggedEventUpdate struct {
	ResourceID  *string `json:"resourceId,omitempty"`
	PendingSync *bool   `json:"pendingSync,omitempty"`
	Cancelled   *bool   `json:"cancelled,omitempty"`
	Impersonate *bool   `json:"impersonate,omitempty"`
}

func (c *Client) UpdateLoggedEvent(ctx context.Context, eventID string, u LoggedEventUpdate) (model.LoggedEventItem, error) {
	env, err := call[model.LoggedEventItem](ctx, c, http.MethodPut, "/api/events/"+pathID(eventID), nil, u)
	if err != nil {
		return model.LoggedEventItem{}, err
	}
	return env.Data, nil
}

func (c *Client) CancelledTransactions(ctx context.Context, q CancellationQuery) ([]model.Transaction, error) {
	env, err := call[[]model.Transaction](ctx, c, http.MethodGet, "/api/cancelled-events", q.Values(), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) CancellationOwner(ctx context.Context, eventID string) (model.CancellationOwner, error) {
	env, err := call[model.CancellationOwner](ctx, c, http.MethodGet, "/api/cancelled-events/event-owner/"+pathID(eventID), nil, nil)
	if err != nil {
		return model.CancellationOwner{}, err
	}
	return env.Data, nil
}

// MissingSync returns the report rows and the backend's total count.
func (c *Client) MissingSync(ctx context.Context, q MissingSyncQuery) ([]model.LoggedEventItem, int, error) {
	env, err := call[[]model.LoggedEventItem](ctx, c, http.MethodGet, "/api/events/miss-sync", q.Values(), nil)
	if err != nil {
		return nil, 0, err
	}
	count := env.Count
	if count == 0 {
		count = len(env.Data)
	}
	return env.Data, count, nil
}

// MissingSyncUpdate edits a report row by hand.
type MissingSyncUpdate struct {
	GlobalSyncID   *string `json:"globalSyncId,omitempty"`
	ResourceSyncID *string `json:"resourceSyncId,omitempty"`
	SyncID         *string `json:"syncId,omitempty"`
	ResourceID     *string `json:"resourceId,omitempty"`
	PendingSync    *bool   `json:"pendingSync,omitempty"`
}

func (c *Client) UpdateMissingSync(ctx context.Context, eventID string, u MissingSyncUpdate) (model.LoggedEventItem, error) {
	env, err := call[model.LoggedEventItem](ctx, c, http.MethodPut, "/api/events/miss-sync/"+pathID(eventID), nil, u)
	if err != nil {
		return model.LoggedEventItem{}, err
	}
	return env.Data, nil
}

// RepairSync asks the backend to repopulate a record's missing identifiers.
// A failed request still returns the decoded body when it carries a repair
// response, so its error list can be shown.
func (c *Client) RepairSync(ctx context.Context, eventID string) (*syncmodel.RepairResponse, error) {
	b, err := c.send(ctx, http.MethodPost, "/api/events/miss-sync/sync/"+pathID(eventID), nil, nil)
	if _, isStatus := err.(*StatusError); err != nil && !isStatus {
		return nil, err
	}
	var resp syncmodel.RepairResponse
	if jsonErr := json.Unmarshal(b, &resp); jsonErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrap(jsonErr, "error parsing repair response")
	}
	return &resp, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	env, err := call[[]model.User](ctx, c, http.MethodGet, "/api/users/search", url.Values{"q": {query}}, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	body := struct {
		UserIDs []string `json:"userIds"`
	}{ids}
	env, err := call[[]model.User](ctx, c, http.MethodPost, "/api/users/by-ids", nil, body)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) ActivityLogs(ctx context.Context, q ActivityQuery) ([]model.ActivityLog, model.PageMeta, error) {
	env, err := call[[]model.ActivityLog](ctx, c, http.MethodGet, "/api/activity-logs", q.Values(), nil)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	var meta model.PageMeta
	if len(env.Pagination) > 0 {
		if err := json.Unmarshal(env.Pagination, &meta); err != nil {
			return nil, model.PageMeta{}, errors.Wrap(err, "error parsing pagination")
		}
	}
	return env.Data, meta, nil
}

// Me returns the identity behind the current credentials.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	env, err := call[model.User](ctx, c, http.MethodGet, "/api/auth/me", nil, nil)
	if err != nil {
		return model.User{}, err
	}
	return env.Data, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	return err
}
