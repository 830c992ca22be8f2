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

package screen

import (
	"context"
	"fmt"
	"sync"

	"roomadmin/backend"
	"roomadmin/model"
	"roomadmin/paging"
)

// DefaultActivityLimit is the page size of the activity log.
const DefaultActivityLimit = 20

type ActivityAPI interface {
	ActivityLogs(ctx context.Context, q backend.ActivityQuery) ([]model.ActivityLog, model.PageMeta, error)
}

type ActivityPage struct {
	Logs   []model.ActivityLog `json:"logs"`
	Meta   model.PageMeta      `json:"pagination"`
	Tokens []paging.Token      `json:"pages"`
}

// ActivityScreen pages the activity log on the server.
type ActivityScreen struct {
	api ActivityAPI

	mu     sync.Mutex
	filter backend.ActivityQuery
	page   ActivityPage
}

func NewActivity(api ActivityAPI, limit int) *ActivityScreen {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return &ActivityScreen{api: api, filter: backend.ActivityQuery{Page: 1, Limit: limit}}
}

// Filter replaces the filters and loads q.Page, the first page when unset.
func (a *ActivityScreen) Filter(ctx context.Context, q backend.ActivityQuery) (ActivityPage, error) {
	a.mu.Lock()
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = a.filter.Limit
	}
	a.filter = q
	a.mu.Unlock()
	return a.load(ctx, q)
}

func (a *ActivityScreen) GoToPage(ctx context.Context, page int) (ActivityPage, error) {
	a.mu.Lock()
	q := a.filter
	if pages := a.page.Meta.Pages; pages > 0 && page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	q.Page = page
	a.mu.Unlock()
	return a.load(ctx, q)
}

func (a *ActivityScreen) Current() ActivityPage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page
}

func (a *ActivityScreen) load(ctx context.Context, q backend.ActivityQuery) (ActivityPage, error) {
	logs, meta, err := a.api.ActivityLogs(ctx, q)
	if err != nil {
		return ActivityPage{}, fmt.Errorf("loading activity logs: %w", err)
	}
	if meta.Page == 0 {
		meta.Page = q.Page
	}
	if meta.Limit == 0 {
		meta.Limit = q.Limit
	}
	if meta.Pages == 0 {
		meta.Pages = paging.TotalPages(meta.Total, meta.Limit)
	}
	page := ActivityPage{Logs: logs, Meta: meta, Tokens: paging.PageNumbers(meta.Page, meta.Pages)}
	a.mu.Lock()
	a.filter.Page = meta.Page
	a.page = page
	a.mu.Unlock()
	return page, nil
}
