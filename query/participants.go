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

	"roomadmin/model"
	"roomadmin/normalize"
)

type UserLookup interface {
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// ResolveParticipants looks up the owner and attendees of item in one batch
// and returns them keyed by id. Ids the backend does not know are absent.
func ResolveParticipants(ctx context.Context, lookup UserLookup, item model.LoggedEventItem) (map[string]model.User, error) {
	ids := normalize.Participants(item)
	users := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	found, err := lookup.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, transportError("resolve participants", err)
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}
