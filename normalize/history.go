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

package normalize

import (
	"sort"

	"roomadmin/model"

	"github.com/volatiletech/null/v8"
)

// SortHistory returns a copy of txs ordered newest first. Entries with equal
// times keep their recorded order; entries without a time go last.
func SortHistory(txs []model.Transaction) []model.Transaction {
	out := append([]model.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Time.Time(), out[j].Time.Time()
		if !a.Valid || !b.Valid {
			return a.Valid && !b.Valid
		}
		return a.Time.After(b.Time)
	})
	return out
}

// LastUpdate is the newest transaction time, or the record's update time when
// it has no dated transactions.
func LastUpdate(item model.LoggedEventItem) null.Time {
	var newest null.Time
	for _, tx := range item.Transactions {
		t := tx.Time.Time()
		if t.Valid && (!newest.Valid || t.Time.After(newest.Time)) {
			newest = t
		}
	}
	if newest.Valid {
		return newest
	}
	return item.UpdateTime.Time()
}

// Participants lists the owner followed by the attendees, without blanks or
// duplicates.
func Participants(item model.LoggedEventItem) []string {
	seen := make(map[string]struct{}, len(item.Attendees)+1)
	var ids []string
	for _, id := range append([]string{item.Owner}, item.Attendees...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
