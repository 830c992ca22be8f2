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

package syncmodel

import (
	"strings"

	"roomadmin/model"

	"github.com/volatiletech/null/v8"
)

type State string

const (
	AllSynced        State = "allSynced"
	PartiallyMissing State = "partiallyMissing"
	Syncing          State = "syncing"
	SyncSucceeded    State = "syncSucceeded"
	SyncFailed       State = "syncFailed"
)

// IDs are the three markers a record needs to count as reconciled.
type IDs struct {
	GlobalSyncID   null.String `json:"globalSyncId"`
	ResourceSyncID null.String `json:"resourceSyncId"`
	SyncID         null.String `json:"syncId"`
}

func IDsOf(item model.LoggedEventItem) IDs {
	return IDs{
		GlobalSyncID:   item.GlobalSyncID,
		ResourceSyncID: item.ResourceSyncID,
		SyncID:         item.SyncID,
	}
}

// WithIDs returns a copy of item carrying ids.
func WithIDs(item model.LoggedEventItem, ids IDs) model.LoggedEventItem {
	item.GlobalSyncID = ids.GlobalSyncID
	item.ResourceSyncID = ids.ResourceSyncID
	item.SyncID = ids.SyncID
	return item
}

// Status is derived on every read, never stored.
type Status struct {
	GlobalOK   bool `json:"globalOk"`
	ResourceOK bool `json:"resourceOk"`
	SyncOK     bool `json:"syncOk"`
}

func (ids IDs) Status() Status {
	return Status{
		GlobalOK:   ids.GlobalSyncID.Valid,
		ResourceOK: ids.ResourceSyncID.Valid,
		SyncOK:     ids.SyncID.Valid,
	}
}

func (s Status) Complete() bool {
	return s.GlobalOK && s.ResourceOK && s.SyncOK
}

// Missing names the identifier fields that are still absent.
func (s Status) Missing() []string {
	var missing []string
	if !s.GlobalOK {
		missing = append(missing, "globalSyncId")
	}
	if !s.ResourceOK {
		missing = append(missing, "resourceSyncId")
	}
	if !s.SyncOK {
		missing = append(missing, "syncId")
	}
	return missing
}

func DeriveState(ids IDs) State {
	if ids.Status().Complete() {
		return AllSynced
	}
	return PartiallyMissing
}

// Updated holds the identifiers a repair produced. Fields that are absent or
// null leave the record's current value in place.
type Updated struct {
	GlobalSyncID   null.String `json:"globalSyncId"`
	ResourceSyncID null.String `json:"resourceSyncId"`
	SyncID         null.String `json:"syncId"`
}

func (u Updated) Apply(ids IDs) IDs {
	if u.GlobalSyncID.Valid {
		ids.GlobalSyncID = u.GlobalSyncID
	}
	if u.ResourceSyncID.Valid {
		ids.ResourceSyncID = u.ResourceSyncID
	}
	if u.SyncID.Valid {
		ids.SyncID = u.SyncID
	}
	return ids
}

// RepairResponse is the backend's answer to a sync repair request.
type RepairResponse struct {
	Success bool     `json:"success"`
	Updated *Updated `json:"updated,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Outcome is either Succeeded or Failed.
type Outcome interface {
	outcome()
}

type Succeeded struct {
	Updated Updated
}

type Failed struct {
	Errors []string
}

func (Succeeded) outcome() {}
func (Failed) outcome()    {}

// OutcomeOf folds a repair response and its transport error into an outcome.
func OutcomeOf(resp *RepairResponse, err error) Outcome {
	if err != nil {
		if resp != nil && (len(resp.Errors) > 0 || resp.Message != "") {
			return Failed{Errors: failureMessages(resp)}
		}
		return Failed{Errors: []string{err.Error()}}
	}
	if resp == nil {
		return Failed{Errors: []string{"empty repair response"}}
	}
	if !resp.Success {
		return Failed{Errors: failureMessages(resp)}
	}
	var u Updated
	if resp.Updated != nil {
		u = *resp.Updated
	}
	return Succeeded{Updated: u}
}

// Merge applies an outcome to ids. A failure returns ids unchanged.
func Merge(ids IDs, o Outcome) IDs {
	if s, ok := o.(Succeeded); ok {
		return s.Updated.Apply(ids)
	}
	return ids
}

func failureMessages(resp *RepairResponse) []string {
	var msgs []string
	for _, e := range resp.Errors {
		if strings.TrimSpace(e) != "" {
			msgs = append(msgs, e)
		}
	}
	if len(msgs) == 0 && resp.Message != "" {
		msgs = append(msgs, resp.Message)
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "sync failed")
	}
	return msgs
}
