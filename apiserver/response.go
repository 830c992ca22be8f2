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

package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"roomadmin/backend"
	"roomadmin/filter"
	"roomadmin/query"
	"roomadmin/reconcile"
	"roomadmin/screen"

	"github.com/eliona-smart-building-assistant/go-utils/log"
)

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// Errors carries the individual messages of a failed sync repair.
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(Response{Success: statusCode < 400, Data: data}); err != nil {
		log.Debug("apiserver", "writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := Response{Error: err.Error()}
	var failure *reconcile.SyncFailure
	if errors.As(err, &failure) {
		resp.Errors = failure.Errors
	}
	code := statusOf(err)
	if code >= 500 {
		log.Error("apiserver", "%v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Debug("apiserver", "writing response: %v", err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(Response{Error: msg})
}

func statusOf(err error) int {
	var verr *filter.ValidationError
	var terr *query.TransportError
	var failure *reconcile.SyncFailure
	var serr *backend.StatusError
	switch {
	case errors.Is(err, query.ErrEmptyQuery), errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, screen.ErrNotFound), errors.Is(err, reconcile.ErrUnknownRecord):
		return http.StatusNotFound
	case errors.Is(err, screen.ErrNoSync):
		return http.StatusMethodNotAllowed
	case errors.Is(err, query.ErrStaleResponse),
		errors.Is(err, reconcile.ErrRepairInFlight),
		errors.Is(err, reconcile.ErrAlreadySynced):
		return http.StatusConflict
	case errors.As(err, &failure), errors.As(err, &terr), errors.As(err, &serr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
