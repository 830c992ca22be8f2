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

// Package backend is the REST client of the booking backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/eliona-smart-building-assistant/go-utils/log"
	"github.com/friendsofgo/errors"
)

// StatusError is returned for every response with a status of 300 or above.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %v", e.Code, e.Body)
}

// EnvelopeError is returned when the backend answers success:false.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return "backend reported failure"
	}
	return "backend reported failure: " + e.Message
}

type envelope[T any] struct {
	Success    bool            `json:"success"`
	Data       T               `json:"data"`
	Count      int             `json:"count"`
	Message    string          `json:"message"`
	Pagination json.RawMessage `json:"pagination,omitempty"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshalling request body")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send performs the request and returns the body of a successful response.
// For failed responses the body is returned along with a *StatusError.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	log.Debug("backend", "%s %s", method, req.URL.String())
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error %v returned: failed to read response body: %v", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		return bodyBytes, &StatusError{Code: resp.StatusCode, Body: string(bodyBytes)}
	}
	return bodyBytes, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (envelope[T], error) {
	var env envelope[T]
	b, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return env, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return env, &EnvelopeError{Message: "empty response"}
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return env, errors.Wrap(err, "error parsing response body")
	}
	if !env.Success {
		return env, &EnvelopeError{Message: env.Message}
	}
	return env, nil
}

func pathID(id string) string {
	return url.PathEscape(id)
}
