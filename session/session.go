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

// Package session owns the console's credentials and the identity behind
// them. A session is created explicitly, initialised once and torn down on
// logout; nothing reads it through package state.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"roomadmin/backend"
	"roomadmin/model"

	"github.com/Azure/go-ntlmssp"
	"github.com/eliona-smart-building-assistant/go-utils/log"
	"golang.org/x/oauth2/clientcredentials"
)

type Mode string

const (
	ModeCookie Mode = "cookie"
	ModeOAuth2 Mode = "oauth2"
	ModeNTLM   Mode = "ntlm"
)

type Credentials struct {
	Mode Mode

	// oauth2 client credentials
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	// ntlm
	Username string
	Password string
}

type Session struct {
	creds   Credentials
	timeout time.Duration

	mu     sync.RWMutex
	client *http.Client
	api    *backend.Client
	user   *model.User
}

func New(baseURL string, creds Credentials, timeout time.Duration) (*Session, error) {
	s := &Session{creds: creds, timeout: timeout}
	client, err := s.newHTTPClient()
	if err != nil {
		return nil, err
	}
	s.client = client
	s.api = backend.NewClient(baseURL, client)
	return s, nil
}

func (s *Session) newHTTPClient() (*http.Client, error) {
	switch s.creds.Mode {
	case ModeCookie, "":
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %v", err)
		}
		return &http.Client{Jar: jar, Timeout: s.timeout}, nil
	case ModeOAuth2:
		oauth2Config := clientcredentials.Config{
			ClientID:     s.creds.ClientID,
			ClientSecret: s.creds.ClientSecret,
			TokenURL:     s.creds.TokenURL,
			Scopes:       s.creds.Scopes,
		}
		httpClient := oauth2Config.Client(context.Background())
		httpClient.Timeout = s.timeout
		return httpClient, nil
	case ModeNTLM:
		return &http.Client{
			Timeout: s.timeout,
			Transport: basicAuthTransport{
				username: s.creds.Username,
				password: s.creds.Password,
				next:     ntlmssp.Negotiator{RoundTripper: http.DefaultTransport},
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", s.creds.Mode)
}

// basicAuthTransport hands the credentials to the NTLM negotiator, which
// turns them into the NTLM handshake.
type basicAuthTransport struct {
	username string
	password string
	next     http.RoundTripper
}

func (t basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.password)
	return t.next.RoundTrip(r)
}

// Init loads the identity behind the credentials.
func (s *Session) Init(ctx context.Context) error {
	user, err := s.API().Me(ctx)
	if err != nil {
		return fmt.Errorf("loading current user: %v", err)
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	log.Info("session", "Signed in as %s (%s).", user.Email, user.Role)
	return nil
}

// Teardown logs out and forgets the identity. The session can be initialised
// again afterwards.
func (s *Session) Teardown(ctx context.Context) error {
	err := s.API().Logout(ctx)
	s.mu.Lock()
	s.user = nil
	if s.client.Jar != nil {
		if jar, jerr := cookiejar.New(nil); jerr == nil {
			s.client.Jar = jar
		}
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("logging out: %v", err)
	}
	return nil
}

// User returns the signed-in identity, or nil before Init and after Teardown.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Active() bool {
	return s.User() != nil
}

func (s *Session) API() *backend.Client {
	return s.api
}

func (s *Session) HTTPClient() *http.Client {
	return s.client
}
