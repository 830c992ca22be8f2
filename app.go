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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roomadmin/apiserver"
	"roomadmin/conf"
	"roomadmin/filter"
	"roomadmin/notify"
	"roomadmin/query"
	"roomadmin/screen"
	"roomadmin/session"

	"github.com/eliona-smart-building-assistant/go-eliona/frontend"
	"github.com/eliona-smart-building-assistant/go-utils/common"
	utilshttp "github.com/eliona-smart-building-assistant/go-utils/http"
	"github.com/eliona-smart-building-assistant/go-utils/log"
	"github.com/robfig/cron/v3"
	"github.com/volatiletech/null/v8"
)

type console struct {
	cfg      *conf.Config
	session  *session.Session
	hub      *notify.Hub
	screens  map[string]*screen.Screen
	activity *screen.ActivityScreen
}

func credentials(cfg *conf.Config) session.Credentials {
	return session.Credentials{
		Mode:         session.Mode(cfg.Auth.Mode),
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		TokenURL:     cfg.Auth.TokenURL,
		Scopes:       cfg.Auth.Scopes,
		Username:     cfg.Auth.Username,
		Password:     cfg.Auth.Password,
	}
}

func newConsole(ctx context.Context, cfg *conf.Config) (*console, error) {
	sess, err := session.New(cfg.BackendURL, credentials(cfg), cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("creating session: %v", err)
	}
	if err := sess.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialising session: %v", err)
	}

	hub := notify.NewHub(nil, notify.TTLs{
		Success: cfg.Notifications.SuccessTTL,
		Error:   cfg.Notifications.FailureTTL,
		Info:    cfg.Notifications.InfoTTL,
	})
	api := sess.API()
	opts := func(policy string) screen.Options {
		return screen.Options{
			Location:     cfg.Location(),
			PageSize:     cfg.PageSize,
			Debounce:     cfg.Debounce,
			Timeout:      cfg.RequestTimeout,
			Policy:       query.Policy(policy),
			DefaultRoom:  cfg.DefaultRoom,
			MinUserQuery: cfg.MinUserQuery,
			Publisher:    hub,
			SuccessTTL:   cfg.Notifications.SuccessTTL,
			FailureTTL:   cfg.Notifications.FailureTTL,
		}
	}
	return &console{
		cfg:     cfg,
		session: sess,
		hub:     hub,
		screens: map[string]*screen.Screen{
			"calendar":    screen.NewCalendar(api, opts(cfg.EmptyQuery.Calendar)),
			"userEvents":  screen.NewUserEvents(api, opts(cfg.EmptyQuery.UserEvents)),
			"cancelled":   screen.NewCancelled(api, opts(cfg.EmptyQuery.Cancelled)),
			"missingSync": screen.NewMissingSync(api, opts(cfg.EmptyQuery.MissingSync)),
		},
		activity: screen.NewActivity(api, cfg.ActivityLimit),
	}, nil
}

func (c *console) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()
	if err := c.session.Teardown(ctx); err != nil {
		log.Error("session", "tearing down session: %v", err)
	}
}

// scheduleReconcile starts the periodic repair of incomplete sync records.
// The returned function stops the schedule.
func (c *console) scheduleReconcile() (func(), error) {
	if c.cfg.Reconcile.Schedule == "" {
		log.Info("main", "Scheduled reconcile disabled.")
		return func() {}, nil
	}
	scheduler := cron.New()
	_, err := scheduler.AddFunc(c.cfg.Reconcile.Schedule, func() {
		common.RunOnceWithParam(func(days int) {
			log.Info("main", "Reconcile of the last %d days started.", days)
			if err := c.reconcile(context.Background(), days); err != nil {
				return // Error is handled in the method itself.
			}
			log.Info("main", "Reconcile finished.")
		}, c.cfg.Reconcile.Days, "missing_sync_reconcile")
	})
	if err != nil {
		return nil, fmt.Errorf("parsing reconcile schedule %q: %v", c.cfg.Reconcile.Schedule, err)
	}
	scheduler.Start()
	return func() { <-scheduler.Stop().Done() }, nil
}

// reconcile loads the missing-sync report of the last days into a screen of
// its own and repairs every incomplete record.
func (c *console) reconcile(ctx context.Context, days int) error {
	sc := screen.NewMissingSync(c.session.API(), screen.Options{
		Location:   c.cfg.Location(),
		Timeout:    c.cfg.RequestTimeout,
		Policy:     query.PolicyAllow,
		SuccessTTL: c.cfg.Notifications.SuccessTTL,
		FailureTTL: c.cfg.Notifications.FailureTTL,
	})
	now := time.Now()
	sc.Filter.SetDateRange(filter.DateRange{
		Start: null.TimeFrom(now.AddDate(0, 0, -days)),
		End:   null.TimeFrom(now),
	})
	if _, err := sc.Search(ctx); err != nil {
		log.Error("main", "loading missing-sync report: %v", err)
		return err
	}
	results, err := sc.RepairAll(ctx, c.cfg.Reconcile.Concurrency)
	if err != nil {
		log.Error("main", "repairing records: %v", err)
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info("main", "Repaired %d of %d records.", len(results)-failed, len(results))
	return nil
}

// listenApi starts the API server and serves until ctx is done.
func (c *console) listenApi(ctx context.Context) error {
	server := &http.Server{
		Addr: ":" + c.cfg.APIServerPort,
		Handler: frontend.NewEnvironmentHandler(
			utilshttp.NewCORSEnabledHandler(
				apiserver.NewRouter(&apiserver.Server{
					Screens:           c.screens,
					Activity:          c.activity,
					Hub:               c.hub,
					Session:           c.session,
					RepairConcurrency: c.cfg.Reconcile.Concurrency,
				}))),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("main", "shutting down API server: %v", err)
		}
	}()
	log.Info("main", "API server listening on port %s.", c.cfg.APIServerPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server: %v", err)
	}
	return nil
}
