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
	"os"
	"os/signal"
	"syscall"

	"roomadmin/conf"

	"github.com/eliona-smart-building-assistant/go-utils/common"
	"github.com/eliona-smart-building-assistant/go-utils/log"
)

func main() {
	log.Info("main", "Starting the app.")

	cfg, err := conf.Load(common.Getenv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal("conf", "Couldn't load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newConsole(ctx, cfg)
	if err != nil {
		log.Fatal("main", "Couldn't start console: %v", err)
	}
	defer app.teardown()

	stopSchedule, err := app.scheduleReconcile()
	if err != nil {
		log.Fatal("main", "%v", err)
	}
	defer stopSchedule()

	if err := app.listenApi(ctx); err != nil {
		log.Error("main", "%v", err)
	}
	log.Info("main", "Terminate the app.")
}
