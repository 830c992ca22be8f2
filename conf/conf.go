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

package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eliona-smart-building-assistant/go-utils/common"
	"github.com/eliona-smart-building-assistant/go-utils/log"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	Mode         string   `yaml:"mode" validate:"oneof=cookie oauth2 ntlm"`
	ClientID     string   `yaml:"client_id" validate:"required_if=Mode oauth2"`
	ClientSecret string   `yaml:"client_secret" validate:"required_if=Mode oauth2"`
	TokenURL     string   `yaml:"token_url" validate:"required_if=Mode oauth2,omitempty,url"`
	Scopes       []string `yaml:"scopes"`
	Username     string   `yaml:"username" validate:"required_if=Mode ntlm"`
	Password     string   `yaml:"password"`
}

// EmptyQueryConfig sets per screen what a search without filters does:
// "block" refuses it, "allow" sends it.
type EmptyQueryConfig struct {
	Calendar    string `yaml:"calendar" validate:"oneof=block allow"`
	UserEvents  string `yaml:"user_events" validate:"oneof=block allow"`
	Cancelled   string `yaml:"cancelled" validate:"oneof=block allow"`
	MissingSync string `yaml:"missing_sync" validate:"oneof=block allow"`
}

type NotificationConfig struct {
	SuccessTTL time.Duration `yaml:"success_ttl" validate:"gt=0"`
	FailureTTL time.Duration `yaml:"failure_ttl" validate:"gt=0"`
	InfoTTL    time.Duration `yaml:"info_ttl" validate:"gt=0"`
}

type ReconcileConfig struct {
	// Schedule is a cron expression. Empty disables scheduled repairs.
	Schedule    string `yaml:"schedule"`
	Concurrency int    `yaml:"concurrency" validate:"gte=1"`
	// Days is how far back the scheduled run looks for incomplete records.
	Days int `yaml:"days" validate:"gte=1"`
}

type Config struct {
	BackendURL     string             `yaml:"backend_url" validate:"required,url"`
	Auth           AuthConfig         `yaml:"auth"`
	RequestTimeout time.Duration      `yaml:"request_timeout" validate:"gte=0"`
	PageSize       int                `yaml:"page_size" validate:"oneof=10 20 50 100"`
	ActivityLimit  int                `yaml:"activity_limit" validate:"gte=1"`
	Debounce       time.Duration      `yaml:"debounce" validate:"gt=0"`
	MinUserQuery   int                `yaml:"min_user_query" validate:"gte=1"`
	Timezone       string             `yaml:"timezone"`
	DefaultRoom    string             `yaml:"default_room" validate:"omitempty,email"`
	EmptyQuery     EmptyQueryConfig   `yaml:"empty_query"`
	Notifications  NotificationConfig `yaml:"notifications"`
	Reconcile      ReconcileConfig    `yaml:"reconcile"`
	APIServerPort  string             `yaml:"api_server_port" validate:"required,numeric"`
}

func DefaultConfig() *Config {
	return &Config{
		Auth:           AuthConfig{Mode: "cookie"},
		RequestTimeout: 30 * time.Second,
		PageSize:       10,
		ActivityLimit:  20,
		Debounce:       500 * time.Millisecond,
		MinUserQuery:   3,
		Timezone:       "UTC",
		EmptyQuery: EmptyQueryConfig{
			Calendar:    "allow",
			UserEvents:  "block",
			Cancelled:   "allow",
			MissingSync: "allow",
		},
		Notifications: NotificationConfig{
			SuccessTTL: 8 * time.Second,
			FailureTTL: 10 * time.Second,
			InfoTTL:    3 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Concurrency: 4,
			Days:        30,
		},
		APIServerPort: "3000",
	}
}

// Normalize fills zero values with their defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	c.Auth.Mode = strings.ToLower(strings.TrimSpace(c.Auth.Mode))
	if c.Auth.Mode == "" {
		c.Auth.Mode = d.Auth.Mode
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if c.ActivityLimit == 0 {
		c.ActivityLimit = d.ActivityLimit
	}
	if c.Debounce == 0 {
		c.Debounce = d.Debounce
	}
	if c.MinUserQuery == 0 {
		c.MinUserQuery = d.MinUserQuery
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	orDefault(&c.EmptyQuery.Calendar, d.EmptyQuery.Calendar)
	orDefault(&c.EmptyQuery.UserEvents, d.EmptyQuery.UserEvents)
	orDefault(&c.EmptyQuery.Cancelled, d.EmptyQuery.Cancelled)
	orDefault(&c.EmptyQuery.MissingSync, d.EmptyQuery.MissingSync)
	if c.Notifications.SuccessTTL == 0 {
		c.Notifications.SuccessTTL = d.Notifications.SuccessTTL
	}
	if c.Notifications.FailureTTL == 0 {
		c.Notifications.FailureTTL = d.Notifications.FailureTTL
	}
	if c.Notifications.InfoTTL == 0 {
		c.Notifications.InfoTTL = d.Notifications.InfoTTL
	}
	if c.Reconcile.Concurrency == 0 {
		c.Reconcile.Concurrency = d.Reconcile.Concurrency
	}
	if c.Reconcile.Days == 0 {
		c.Reconcile.Days = d.Reconcile.Days
	}
	if c.APIServerPort == "" {
		c.APIServerPort = d.APIServerPort
	}
}

func orDefault(v *string, def string) {
	*v = strings.ToLower(strings.TrimSpace(*v))
	if *v == "" {
		*v = def
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: timezone %q: %v", c.Timezone, err)
	}
	return nil
}

// Location is the zone in which day boundaries of date filters are taken.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads the YAML file at path (if any), applies a .env file and
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("conf", "loading .env: %v", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Info("conf", "No config file at %s, using environment only.", path)
		case err != nil:
			return nil, fmt.Errorf("reading config file: %v", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %v", err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.BackendURL = common.Getenv("BACKEND_URL", c.BackendURL)
	c.Auth.Mode = common.Getenv("AUTH_MODE", c.Auth.Mode)
	c.Auth.ClientID = common.Getenv("AUTH_CLIENT_ID", c.Auth.ClientID)
	c.Auth.ClientSecret = common.Getenv("AUTH_CLIENT_SECRET", c.Auth.ClientSecret)
	c.Auth.TokenURL = common.Getenv("AUTH_TOKEN_URL", c.Auth.TokenURL)
	c.Auth.Username = common.Getenv("AUTH_USERNAME", c.Auth.Username)
	c.Auth.Password = common.Getenv("AUTH_PASSWORD", c.Auth.Password)
	if scopes := common.Getenv("AUTH_SCOPES", ""); scopes != "" {
		c.Auth.Scopes = strings.Split(scopes, ",")
	}
	c.Timezone = common.Getenv("TIMEZONE", c.Timezone)
	c.DefaultRoom = common.Getenv("DEFAULT_ROOM", c.DefaultRoom)
	c.Reconcile.Schedule = common.Getenv("RECONCILE_SCHEDULE", c.Reconcile.Schedule)
	c.APIServerPort = common.Getenv("API_SERVER_PORT", c.APIServerPort)

	if v := common.Getenv("REQUEST_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT: %v", err)
		}
		c.RequestTimeout = d
	}
	if v := common.Getenv("PAGE_SIZE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PAGE_SIZE: %v", err)
		}
		c.PageSize = n
	}
	return nil
}
