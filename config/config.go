/*
config.go - Runtime configuration

PURPOSE:
  Collects server settings from the environment, optionally seeded from a
  .env file in the working directory. Command-line flags in cmd/server
  override whatever is loaded here.

ENVIRONMENT:
  PORT                   HTTP port (default: 8080)
  DB_PATH                SQLite path, ":memory:" allowed (default: attendance.db)
  LOG_LEVEL              debug | info | warn | error (default: info)
  LOG_JSON               true for JSON logs (default: false)
  TIMEZONE               IANA zone for work dates (default: Asia/Seoul)
  HOLIDAYS_FILE          YAML/JSON calendar file; built-in list when empty
  CRON_MISSING_CHECKOUT  six-field cron spec (default: "1 0 0 * * *")
  CRON_ABSENTEEISM       six-field cron spec (default: "0 1 18 * * MON-FRI")
  SCHEDULER_ENABLED      false disables closeout jobs (default: true)
  BATCH_WORKERS          employees reconciled in parallel (default: 4)
  LATE_CUTOFF            HH:MM, overrides the holiday file (default: 09:00)
  DEPARTURE_CUTOFF       HH:MM, overrides the holiday file (default: 18:00)
  BREAK_MINUTES          unpaid break per day, overrides the holiday file (default: 60)
  CORS_ORIGINS           comma separated (default: *)

SEE ALSO:
  - cmd/server/main.go: flag overrides
  - factory/calendar.go: holiday file format
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/log"
)

const (
	DefaultPort                = 8080
	DefaultDBPath              = "attendance.db"
	DefaultTimezone            = "Asia/Seoul"
	DefaultCronMissingCheckout = "1 0 0 * * *"
	DefaultCronAbsenteeism     = "0 1 18 * * MON-FRI"
)

type Config struct {
	Port     int
	DBPath   string
	LogLevel log.Level
	LogJSON  bool
	Timezone string

	HolidaysFile string

	CronMissingCheckout string
	CronAbsenteeism     string
	SchedulerEnabled    bool

	BatchWorkers int

	// Empty or nil means "keep the value from the holiday file or default".
	LateCutoff      string
	DepartureCutoff string
	BreakMinutes    *int

	CORSOrigins []string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:                DefaultPort,
		DBPath:              DefaultDBPath,
		LogLevel:            log.InfoLevel,
		Timezone:            DefaultTimezone,
		CronMissingCheckout: DefaultCronMissingCheckout,
		CronAbsenteeism:     DefaultCronAbsenteeism,
		SchedulerEnabled:    true,
		BatchWorkers:        attendance.DefaultWorkers,
		CORSOrigins:         []string{"*"},
	}
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Variables already set in the environment win over .env.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, starting from Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var err error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		n, perr := strconv.Atoi(v)
		if perr != nil {
			err = fmt.Errorf("%s: %w", key, perr)
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = fmt.Errorf("%s: %w", key, perr)
			return
		}
		*dst = b
	}

	num("PORT", &cfg.Port)
	str("DB_PATH", &cfg.DBPath)
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = log.ParseLevel(strings.ToLower(v))
	}
	flag("LOG_JSON", &cfg.LogJSON)
	str("TIMEZONE", &cfg.Timezone)
	str("HOLIDAYS_FILE", &cfg.HolidaysFile)
	str("CRON_MISSING_CHECKOUT", &cfg.CronMissingCheckout)
	str("CRON_ABSENTEEISM", &cfg.CronAbsenteeism)
	flag("SCHEDULER_ENABLED", &cfg.SchedulerEnabled)
	num("BATCH_WORKERS", &cfg.BatchWorkers)
	str("LATE_CUTOFF", &cfg.LateCutoff)
	str("DEPARTURE_CUTOFF", &cfg.DepartureCutoff)
	if v, ok := lookup("BREAK_MINUTES"); ok && v != "" {
		n := -1
		num("BREAK_MINUTES", &n)
		cfg.BreakMinutes = &n
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and formats.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", generic.ErrInvalidInput, c.Port)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("%w: batch workers must be at least 1", generic.ErrInvalidInput)
	}
	if c.BreakMinutes != nil && *c.BreakMinutes < 0 {
		return fmt.Errorf("%w: break minutes must not be negative", generic.ErrInvalidInput)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	_, err := c.Rules(attendance.DefaultRules())
	return err
}

// Location loads the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", generic.ErrInvalidInput, c.Timezone, err)
	}
	return loc, nil
}

// Rules overlays the configured cutoffs and break on base, which usually
// comes from the holiday file.
func (c Config) Rules(base attendance.Rules) (attendance.Rules, error) {
	r := base
	if c.LateCutoff != "" {
		t, err := attendance.ParseTimeOfDay(c.LateCutoff)
		if err != nil {
			return r, err
		}
		r.LateCutoff = t
	}
	if c.DepartureCutoff != "" {
		t, err := attendance.ParseTimeOfDay(c.DepartureCutoff)
		if err != nil {
			return r, err
		}
		r.DepartureCutoff = t
	}
	if c.BreakMinutes != nil {
		r.BreakMinutes = *c.BreakMinutes
	}
	return r, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
