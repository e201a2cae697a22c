package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/warner-apps/service-timeclock/database"
)

// appConfig is everything the process needs: board tuning from config.json,
// database settings from TIMECLOCK_* environment variables (overridable from
// the file for local runs).
type appConfig struct {
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	TZOffsetHours   int
	DefaultBranch   string
	SnapshotPath    string
	Branches        map[string]string
	Database        database.Config
}

func loadConfig() (appConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("refresh_interval_seconds", 60)
	v.SetDefault("fetch_timeout_seconds", 15)
	// fixed local-time approximation for the shop's timezone; not DST-aware
	v.SetDefault("timezone_offset_hours", 6)
	v.SetDefault("default_branch", "100")
	v.SetDefault("snapshot_path", "board.db")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.punch_view", "timeclock.shop_time_punches_today")
	v.SetDefault("db.roster_view", "timeclock.active_employees")
	v.SetDefault("db.job_title", "Technician")
	v.SetDefault("db.emp_id_min", 1)
	v.SetDefault("db.emp_id_max", 9999)

	v.SetEnvPrefix("TIMECLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"db.host", "db.port", "db.user", "db.password", "db.name"} {
		if err := v.BindEnv(key); err != nil {
			return appConfig{}, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// the file is optional as long as the environment covers the database
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return appConfig{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := appConfig{
		RefreshInterval: time.Duration(v.GetInt("refresh_interval_seconds")) * time.Second,
		FetchTimeout:    time.Duration(v.GetInt("fetch_timeout_seconds")) * time.Second,
		TZOffsetHours:   v.GetInt("timezone_offset_hours"),
		DefaultBranch:   v.GetString("default_branch"),
		SnapshotPath:    v.GetString("snapshot_path"),
		Branches:        v.GetStringMapString("branches"),
		Database: database.Config{
			Host:       v.GetString("db.host"),
			Port:       v.GetInt("db.port"),
			User:       v.GetString("db.user"),
			Password:   v.GetString("db.password"),
			Name:       v.GetString("db.name"),
			PunchView:  v.GetString("db.punch_view"),
			RosterView: v.GetString("db.roster_view"),
			JobTitle:   v.GetString("db.job_title"),
			EmpIDMin:   v.GetInt64("db.emp_id_min"),
			EmpIDMax:   v.GetInt64("db.emp_id_max"),
		},
	}

	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Password == "" || cfg.Database.Name == "" {
		return cfg, fmt.Errorf("database settings incomplete: TIMECLOCK_DB_HOST, TIMECLOCK_DB_USER, TIMECLOCK_DB_PASSWORD, TIMECLOCK_DB_NAME must be set")
	}
	return cfg, nil
}
