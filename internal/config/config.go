package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/bulatfbi/coffee-bot/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/coffee.db"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`   // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`  // json|console
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`  // probes and rotation snapshot

	ScheduleTZ      string `envconfig:"SCHEDULE_TZ" default:"UTC"`
	MorningAt       string `envconfig:"MORNING_AT" default:"14:00"`
	EveningAt       string `envconfig:"EVENING_AT" default:"21:00"`
	ScheduleDays    string `envconfig:"SCHEDULE_DAYS" default:"mon,tue,wed,thu,fri"`
	RotationDefault bool   `envconfig:"ROTATION_DEFAULT" default:"true"` // used only until the flag is first persisted
}

// Schedule is the parsed form of the schedule settings.
type Schedule struct {
	Location *time.Location
	Morning  domain.Clock
	Evening  domain.Clock
	Days     domain.WeekdaySet
}

// Load reads environment variables into Config. In dev mode (ENV=dev) or
// when DOTENV_PATH is set, a .env file is loaded first.
func Load() (Config, error) {
	var cfg Config
	if err := loadDotenv(); err != nil {
		return cfg, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if _, err := cfg.Schedule(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadDotenv() error {
	if path := os.Getenv("DOTENV_PATH"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		return nil
	}
	if os.Getenv("ENV") == "dev" {
		// Missing .env in dev is fine.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

// RequireBotToken reports an error when BOT_TOKEN is empty.
func (c Config) RequireBotToken() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	return nil
}

// Schedule parses and validates the schedule settings.
func (c Config) Schedule() (Schedule, error) {
	loc, err := domain.ValidateTZ(c.ScheduleTZ)
	if err != nil {
		return Schedule{}, fmt.Errorf("SCHEDULE_TZ: %w", err)
	}
	morning, err := domain.ParseClock(c.MorningAt)
	if err != nil {
		return Schedule{}, fmt.Errorf("MORNING_AT: %w", err)
	}
	evening, err := domain.ParseClock(c.EveningAt)
	if err != nil {
		return Schedule{}, fmt.Errorf("EVENING_AT: %w", err)
	}
	days, err := domain.ParseWeekdays(c.ScheduleDays)
	if err != nil {
		return Schedule{}, fmt.Errorf("SCHEDULE_DAYS: %w", err)
	}
	return Schedule{Location: loc, Morning: morning, Evening: evening, Days: days}, nil
}
