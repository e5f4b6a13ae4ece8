package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/psybot.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	TrialDays int     `envconfig:"TRIAL_DURATION_DAYS" default:"14"`
	AdminIDs  []int64 `envconfig:"ADMIN_IDS"` // comma-separated Telegram IDs

	// Scheduler knobs. Weekly day is time.Weekday numbering (0 = Sunday).
	SlotsPath      string        `envconfig:"SLOTS_PATH"` // optional YAML slot table override
	WeeklyDay      int           `envconfig:"WEEKLY_DAY" default:"0"`
	WeeklyTime     string        `envconfig:"WEEKLY_TIME" default:"10:00"`
	ReflectionTime string        `envconfig:"REFLECTION_TIME" default:"17:00"`
	ActivityGrace  time.Duration `envconfig:"ACTIVITY_GRACE" default:"15m"`
	SendTimeout    time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	SendPerSecond  float64       `envconfig:"SEND_PER_SECOND" default:"2"`

	// Dedup ledger backend: sqlite (default, survives restarts), memory, or
	// redis for multi-process deployments.
	LedgerBackend string `envconfig:"LEDGER_BACKEND" default:"sqlite"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// AI advice collaborator; empty key disables it.
	OpenAIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
