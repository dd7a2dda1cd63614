package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3978"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// APIKey guards the admin endpoints (manual trigger, status). Empty
	// disables the check; the Bot Framework endpoint is always open.
	APIKey string `envconfig:"API_KEY"`
}

type AuthEnv struct {
	TenantID     string `envconfig:"TENANT_ID"`
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	TokenScope   string `envconfig:"TOKEN_SCOPE" default:"https://graph.microsoft.com/.default"`
	// BotTokenScope is used for the Bot Framework connector, which does not
	// accept Graph-scoped tokens.
	BotTokenScope string `envconfig:"BOT_TOKEN_SCOPE" default:"https://api.botframework.com/.default"`
	Authority     string `envconfig:"AUTHORITY" default:"https://login.microsoftonline.com"`
}

type SourceEnv struct {
	// Type selects the task-source variant: "progressmaker" (three-step
	// context/profiles/items workflow) or "simple" (single list endpoint).
	Type          string        `envconfig:"SOURCE_TYPE" default:"progressmaker"`
	BaseURL       string        `envconfig:"SOURCE_BASE_URL" default:"https://api.test.progressmaker.io"`
	Timeout       time.Duration `envconfig:"SOURCE_TIMEOUT" default:"30s"`
	LookaheadDays int           `envconfig:"SOURCE_LOOKAHEAD_DAYS" default:"2"`
}

type ScheduleEnv struct {
	Hour     int    `envconfig:"SCHEDULE_HOUR" default:"9"`
	Minute   int    `envconfig:"SCHEDULE_MINUTE" default:"0"`
	Timezone string `envconfig:"SCHEDULE_TIMEZONE" default:"UTC"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".deadlinebot/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"deadlinebot/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type DeliveryEnv struct {
	BotAppID      string `envconfig:"BOT_APP_ID"`
	BotServiceURL string `envconfig:"BOT_SERVICE_URL" default:"https://smba.trafficmanager.net/teams"`
	GraphBaseURL  string `envconfig:"GRAPH_BASE_URL" default:"https://graph.microsoft.com/v1.0"`
}

type CardEnv struct {
	TemplateDir string `envconfig:"CARD_TEMPLATE_DIR" default:"resources/cards"`
	Watch       bool   `envconfig:"CARD_TEMPLATE_WATCH" default:"true"`
}

type Env struct {
	BaseEnv
	AuthEnv
	SourceEnv
	ScheduleEnv
	StorageEnv
	DeliveryEnv
	CardEnv
}

const namespace = "DEADLINEBOT"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.ScheduleEnv.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// Validate checks the schedule against wall-clock bounds and resolves the
// timezone identifier.
func (e *ScheduleEnv) Validate() error {
	if e.Hour < 0 || e.Hour > 23 {
		return fmt.Errorf("schedule hour out of range: %d", e.Hour)
	}
	if e.Minute < 0 || e.Minute > 59 {
		return fmt.Errorf("schedule minute out of range: %d", e.Minute)
	}
	if _, err := time.LoadLocation(e.Timezone); err != nil {
		return fmt.Errorf("unrecognized schedule timezone %q: %w", e.Timezone, err)
	}
	return nil
}

// Location returns the resolved timezone. Validate must have succeeded.
func (e *ScheduleEnv) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func AuthEnvFromEnv(env *Env) *AuthEnv {
	return &env.AuthEnv
}

func SourceEnvFromEnv(env *Env) *SourceEnv {
	return &env.SourceEnv
}

func ScheduleEnvFromEnv(env *Env) *ScheduleEnv {
	return &env.ScheduleEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func DeliveryEnvFromEnv(env *Env) *DeliveryEnv {
	return &env.DeliveryEnv
}

func CardEnvFromEnv(env *Env) *CardEnv {
	return &env.CardEnv
}
