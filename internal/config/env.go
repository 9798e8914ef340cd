package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".hermes/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"hermes/"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
}

type RedisEnv struct {
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

type JiraEnv struct {
	JiraURL      string `envconfig:"JIRA_URL"`
	JiraEmail    string `envconfig:"JIRA_EMAIL"`
	JiraAPIToken string `envconfig:"JIRA_API_TOKEN"`
}

type TelegramEnv struct {
	TelegramToken   string  `envconfig:"TELEGRAM_TOKEN"`
	AuthorizedUsers []int64 `envconfig:"AUTHORIZED_USERS"`
}

type WorkerEnv struct {
	WorkspaceDir string `envconfig:"WORKSPACE_DIR" default:"/workspace"`
	GitHubToken  string `envconfig:"GITHUB_TOKEN"`
	HTTPHost     string `envconfig:"HTTP_HOST" default:""`
	HTTPPort     string `envconfig:"HTTP_PORT" default:"3200"`
}

type AgentEnv struct {
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	SonnetModel     string `envconfig:"SONNET_MODEL" default:"claude-sonnet-4-20250514"`
	OpusModel       string `envconfig:"OPUS_MODEL" default:"claude-opus-4-20250514"`
}

type Env struct {
	BaseEnv
	StorageEnv
	RedisEnv
	JiraEnv
	TelegramEnv
	WorkerEnv
	AgentEnv
}

const namespace = "HERMES"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
