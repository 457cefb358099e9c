// Package config loads the counter's settings from COUNTER_* environment variables.
//
// A `.env` file in the working directory is loaded first when present.
// Unset variables keep the defaults from Default.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "COUNTER_"

const (
	BackendDynamoDB  = "dynamodb"
	BackendRedis     = "redis"
	BackendDatastore = "datastore"
	BackendLocal     = "local"
)

// Config is flat: COUNTER_DYNAMODB_TABLE maps to the "dynamodb_table" key.
type Config struct {
	Backend  string `koanf:"backend" validate:"required,oneof=dynamodb redis datastore local"`
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	CounterID string `koanf:"counter_id" validate:"required"`
	ValueAttr string `koanf:"value_attr" validate:"required"`

	DynamoDBTable    string `koanf:"dynamodb_table" validate:"required_if=Backend dynamodb"`
	DynamoDBKeyAttr  string `koanf:"dynamodb_key_attr" validate:"required_if=Backend dynamodb"`
	DynamoDBRegion   string `koanf:"dynamodb_region" validate:"required_if=Backend dynamodb"`
	DynamoDBEndpoint string `koanf:"dynamodb_endpoint" validate:"omitempty,url"`

	RedisAddr string `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisKey  string `koanf:"redis_key" validate:"required_if=Backend redis"`

	DatastoreProject   string `koanf:"datastore_project" validate:"required_if=Backend datastore"`
	DatastoreKind      string `koanf:"datastore_kind" validate:"required_if=Backend datastore"`
	DatastoreNamespace string `koanf:"datastore_namespace"`
}

// Default describes the WebsiteCounterTable layout in ca-central-1.
func Default() *Config {
	return &Config{
		Backend:          BackendDynamoDB,
		LogLevel:         "info",
		CounterID:        "CounterValue",
		ValueAttr:        "WebsiteCounter",
		DynamoDBTable:    "WebsiteCounterTable",
		DynamoDBKeyAttr:  "CounterID",
		DynamoDBRegion:   "ca-central-1",
		RedisKey:         "WebsiteCounter:CounterValue",
		DatastoreProject: os.Getenv("PROJECT_ID"),
		DatastoreKind:    "WebsiteCounter",
	}
}

// Load reads `.env` (if any), overlays COUNTER_* variables on Default and validates the result.
func Load() (*Config, error) {
	godotenv.Load()

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("k.Load: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("k.Unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
