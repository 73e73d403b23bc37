package sink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "notesink.yml"
	// DefaultTableName is the table or collection notes are stored in.
	DefaultTableName = "NoteNestNotes"

	defaultPort        = 8080
	defaultEnv         = "development"
	defaultRedisURL    = "redis://localhost:6379/0"
	defaultRedisPrefix = "notenest:note:"
	defaultRegion      = "us-east-1"
	defaultMongoURI    = "mongodb://localhost:27017"
	defaultMongoDB     = "notenest"
	defaultCollection  = "notes"

	envPrefix = "NOTESINK_"
)

// Config is the runtime configuration of the sink server.
type Config struct {
	Port           int         `yaml:"port"`
	Env            string      `yaml:"env"` // "development" | "production"
	AllowedOrigins []string    `yaml:"allowed_origins"`
	Table          TableConfig `yaml:"table"`
}

// TableConfig selects and configures the backing table.
type TableConfig struct {
	Driver   string         `yaml:"driver"`
	Redis    RedisConfig    `yaml:"redis"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Mongo    MongoConfig    `yaml:"mongo"`
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type DynamoDBConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // e.g. DynamoDB Local
	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Addr returns the listen address.
func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool { return c.Env != "production" }

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Port: defaultPort,
		Env:  defaultEnv,
		Table: TableConfig{
			Driver:   DriverMemory,
			Redis:    RedisConfig{URL: defaultRedisURL, Prefix: defaultRedisPrefix},
			DynamoDB: DynamoDBConfig{Table: DefaultTableName, Region: defaultRegion},
			Mongo:    MongoConfig{URI: defaultMongoURI, Database: defaultMongoDB, Collection: defaultCollection},
		},
	}
}

// Load reads the YAML file at path over the defaults and applies NOTESINK_*
// environment overrides. A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	explicit := path != "" && path != DefaultConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	return &cfg, nil
}

// applyEnv overrides cfg with NOTESINK_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(envPrefix + "PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPORT %q: %w", envPrefix, v, err)
		}
		cfg.Port = port
	}
	if v, ok := lookup(envPrefix + "ALLOWED_ORIGINS"); ok && v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	str("ENV", &cfg.Env)
	str("TABLE", &cfg.Table.Driver)
	str("REDIS_URL", &cfg.Table.Redis.URL)
	str("REDIS_PREFIX", &cfg.Table.Redis.Prefix)
	str("DYNAMODB_TABLE", &cfg.Table.DynamoDB.Table)
	str("DYNAMODB_REGION", &cfg.Table.DynamoDB.Region)
	str("DYNAMODB_ENDPOINT", &cfg.Table.DynamoDB.Endpoint)
	str("AWS_ACCESS_KEY_ID", &cfg.Table.DynamoDB.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &cfg.Table.DynamoDB.SecretAccessKey)
	str("MYSQL_DSN", &cfg.Table.MySQL.DSN)
	str("MONGO_URI", &cfg.Table.Mongo.URI)
	str("MONGO_DATABASE", &cfg.Table.Mongo.Database)
	str("MONGO_COLLECTION", &cfg.Table.Mongo.Collection)
	return nil
}

// LoadDotEnv loads .env files with priority: .env.local > .env.
// godotenv.Load does not overwrite variables already set, so the process
// environment always wins. Returns the files actually loaded.
func LoadDotEnv() []string {
	candidates := []string{".env.local", ".env"}
	var loaded []string
	for _, f := range candidates {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}
