// Package config loads service configuration from a TOML file with
// environment-variable overrides. Recognized keys: service.port,
// service.admin.port, document.store.dataStoreType,
// document.store.maxPoolSize, document.store.mongo.*, publish.change.events.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// MongoEndpoint is one host/port pair in document.store.mongo.endpoints.
// Accepted for config-file compatibility but unused: this repo's only
// docstore.Adapter implementation is Postgres.
type MongoEndpoint struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Config is the resolved service configuration.
type Config struct {
	ServicePort      int    // service.port
	ServiceAdminPort int    // service.admin.port
	HTTPAddr         string // derived from ServicePort, or CONFIGSVC_HTTP_ADDR

	DataStoreType string          // document.store.dataStoreType: "postgres" or "mongo" (accepted, unused)
	MaxPoolSize   int             // document.store.maxPoolSize
	DatabaseURL   string          // CONFIGSVC_DATABASE_URL (required for dataStoreType=postgres)
	MongoDatabase string          // document.store.mongo.database
	MongoUser     string          // document.store.mongo.user
	MongoPassword string          // document.store.mongo.password
	MongoHosts    []MongoEndpoint // document.store.mongo.endpoints

	PublishChangeEvents bool   // publish.change.events
	NATSURL             string // CONFIGSVC_NATS_URL (empty = no events)
	AuthToken           string // CONFIGSVC_AUTH_TOKEN (empty = auth disabled)

	// Backup settings: periodic snapshot export.
	BackupInterval   time.Duration // CONFIGSVC_BACKUP_INTERVAL (default 1h; 0 = disabled)
	BackupS3Bucket   string        // CONFIGSVC_BACKUP_S3_BUCKET (enables S3 when set)
	BackupS3Endpoint string        // CONFIGSVC_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	BackupS3Region   string        // CONFIGSVC_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Prefix   string        // CONFIGSVC_BACKUP_S3_PREFIX (default "config-snapshots")
	BackupGitRepo    string        // CONFIGSVC_BACKUP_GIT_REPO (enables git when set; path to clone)
	BackupGitFile    string        // CONFIGSVC_BACKUP_GIT_FILE (default "config-snapshot.jsonl")
	BackupGitBranch  string        // CONFIGSVC_BACKUP_GIT_BRANCH (default "main")
}

// rawFile is the shape decoded directly out of the TOML file, before
// environment overrides are applied. BurntSushi/toml doesn't support
// dotted struct tags resolving to nested tables the way the flat Config
// struct's field comments name its keys, so the file is decoded into its natural nested
// shape first and flattened into Config.
type rawFile struct {
	Service struct {
		Port  int `toml:"port"`
		Admin struct {
			Port int `toml:"port"`
		} `toml:"admin"`
	} `toml:"service"`
	Document struct {
		Store struct {
			DataStoreType string `toml:"dataStoreType"`
			MaxPoolSize   int    `toml:"maxPoolSize"`
			Mongo         struct {
				Database  string          `toml:"database"`
				User      string          `toml:"user"`
				Password  string          `toml:"password"`
				Endpoints []MongoEndpoint `toml:"endpoints"`
			} `toml:"mongo"`
		} `toml:"store"`
	} `toml:"document"`
	Publish struct {
		Change struct {
			Events bool `toml:"events"`
		} `toml:"change"`
	} `toml:"publish"`
}

// Load reads path (if it exists) and layers environment overrides on top.
// A missing file is not an error; a deployment driven entirely by env vars
// is expected to work, matching internal/config's original envOrDefault
// fallback for containers that don't mount a config file.
func Load(path string) (*Config, error) {
	c := &Config{
		ServicePort:      8080,
		ServiceAdminPort: 8081,
		DataStoreType:    "postgres",
		MaxPoolSize:      10,
		BackupS3Region:   "us-east-1",
		BackupS3Prefix:   "config-snapshots",
		BackupGitFile:    "config-snapshot.jsonl",
		BackupGitBranch:  "main",
	}

	if path != "" {
		var raw rawFile
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else {
			if raw.Service.Port != 0 {
				c.ServicePort = raw.Service.Port
			}
			if raw.Service.Admin.Port != 0 {
				c.ServiceAdminPort = raw.Service.Admin.Port
			}
			if raw.Document.Store.DataStoreType != "" {
				c.DataStoreType = raw.Document.Store.DataStoreType
			}
			if raw.Document.Store.MaxPoolSize != 0 {
				c.MaxPoolSize = raw.Document.Store.MaxPoolSize
			}
			c.MongoDatabase = raw.Document.Store.Mongo.Database
			c.MongoUser = raw.Document.Store.Mongo.User
			c.MongoPassword = raw.Document.Store.Mongo.Password
			c.MongoHosts = raw.Document.Store.Mongo.Endpoints
			c.PublishChangeEvents = raw.Publish.Change.Events
		}
	}

	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}

	if c.HTTPAddr == "" {
		c.HTTPAddr = fmt.Sprintf(":%d", c.ServicePort)
	}
	if c.DataStoreType == "postgres" && c.DatabaseURL == "" {
		return nil, fmt.Errorf("config: CONFIGSVC_DATABASE_URL is required when document.store.dataStoreType=postgres")
	}
	if c.MaxPoolSize <= 0 {
		return nil, fmt.Errorf("config: document.store.maxPoolSize must be positive, got %d", c.MaxPoolSize)
	}
	return c, nil
}

func applyEnvOverrides(c *Config) error {
	c.DatabaseURL = envOrDefault("CONFIGSVC_DATABASE_URL", c.DatabaseURL)
	c.NATSURL = envOrDefault("CONFIGSVC_NATS_URL", c.NATSURL)
	c.AuthToken = envOrDefault("CONFIGSVC_AUTH_TOKEN", c.AuthToken)
	c.HTTPAddr = envOrDefault("CONFIGSVC_HTTP_ADDR", c.HTTPAddr)
	if v := os.Getenv("CONFIGSVC_DATA_STORE_TYPE"); v != "" {
		c.DataStoreType = v
	}
	if v := os.Getenv("CONFIGSVC_PUBLISH_CHANGE_EVENTS"); v != "" {
		c.PublishChangeEvents = v == "true" || v == "1"
	}

	c.BackupS3Bucket = os.Getenv("CONFIGSVC_BACKUP_S3_BUCKET")
	c.BackupS3Endpoint = os.Getenv("CONFIGSVC_BACKUP_S3_ENDPOINT")
	c.BackupS3Region = envOrDefault("CONFIGSVC_BACKUP_S3_REGION", c.BackupS3Region)
	c.BackupS3Prefix = envOrDefault("CONFIGSVC_BACKUP_S3_PREFIX", c.BackupS3Prefix)
	c.BackupGitRepo = os.Getenv("CONFIGSVC_BACKUP_GIT_REPO")
	c.BackupGitFile = envOrDefault("CONFIGSVC_BACKUP_GIT_FILE", c.BackupGitFile)
	c.BackupGitBranch = envOrDefault("CONFIGSVC_BACKUP_GIT_BRANCH", c.BackupGitBranch)

	intervalStr := envOrDefault("CONFIGSVC_BACKUP_INTERVAL", "1h")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return fmt.Errorf("config: CONFIGSVC_BACKUP_INTERVAL: %w", err)
		}
		c.BackupInterval = d
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
