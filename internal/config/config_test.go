package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvVars = []string{
	"CONFIGSVC_DATABASE_URL", "CONFIGSVC_NATS_URL", "CONFIGSVC_AUTH_TOKEN",
	"CONFIGSVC_HTTP_ADDR", "CONFIGSVC_DATA_STORE_TYPE", "CONFIGSVC_PUBLISH_CHANGE_EVENTS",
	"CONFIGSVC_BACKUP_INTERVAL", "CONFIGSVC_BACKUP_S3_BUCKET", "CONFIGSVC_BACKUP_S3_ENDPOINT",
	"CONFIGSVC_BACKUP_S3_REGION", "CONFIGSVC_BACKUP_S3_PREFIX", "CONFIGSVC_BACKUP_GIT_REPO",
	"CONFIGSVC_BACKUP_GIT_FILE", "CONFIGSVC_BACKUP_GIT_BRANCH",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	clearAllEnv(t)
	if _, err := Load(""); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("CONFIGSVC_DATABASE_URL", "postgres://localhost/configsvc")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServicePort != 8080 || cfg.ServiceAdminPort != 8081 {
		t.Errorf("unexpected default ports: %+v", cfg)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.MaxPoolSize != 10 {
		t.Errorf("MaxPoolSize = %d, want 10", cfg.MaxPoolSize)
	}
	if cfg.BackupInterval != time.Hour {
		t.Errorf("BackupInterval = %v, want 1h", cfg.BackupInterval)
	}
	if cfg.BackupS3Region != "us-east-1" || cfg.BackupGitBranch != "main" {
		t.Errorf("unexpected backup defaults: %+v", cfg)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	clearAllEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "configsvc.toml")
	contents := `
[service]
port = 9091

[service.admin]
port = 9092

[document.store]
dataStoreType = "postgres"
maxPoolSize = 25

[publish.change]
events = true
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIGSVC_DATABASE_URL", "postgres://localhost/configsvc")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServicePort != 9091 || cfg.ServiceAdminPort != 9092 {
		t.Errorf("unexpected ports from file: %+v", cfg)
	}
	if cfg.MaxPoolSize != 25 {
		t.Errorf("MaxPoolSize = %d, want 25", cfg.MaxPoolSize)
	}
	if !cfg.PublishChangeEvents {
		t.Error("expected PublishChangeEvents true from file")
	}
	if cfg.HTTPAddr != ":9091" {
		t.Errorf("HTTPAddr = %q, want :9091", cfg.HTTPAddr)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("CONFIGSVC_DATABASE_URL", "postgres://localhost/configsvc")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err != nil {
		t.Fatalf("unexpected error for missing file: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearAllEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "configsvc.toml")
	if err := os.WriteFile(path, []byte("[document.store]\nmaxPoolSize = 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIGSVC_DATABASE_URL", "postgres://localhost/configsvc")
	t.Setenv("CONFIGSVC_HTTP_ADDR", ":3000")
	t.Setenv("CONFIGSVC_NATS_URL", "nats://localhost:4222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want :3000 (env override)", cfg.HTTPAddr)
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.NATSURL)
	}
	if cfg.MaxPoolSize != 5 {
		t.Errorf("MaxPoolSize = %d, want 5 (from file)", cfg.MaxPoolSize)
	}
}

func TestLoad_InvalidMaxPoolSize(t *testing.T) {
	clearAllEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "configsvc.toml")
	if err := os.WriteFile(path, []byte("[document.store]\nmaxPoolSize = -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIGSVC_DATABASE_URL", "postgres://localhost/configsvc")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-positive maxPoolSize")
	}
}

func TestLoad_BackupSettings(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("CONFIGSVC_DATABASE_URL", "postgres://localhost/configsvc")
	t.Setenv("CONFIGSVC_BACKUP_INTERVAL", "10m")
	t.Setenv("CONFIGSVC_BACKUP_S3_BUCKET", "my-bucket")
	t.Setenv("CONFIGSVC_BACKUP_GIT_REPO", "/tmp/repo")
	t.Setenv("CONFIGSVC_BACKUP_GIT_BRANCH", "backup")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackupInterval != 10*time.Minute {
		t.Errorf("BackupInterval = %v, want 10m", cfg.BackupInterval)
	}
	if cfg.BackupS3Bucket != "my-bucket" {
		t.Errorf("BackupS3Bucket = %q", cfg.BackupS3Bucket)
	}
	if cfg.BackupGitRepo != "/tmp/repo" || cfg.BackupGitBranch != "backup" {
		t.Errorf("unexpected git backup settings: %+v", cfg)
	}
}

func TestLoad_InvalidBackupInterval(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("CONFIGSVC_DATABASE_URL", "postgres://localhost/configsvc")
	t.Setenv("CONFIGSVC_BACKUP_INTERVAL", "not-a-duration")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid CONFIGSVC_BACKUP_INTERVAL")
	}
}

func TestLoad_MongoDataStoreTypeSkipsDatabaseURLRequirement(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("CONFIGSVC_DATA_STORE_TYPE", "mongo")

	if _, err := Load(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "default-val", "default-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q, %q) = %q, want %q", tc.key, tc.fallback, got, tc.want)
			}
		})
	}
}
