package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileConfigReadsGroupedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
app:
  AppPort: "9090"
  JWTSecret: file-secret
  AdminUsernames: [root, ops]
database:
  Driver: postgres
  Host: db.internal
karma:
  DailyRewardPoints: 25
  UnlockCostPoints: 150
  Timezone: Asia/Kolkata
telemetry:
  MetricsEnabled: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var c AppConfig
	if err := loadFileConfig(path, &c); err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if c.AppPort != "9090" || c.JWTSecret != "file-secret" {
		t.Fatalf("app section not applied: %+v", c)
	}
	if len(c.AdminUsernames) != 2 || c.AdminUsernames[1] != "ops" {
		t.Fatalf("admin usernames: got %v", c.AdminUsernames)
	}
	if c.DBDriver != "postgres" || c.DBHost != "db.internal" {
		t.Fatalf("database section not applied: driver=%q host=%q", c.DBDriver, c.DBHost)
	}
	if c.DailyRewardPoints != 25 || c.UnlockCostPoints != 150 {
		t.Fatalf("karma section not applied: %+v", c)
	}
	if !c.MetricsEnabled {
		t.Fatalf("telemetry section not applied")
	}
}

func TestLoadFileConfigAcceptsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"app": {"JWTSecret": "json-secret"}, "karma": {"StreakCycleDays": 7}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var c AppConfig
	if err := loadFileConfig(path, &c); err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if c.JWTSecret != "json-secret" || c.StreakCycleDays != 7 {
		t.Fatalf("json config not applied: %+v", c)
	}
}

func TestDefaultsThenEnvOverrides(t *testing.T) {
	t.Setenv("UNLOCK_COST_POINTS", "80")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	var c AppConfig
	applyDefaults(&c)
	if c.DailyRewardPoints != 10 || c.UnlockCostPoints != 100 || c.StreakCycleDays != 6 {
		t.Fatalf("unexpected karma defaults: %+v", c)
	}
	if c.DBDriver != "mysql" {
		t.Fatalf("default driver: got %q", c.DBDriver)
	}

	applyEnvOverrides(&c)
	if c.UnlockCostPoints != 80 {
		t.Fatalf("unlock cost override: got %d", c.UnlockCostPoints)
	}
	if !c.RedisEnabled {
		t.Fatalf("redis enabled override not applied")
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins: got %v", c.AllowedOrigins)
	}
}

func TestLocationFallsBackToLocal(t *testing.T) {
	c := AppConfig{Timezone: "Not/AZone"}
	if c.Location() == nil {
		t.Fatal("expected a location")
	}
	c.Timezone = "UTC"
	if got := c.Location().String(); got != "UTC" {
		t.Fatalf("location: got %q", got)
	}
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	if _, err := Dialector(AppConfig{DBDriver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	d, err := Dialector(AppConfig{DBDriver: "sqlite", DBName: "reel"})
	if err != nil {
		t.Fatalf("sqlite dialector: %v", err)
	}
	if d.Name() != "sqlite" {
		t.Fatalf("dialector name: got %q", d.Name())
	}
}
