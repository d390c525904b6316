package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("KIOSKD_CONFIG")
	defer os.Setenv("KIOSKD_CONFIG", originalEnv)

	os.Setenv("KIOSKD_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidQoS verifies run fails before connecting when the
// config does not validate.
func TestRun_InvalidQoS(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-client"
  topic_root: "fullpageos/test"
  qos: 7
  publish_interval: 5

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("KIOSKD_CONFIG")
	defer os.Setenv("KIOSKD_CONFIG", originalEnv)
	os.Setenv("KIOSKD_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with qos out of range")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("KIOSKD_CONFIG")
	defer os.Setenv("KIOSKD_CONFIG", originalEnv)

	os.Unsetenv("KIOSKD_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("KIOSKD_CONFIG")
	defer os.Setenv("KIOSKD_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("KIOSKD_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
