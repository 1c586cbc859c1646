package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:            "./test.db",
		Port:              "8080",
		JWTSecret:         "jwt-secret",
		TokenKey:          "hex-key",
		RelayURL:          "https://relay.example.com/hook",
		PlatformsDir:      "./platforms",
		WorkerCount:       3,
		SchedulerInterval: 300,
		InternalKey:       "internal-key",
		OpenAIKey:         "sk-test",
		OpenAIModel:       "gpt-4o-mini",
		RedisAddr:         "localhost:6379",
		UserAgent:         "Test Agent",
		Debug:             true,
		Version:           "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.JWTSecret != "jwt-secret" {
		t.Errorf("Expected JWT secret 'jwt-secret', got '%s'", cfg.JWTSecret)
	}
	if cfg.RelayURL != "https://relay.example.com/hook" {
		t.Errorf("Expected relay URL, got '%s'", cfg.RelayURL)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 300 {
		t.Errorf("Expected scheduler interval 300, got %d", cfg.SchedulerInterval)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("Expected model 'gpt-4o-mini', got '%s'", cfg.OpenAIModel)
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestSetAndGet(t *testing.T) {
	original := globalCfg
	defer func() { globalCfg = original }()

	testCfg := &Cfg{Port: "9090"}
	Set(testCfg)

	if Get().Port != "9090" {
		t.Errorf("Expected global config to return the set value, got '%s'", Get().Port)
	}
}
