package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfigMissingFile 测试配置文件不存在时使用默认配置
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, info, err := LoadConfigWithInfo(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfigWithInfo failed: %v", err)
	}
	if info.PortSpecified {
		t.Error("PortSpecified should be false without a file")
	}
	if cfg.Sheet.HeaderRow != 3 {
		t.Errorf("HeaderRow = %d, want 3", cfg.Sheet.HeaderRow)
	}
	if cfg.Sheet.AssigneeColumn != "VERIFIKATOR" {
		t.Errorf("AssigneeColumn = %q", cfg.Sheet.AssigneeColumn)
	}
	if cfg.Portal.Timeout.Duration != 30*time.Second {
		t.Errorf("Portal.Timeout = %v, want 30s", cfg.Portal.Timeout.Duration)
	}
}

// TestLoadConfigFromToml 测试从 toml 加载配置
func TestLoadConfigFromToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 8088

[sheet]
backend = "workbook"
workbook_path = "queue.xlsx"
header_row = 1

[portal]
base_url = "https://portal.example/"
timeout = "5s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, info, err := LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("LoadConfigWithInfo failed: %v", err)
	}
	if !info.PortSpecified {
		t.Error("PortSpecified should be true")
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Port = %d, want 8088", cfg.Server.Port)
	}
	if cfg.Sheet.Backend != "workbook" || cfg.Sheet.HeaderRow != 1 {
		t.Errorf("Sheet = %+v", cfg.Sheet)
	}
	// 未配置的字段保留默认值
	if cfg.Sheet.StatusColumn != "STATUS (DITERIMA/DITOLAK)" {
		t.Errorf("StatusColumn = %q", cfg.Sheet.StatusColumn)
	}
	if cfg.Portal.Timeout.Duration != 5*time.Second {
		t.Errorf("Portal.Timeout = %v, want 5s", cfg.Portal.Timeout.Duration)
	}
}

// TestEnvOverrides 测试环境变量覆盖
func TestEnvOverrides(t *testing.T) {
	t.Setenv("VERIFIER_PORTAL_BASE_URL", "https://override.example/")
	t.Setenv("VERIFIER_PORT", "9999")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Portal.BaseURL != "https://override.example/" {
		t.Errorf("BaseURL = %q", cfg.Portal.BaseURL)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Server.Port)
	}
}

// TestSaveConfigRoundTrip 测试保存后重新加载
func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Registry.BaseURL = "https://registry.example/"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Registry.BaseURL != cfg.Registry.BaseURL {
		t.Errorf("BaseURL = %q", loaded.Registry.BaseURL)
	}
	if loaded.Auth.Timeout.Duration != 15*time.Second {
		t.Errorf("Auth.Timeout = %v", loaded.Auth.Timeout.Duration)
	}
}
