package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Log      LogConfig      `toml:"log"`
	Sheet    SheetConfig    `toml:"sheet"`
	Portal   PortalConfig   `toml:"portal"`
	Auth     AuthConfig     `toml:"auth"`
	Registry RegistryConfig `toml:"registry"`
	Rules    RulesConfig    `toml:"rules"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int  `toml:"port"`
	DevMode     bool `toml:"dev_mode"`
	OpenBrowser bool `toml:"open_browser"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `toml:"level"` // debug / info / warn / error
	JSON  bool   `toml:"json"`
}

// SheetConfig 工作队列表配置
type SheetConfig struct {
	Backend        string `toml:"backend"`         // http / workbook
	Endpoint       string `toml:"endpoint"`        // http 后端地址
	WorkbookPath   string `toml:"workbook_path"`   // workbook 后端文件
	SheetName      string `toml:"sheet_name"`      // 工作表名
	HeaderRow      int    `toml:"header_row"`      // 表头所在行（从 1 开始）
	AssigneeColumn string `toml:"assignee_column"` // 审核员列名
	StatusColumn   string `toml:"status_column"`   // 状态列名
	KeyColumn      string `toml:"key_column"`      // 案件编号列名
	NoteColumn     string `toml:"note_column"`     // 拒绝理由写入列（列字母）
}

// PortalConfig 旧门户配置
type PortalConfig struct {
	BaseURL        string   `toml:"base_url"`
	IndexPath      string   `toml:"index_path"`
	ListingPath    string   `toml:"listing_path"`
	KeyParam       string   `toml:"key_param"`
	SubmitPath     string   `toml:"submit_path"`
	StatusParam    string   `toml:"status_param"`
	NoteParam      string   `toml:"note_param"`
	AcceptedStatus string   `toml:"accepted_status"`
	RejectedStatus string   `toml:"rejected_status"`
	Timeout        Duration `toml:"timeout"`
}

// AuthConfig 凭证校验服务配置
type AuthConfig struct {
	ValidateURL string   `toml:"validate_url"`
	LoginURL    string   `toml:"login_url"`
	Timeout     Duration `toml:"timeout"`
}

// RegistryConfig 参考登记库配置
type RegistryConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// RulesConfig 评估规则配置
type RulesConfig struct {
	Path string `toml:"path"` // 为空时使用内置规则
}

// Duration 支持 "30s" 形式的 toml 时长
type Duration struct {
	time.Duration
}

// UnmarshalText 解析时长文本
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText 输出时长文本
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        20262,
			DevMode:     false,
			OpenBrowser: true,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  true,
		},
		Sheet: SheetConfig{
			Backend:        "http",
			SheetName:      "Lembar Kerja",
			HeaderRow:      3,
			AssigneeColumn: "VERIFIKATOR",
			StatusColumn:   "STATUS (DITERIMA/DITOLAK)",
			KeyColumn:      "NPSN",
			NoteColumn:     "X",
		},
		Portal: PortalConfig{
			IndexPath:      "index.php",
			ListingPath:    "r_monitoring.php",
			KeyParam:       "inpsn",
			SubmitPath:     "r_verifikasi_simpan.php",
			StatusParam:    "status",
			NoteParam:      "note",
			AcceptedStatus: "3",
			RejectedStatus: "4",
			Timeout:        Duration{30 * time.Second},
		},
		Auth: AuthConfig{
			Timeout: Duration{15 * time.Second},
		},
		Registry: RegistryConfig{
			Timeout: Duration{15 * time.Second},
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 默认配置文件路径（可执行文件同目录下的 config.toml）
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
// path 为空时使用可执行文件同目录下的 config.toml
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			applyEnvOverrides(config)
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	applyEnvOverrides(config)
	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig(path string) (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo(path)
	return config, err
}

// applyEnvOverrides 环境变量覆盖（用于部署 / 本地运行）
func applyEnvOverrides(config *AppConfig) {
	overrides := map[string]*string{
		"VERIFIER_SHEET_BACKEND":     &config.Sheet.Backend,
		"VERIFIER_SHEET_ENDPOINT":    &config.Sheet.Endpoint,
		"VERIFIER_SHEET_WORKBOOK":    &config.Sheet.WorkbookPath,
		"VERIFIER_PORTAL_BASE_URL":   &config.Portal.BaseURL,
		"VERIFIER_AUTH_VALIDATE_URL": &config.Auth.ValidateURL,
		"VERIFIER_AUTH_LOGIN_URL":    &config.Auth.LoginURL,
		"VERIFIER_REGISTRY_BASE_URL": &config.Registry.BaseURL,
		"VERIFIER_RULES_PATH":        &config.Rules.Path,
		"VERIFIER_LOG_LEVEL":         &config.Log.Level,
	}
	for env, target := range overrides {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
	if v := os.Getenv("VERIFIER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
		}
	}
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(path string, config *AppConfig) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 相对路径以可执行文件所在目录为基准
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"exports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}
