package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 儲存後端
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`      // ex: ":8080"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // ex: 5s

	LogLevel  string `yaml:"log_level"`  // debug | info | warn | error
	PrettyLog bool   `yaml:"pretty_log"` // true => zap dev (彩色), false => JSON

	StoreBackend string `yaml:"store_backend"` // firestore | memory
	DataDir      string `yaml:"data_dir"`      // memory 後端落地 + 本機上傳
	UploadsDir   string `yaml:"uploads_dir"`

	Firebase FirebaseConfig `yaml:"firebase"`

	// NO_AUTH=1：不驗簽（本機開發）
	NoAuth      bool     `yaml:"no_auth"`
	AdminEmails []string `yaml:"admin_emails"`
	AdminUIDs   []string `yaml:"admin_uids"`
	OwnerName   string   `yaml:"owner_name"` // 回覆詢問時顯示的名字

	AuditRetention time.Duration `yaml:"audit_retention"`

	InquiryRate  float64 `yaml:"inquiry_rate"` // 每秒
	InquiryBurst int     `yaml:"inquiry_burst"`

	CORSOrigin string `yaml:"cors_origin"`
}

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsJSON string `yaml:"credentials_json"`
	CredentialsFile string `yaml:"credentials_file"`
	APIKey          string `yaml:"api_key"`        // securetoken refresh 用
	StorageBucket   string `yaml:"storage_bucket"` // 空白 = 上傳到本機 UploadsDir
	TokenEndpoint   string `yaml:"token_endpoint"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:      ":8080",
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
		PrettyLog:       false,
		StoreBackend:    BackendFirestore,
		DataDir:         defaultDataDir(),
		OwnerName:       "管理者",
		AuditRetention:  30 * 24 * time.Hour,
		InquiryRate:     0.1,
		InquiryBurst:    3,
		CORSOrigin:      "*",
		Firebase: FirebaseConfig{
			TokenEndpoint: "https://securetoken.googleapis.com/v1/token",
		},
	}
}

// /data 存在就用它（容器），否則 ./data
func defaultDataDir() string {
	dataDir := "/data"
	if _, err := os.Stat(dataDir); err != nil {
		dataDir = filepath.Join(".", "data")
	}
	return dataDir
}

// Load 的順序：預設值 → YAML 檔（path 不為空時）→ 環境變數
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = filepath.Join(cfg.DataDir, "uploads")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getenv("PORTFOLIO_LISTEN_ADDR", c.ListenAddr)
	if p := os.Getenv("PORT"); p != "" && os.Getenv("PORTFOLIO_LISTEN_ADDR") == "" {
		c.ListenAddr = ":" + p
	}
	c.ShutdownTimeout = mustDuration("PORTFOLIO_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.LogLevel = getenv("PORTFOLIO_LOG_LEVEL", c.LogLevel)
	c.PrettyLog = mustBool("PORTFOLIO_PRETTY_LOG", c.PrettyLog)

	c.StoreBackend = getenv("PORTFOLIO_STORE", c.StoreBackend)
	c.DataDir = getenv("DATA_DIR", c.DataDir)
	c.UploadsDir = getenv("UPLOADS_DIR", c.UploadsDir)

	c.Firebase.ProjectID = getenv("FIREBASE_PROJECT_ID", c.Firebase.ProjectID)
	c.Firebase.CredentialsJSON = getenv("FIREBASE_SERVICE_ACCOUNT_JSON", c.Firebase.CredentialsJSON)
	c.Firebase.CredentialsFile = getenv("GOOGLE_APPLICATION_CREDENTIALS", c.Firebase.CredentialsFile)
	c.Firebase.APIKey = getenv("FIREBASE_API_KEY", c.Firebase.APIKey)
	c.Firebase.StorageBucket = getenv("FIREBASE_STORAGE_BUCKET", c.Firebase.StorageBucket)
	c.Firebase.TokenEndpoint = getenv("FIREBASE_TOKEN_ENDPOINT", c.Firebase.TokenEndpoint)

	c.NoAuth = mustBool("NO_AUTH", c.NoAuth)
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.AdminEmails = splitAndTrim(v)
	}
	if v := os.Getenv("ADMIN_UIDS"); v != "" {
		c.AdminUIDs = splitAndTrim(v)
	}
	c.OwnerName = getenv("PORTFOLIO_OWNER_NAME", c.OwnerName)

	c.AuditRetention = mustDuration("PORTFOLIO_AUDIT_RETENTION", c.AuditRetention)
	c.InquiryRate = getenvFloat("PORTFOLIO_INQUIRY_RATE", c.InquiryRate)
	c.InquiryBurst = getenvInt("PORTFOLIO_INQUIRY_BURST", c.InquiryBurst)
	c.CORSOrigin = getenv("PORTFOLIO_CORS_ORIGIN", c.CORSOrigin)
}

// Validate 檢查啟動前就該擋下的設定錯誤
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.NeedsFirebase() && c.Firebase.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID not set")
	}
	if !c.NoAuth && len(c.AdminEmails) == 0 && len(c.AdminUIDs) == 0 {
		return fmt.Errorf("no admin identity configured: set ADMIN_EMAILS or ADMIN_UIDS, or NO_AUTH=1")
	}
	if c.AuditRetention <= 0 {
		return fmt.Errorf("audit retention must be positive, got %s", c.AuditRetention)
	}
	if c.InquiryRate <= 0 || c.InquiryBurst <= 0 {
		return fmt.Errorf("inquiry rate limit must be positive")
	}
	return nil
}

// Firestore、Firebase Auth、Cloud Storage 任一個要用就得初始化 Firebase app
func (c *Config) NeedsFirebase() bool {
	return c.StoreBackend == BackendFirestore || !c.NoAuth || c.Firebase.StorageBucket != ""
}

func EnsureDir(dir string) error { return os.MkdirAll(dir, 0o755) }

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
