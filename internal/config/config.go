package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// APIKey maps a bearer key to a principal.
type APIKey struct {
	Key     string `yaml:"key"`
	Subject string `yaml:"subject"`
	Role    string `yaml:"role"`
}

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
		RateLimit   struct {
			Capacity     int `yaml:"capacity"`
			RefillPerSec int `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint      string        `yaml:"endpoint"`
		AccessKey     string        `yaml:"accessKey"`
		SecretKey     string        `yaml:"secretKey"`
		BucketName    string        `yaml:"bucketName"`
		Region        string        `yaml:"region"`
		UseSSL        bool          `yaml:"useSSL"`
		PresignExpiry time.Duration `yaml:"presignExpiry"`
	} `yaml:"minio"`

	AI struct {
		APIKey      string `yaml:"api_key"`
		BaseURL     string `yaml:"base_url"`
		Model       string `yaml:"model"`
		VisionModel string `yaml:"vision_model"`
		MaxTokens   int    `yaml:"max_tokens"`
		// Timeout bounds the clinical assistant calls.
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Analysis struct {
		Timeout      time.Duration `yaml:"timeout"`
		Concurrency  int           `yaml:"concurrency"`
		ProfileLimit int           `yaml:"profile_limit"`
	} `yaml:"analysis"`

	Chat struct {
		ModelTopicCheck bool          `yaml:"model_topic_check"`
		HistoryWindow   int           `yaml:"history_window"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"chat"`

	Topic struct {
		LexiconPath string `yaml:"lexicon_path"`
	} `yaml:"topic"`

	Upload struct {
		MaxBytes          int64    `yaml:"max_bytes"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"upload"`

	Log logging.Config `yaml:"log"`

	Auth struct {
		Keys []APIKey `yaml:"keys"`
	} `yaml:"auth"`
}

// Load baca file config.yaml, terus override dari env, isi default, validasi
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads .env style files into the process env. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.AI.APIKey, "OPENAI_API_KEY")
	setString(&c.AI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.AI.Model, "AI_MODEL")
	setString(&c.AI.VisionModel, "AI_VISION_MODEL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.Host, "DATABASE_HOST")
	setString(&c.Database.User, "DATABASE_USER")
	setString(&c.Database.Password, "DATABASE_PASSWORD")
	setString(&c.Database.Name, "DATABASE_NAME")
	setInt(&c.Database.Port, "DATABASE_PORT")
	setString(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Topic.LexiconPath, "TOPIC_LEXICON_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setInt(&c.Server.Port, "SERVER_PORT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 60
	}
	if c.Server.RateLimit.RefillPerSec == 0 {
		c.Server.RateLimit.RefillPerSec = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMySQL
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Minio.PresignExpiry == 0 {
		c.Minio.PresignExpiry = 15 * time.Minute
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.VisionModel == "" {
		c.AI.VisionModel = c.AI.Model
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 2048
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 60 * time.Second
	}
	if c.Analysis.Concurrency == 0 {
		c.Analysis.Concurrency = 3
	}
	if c.Analysis.ProfileLimit == 0 {
		c.Analysis.ProfileLimit = 3
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = 5
	}
	if c.Chat.Timeout == 0 {
		c.Chat.Timeout = 30 * time.Second
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 10 << 20
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{"jpg", "jpeg", "png"}
	}
}

// Validate checks values that have no safe default.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	if c.Database.Driver != DriverMySQL && c.Database.Driver != DriverPostgres {
		problems = append(problems, fmt.Sprintf("database.driver must be mysql or postgres, got %q", c.Database.Driver))
	}
	if c.Analysis.Concurrency < 0 {
		problems = append(problems, "analysis.concurrency must be positive")
	}
	if c.Analysis.ProfileLimit < 0 {
		problems = append(problems, "analysis.profile_limit must be positive")
	}
	if c.Analysis.Timeout < 0 || c.Chat.Timeout < 0 || c.AI.Timeout < 0 {
		problems = append(problems, "timeouts must be positive")
	}
	if strings.TrimSpace(c.Topic.LexiconPath) == "" {
		problems = append(problems, "topic.lexicon_path is required")
	}
	for i, k := range c.Auth.Keys {
		if k.Key == "" || k.Subject == "" {
			problems = append(problems, fmt.Sprintf("auth.keys[%d] needs key and subject", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres (lib/pq)
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
