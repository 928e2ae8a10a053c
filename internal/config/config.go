package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Session SessionConfig `mapstructure:"session"`
	Editor  EditorConfig  `mapstructure:"editor"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Model   ModelConfig   `mapstructure:"model"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// StorageConfig selects the session document store. Type is one of
// memory, disk, sqlite, redis or none.
type StorageConfig struct {
	Type       string `mapstructure:"type"`
	DataDir    string `mapstructure:"data_dir"`
	CacheSize  int    `mapstructure:"cache_size"`
	SQLitePath string `mapstructure:"sqlite_path"`
	RedisURL   string `mapstructure:"redis_url"`
	RedisKey   string `mapstructure:"redis_prefix"`
	LegacyFile string `mapstructure:"legacy_file"`
}

type SessionConfig struct {
	MaxSessions   int           `mapstructure:"max_sessions"`
	AutosaveDelay time.Duration `mapstructure:"autosave_delay"`
}

type EditorConfig struct {
	ThumbnailTimeout  time.Duration `mapstructure:"thumbnail_timeout"`
	ValidationTimeout time.Duration `mapstructure:"validation_timeout"`
	SaveTimeout       time.Duration `mapstructure:"save_timeout"`
	HistoryLimit      int           `mapstructure:"history_limit"`
	CommandBuffer     int           `mapstructure:"command_buffer"`
}

type AuditConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ModelConfig configures the vision model used for diagram validation.
// Provider is one of doubao, qwen, openai; empty disables validation.
type ModelConfig struct {
	Provider string       `mapstructure:"provider"`
	Doubao   DoubaoConfig `mapstructure:"doubao"`
	Qwen     QwenConfig   `mapstructure:"qwen"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

type DoubaoConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("storage.type", "disk")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.cache_size", 50)
	v.SetDefault("storage.sqlite_path", "./data/sessions.db")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.redis_prefix", "drawflow")
	v.SetDefault("storage.legacy_file", "")

	v.SetDefault("session.max_sessions", 50)
	v.SetDefault("session.autosave_delay", time.Second)

	v.SetDefault("editor.thumbnail_timeout", 3*time.Second)
	v.SetDefault("editor.validation_timeout", 5*time.Second)
	v.SetDefault("editor.save_timeout", 10*time.Second)
	v.SetDefault("editor.history_limit", 20)
	v.SetDefault("editor.command_buffer", 16)

	v.SetDefault("audit.endpoint", "")
	v.SetDefault("audit.timeout", 5*time.Second)

	v.SetDefault("model.provider", "")
	v.SetDefault("model.qwen.debug_request", false)
}

// Load reads the YAML file at configPath (optional when empty) layered over
// defaults and DRAWFLOW_* environment variables. A .env file in the working
// directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DRAWFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	// config file wins; otherwise fall back to the vendor env vars
	if c.Model.Doubao.APIKey == "" {
		c.Model.Doubao.APIKey = os.Getenv("ARK_API_KEY")
	}
	if c.Model.Qwen.APIKey == "" {
		c.Model.Qwen.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}
	if c.Model.OpenAI.APIKey == "" {
		c.Model.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg = c
	return c, nil
}

func Get() *Config {
	return cfg
}
