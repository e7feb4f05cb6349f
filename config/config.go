package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Store      StoreConfig      `yaml:"store"`
	LLM        LLMConfig        `yaml:"llm"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Collection CollectionConfig `yaml:"collection"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	TTS        TTSConfig        `yaml:"tts"`
	Storage    StorageConfig    `yaml:"storage"`
	Quota      QuotaConfig      `yaml:"quota"`
	Recovery   RecoveryConfig   `yaml:"recovery"`
	API        APIConfig        `yaml:"api"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the record store. Backend is "mongo" or "postgres".
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	MongoURI    string `yaml:"mongo_uri"`
	MongoDBName string `yaml:"mongo_db_name"`
	PostgresURL string `yaml:"postgres_url"`
}

// LLMConfig lists analysis providers in priority order.
type LLMConfig struct {
	Providers      []ProviderConfig `yaml:"providers"`
	Temperature    float64          `yaml:"temperature"`
	MaxRetries     int              `yaml:"max_retries"`
	AttemptTimeout time.Duration    `yaml:"attempt_timeout"`
}

type ProviderConfig struct {
	Name    string `yaml:"name"` // gemini | openai
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	// APIKey is normally left empty in yaml and read from the provider's env var.
	APIKey string `yaml:"api_key"`
}

type AnalysisConfig struct {
	Language             string        `yaml:"language"`
	PromptCommentLimit   int           `yaml:"prompt_comment_limit"`
	CommunityMinComments int           `yaml:"community_min_comments"`
	MaxTranscriptChars   int           `yaml:"max_transcript_chars"`
	RunTimeout           time.Duration `yaml:"run_timeout"`
	AutoAudio            bool          `yaml:"auto_audio"`
}

type CollectionConfig struct {
	MaxComments   int           `yaml:"max_comments"`
	RecentIDCount int           `yaml:"recent_id_count"`
	Timeout       time.Duration `yaml:"timeout"`
}

type YouTubeConfig struct {
	APIKey              string   `yaml:"api_key"`
	CommentPageSize     int64    `yaml:"comment_page_size"`
	TranscriptLanguages []string `yaml:"transcript_languages"`
}

type TTSConfig struct {
	Vendors        []TTSVendorConfig `yaml:"vendors"`
	AttemptTimeout time.Duration     `yaml:"attempt_timeout"`
}

type TTSVendorConfig struct {
	Name   string `yaml:"name"` // openai | gemini
	Model  string `yaml:"model"`
	Voice  string `yaml:"voice"`
	APIKey string `yaml:"api_key"`
}

type StorageConfig struct {
	Bucket       string        `yaml:"bucket"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`
	Timeout      time.Duration `yaml:"timeout"`
}

// QuotaConfig 는 분석용 LLM 호출에 대한 속도/일일 한도를 정의한다.
// 0 이하면 제한 없음으로 간주한다.
type QuotaConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day"`
}

type RecoveryConfig struct {
	Schedule   string        `yaml:"schedule"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type APIConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

var config *AppConfig

func InitApp() {
	c, err := Load(filepath.Join(GetBasePath(), configFileName()))
	if err != nil {
		panic(err)
	}
	config = c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

// SetConfig replaces the process-wide config. Used by tests and tools that
// build their config in code.
func SetConfig(c AppConfig) {
	applyDefaults(&c)
	config = &c
}

// Load reads the yaml file at path, overlays secrets from the environment
// (.env next to the config file is loaded first) and fills defaults.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ENV_FILE))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyEnv(&c)
	applyDefaults(&c)
	return &c, nil
}

func applyEnv(c *AppConfig) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Store.MongoURI = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.PostgresURL = v
	}
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	for i := range c.LLM.Providers {
		if c.LLM.Providers[i].APIKey == "" {
			c.LLM.Providers[i].APIKey = apiKeyFromEnv(c.LLM.Providers[i].Name)
		}
	}
	for i := range c.TTS.Vendors {
		if c.TTS.Vendors[i].APIKey == "" {
			c.TTS.Vendors[i].APIKey = apiKeyFromEnv(c.TTS.Vendors[i].Name)
		}
	}
}

func apiKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini", "google":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

func applyDefaults(c *AppConfig) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "mongo"
	}
	if c.Store.MongoDBName == "" {
		c.Store.MongoDBName = "videoinsight"
	}
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = []ProviderConfig{
			{Name: "gemini", Model: "gemini-2.5-flash", APIKey: os.Getenv("GEMINI_API_KEY")},
			{Name: "openai", Model: "gpt-4o-mini", APIKey: os.Getenv("OPENAI_API_KEY")},
		}
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 2
	}
	if c.LLM.AttemptTimeout <= 0 {
		c.LLM.AttemptTimeout = 90 * time.Second
	}
	if c.Analysis.Language == "" {
		c.Analysis.Language = "English"
	}
	if c.Analysis.PromptCommentLimit <= 0 {
		c.Analysis.PromptCommentLimit = 100
	}
	if c.Analysis.CommunityMinComments <= 0 {
		c.Analysis.CommunityMinComments = 50
	}
	if c.Analysis.MaxTranscriptChars <= 0 {
		c.Analysis.MaxTranscriptChars = 30000
	}
	if c.Analysis.RunTimeout <= 0 {
		c.Analysis.RunTimeout = 10 * time.Minute
	}
	if c.Collection.MaxComments <= 0 {
		c.Collection.MaxComments = 500
	}
	if c.Collection.RecentIDCount <= 0 {
		c.Collection.RecentIDCount = 3
	}
	if c.Collection.Timeout <= 0 {
		c.Collection.Timeout = 2 * time.Minute
	}
	if c.YouTube.CommentPageSize <= 0 || c.YouTube.CommentPageSize > 100 {
		c.YouTube.CommentPageSize = 100
	}
	if len(c.YouTube.TranscriptLanguages) == 0 {
		c.YouTube.TranscriptLanguages = []string{"en"}
	}
	if c.TTS.AttemptTimeout <= 0 {
		c.TTS.AttemptTimeout = 60 * time.Second
	}
	if c.Storage.SignedURLTTL <= 0 {
		c.Storage.SignedURLTTL = time.Hour
	}
	if c.Storage.Timeout <= 0 {
		c.Storage.Timeout = 30 * time.Second
	}
	if c.Recovery.Schedule == "" {
		c.Recovery.Schedule = "@every 5m"
	}
	if c.Recovery.StaleAfter <= 0 {
		c.Recovery.StaleAfter = 15 * time.Minute
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
}

func configFileName() string {
	if v := os.Getenv("CONFIG_FILE"); v != "" {
		return v
	}
	return CONFIG_FILE
}

func GetBasePath() string {
	name := configFileName()
	if filepath.IsAbs(name) {
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, name)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
