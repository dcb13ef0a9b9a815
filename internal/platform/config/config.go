package config

import (
	"time"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	CORS    CORSConfig    `yaml:"cors"`
	Web     WebConfig     `yaml:"web"`
	Models  ModelsConfig  `yaml:"models"`
	Audio   AudioConfig   `yaml:"audio"`
	Cache   CacheConfig   `yaml:"cache"`
	Dataset DatasetConfig `yaml:"dataset"`
	HFToken string        `yaml:"hf_token"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type CORSConfig struct {
	AllowOrigins     []string `yaml:"allow_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// ModelsConfig controls which model variants are served and how their
// runner processes are launched.
type ModelsConfig struct {
	Default         string        `yaml:"default_model"`
	Preload         []string      `yaml:"preload_models"`
	Device          string        `yaml:"device"` // cuda/mps/cpu, empty = auto
	RunnerCommand   string        `yaml:"runner_command"`
	RunnerArgs      []string      `yaml:"runner_args"`
	WorkDir         string        `yaml:"work_dir"`
	LoadTimeout     time.Duration `yaml:"load_timeout"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
}

type AudioConfig struct {
	MaxTextLength int    `yaml:"max_text_length"`
	OutputFormat  string `yaml:"output_format"`
	TempDir       string `yaml:"temp_dir"`
}

type CacheConfig struct {
	Driver string            `yaml:"driver"` // none/memory/redis/sqlite
	TTL    time.Duration     `yaml:"ttl"`
	Redis  RedisCacheConfig  `yaml:"redis,omitempty"`
	SQLite SQLiteCacheConfig `yaml:"sqlite,omitempty"`
	Memory MemoryCacheConfig `yaml:"memory,omitempty"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteCacheConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

type MemoryCacheConfig struct {
	GCInterval time.Duration `yaml:"gc_interval"`
}

// DatasetConfig points the voice-fetch tool at a Hugging Face dataset
// served through the datasets-server rows API.
type DatasetConfig struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Config   string `yaml:"config"`
	Split    string `yaml:"split"`
	PageSize int    `yaml:"page_size"`
}
