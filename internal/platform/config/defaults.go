package config

import "time"

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		CORS: CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowCredentials: true,
		},
		Web: WebConfig{
			StaticDir: "",
		},
		Models: ModelsConfig{
			Default:         "turbo",
			Preload:         nil,
			Device:          "",
			RunnerCommand:   "python3",
			RunnerArgs:      []string{"-m", "chatterbox.runner"},
			WorkDir:         "data/tmp",
			LoadTimeout:     5 * time.Minute,
			GenerateTimeout: 2 * time.Minute,
		},
		Audio: AudioConfig{
			MaxTextLength: 5000,
			OutputFormat:  "wav",
			TempDir:       "data/tmp",
		},
		Cache: CacheConfig{
			Driver: "none",
			TTL:    30 * time.Minute,
			Memory: MemoryCacheConfig{
				GCInterval: 5 * time.Minute,
			},
			Redis: RedisCacheConfig{
				Prefix: "tts:audio:",
			},
			SQLite: SQLiteCacheConfig{
				DSN: "data/cache.db",
			},
		},
		Dataset: DatasetConfig{
			Name:     "simon3000/genshin-voice",
			Endpoint: "https://datasets-server.huggingface.co",
			Config:   "default",
			Split:    "train",
			PageSize: 100,
		},
	}
}
