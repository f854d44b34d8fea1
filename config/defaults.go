// =============================================================================
// 📦 marketing-generator 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// API Key 等级
const (
	TierFree     = "free"
	TierStandard = "standard"
	TierPremium  = "premium"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Auth:      DefaultAuthConfig(),
		Extractor: DefaultExtractorConfig(),
		Validator: DefaultValidatorConfig(),
		Image:     DefaultImageConfig(),
		Video:     DefaultVideoConfig(),
		Storage:   DefaultStorageConfig(),
		Session:   DefaultSessionConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           8080,
		MetricsPort:        9091,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       20 * time.Minute,
		ShutdownTimeout:    15 * time.Second,
		RequestTimeout:     15 * time.Minute,
		CORSAllowedOrigins: []string{"*"},
	}
}

// DefaultAuthConfig 返回默认认证配置，分级限额与原 FastAPI 服务一致
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled: true,
		Tiers: map[string]TierLimit{
			TierFree:     {RequestsPerMinute: 5, RequestsPerHour: 50},
			TierStandard: {RequestsPerMinute: 20, RequestsPerHour: 500},
			TierPremium:  {RequestsPerMinute: 100, RequestsPerHour: 5000},
		},
	}
}

// DefaultExtractorConfig 返回默认抽取 LLM 配置
func DefaultExtractorConfig() LLMConfig {
	return LLMConfig{
		Provider:         "openai",
		BaseURL:          "https://api.openai.com",
		Model:            "gpt-4o-mini",
		Timeout:          60 * time.Second,
		MaxRetries:       2,
		Temperature:      0.1,
		MaxTokens:        800,
		MaxContextTokens: 2000,
	}
}

// DefaultValidatorConfig 返回默认视觉校验 LLM 配置
func DefaultValidatorConfig() LLMConfig {
	return LLMConfig{
		Provider:    "openai",
		BaseURL:     "https://api.openai.com",
		Model:       "gpt-4o",
		Timeout:     90 * time.Second,
		MaxRetries:  1,
		Temperature: 0.1,
		MaxTokens:   2000,
	}
}

// DefaultImageConfig 返回默认 DALL-E 配置
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		BaseURL: "https://api.openai.com",
		Model:   "dall-e-3",
		Quality: "hd",
		Style:   "vivid",
		Timeout: 120 * time.Second,
	}
}

// DefaultVideoConfig 返回默认视频配置
func DefaultVideoConfig() VideoConfig {
	return VideoConfig{
		DefaultBackend:    "veo",
		PollInterval:      10 * time.Second,
		GenerationTimeout: 5 * time.Minute,
		Veo: VideoProviderConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "veo-3.1-generate-preview",
			Timeout: 60 * time.Second,
		},
		Runway: VideoProviderConfig{
			BaseURL: "https://api.dev.runwayml.com",
			Model:   "gen4_turbo",
			Timeout: 60 * time.Second,
		},
	}
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		OutputDir:       "outputs",
		DownloadTimeout: 120 * time.Second,
		DownloadRetries: 2,
	}
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Backend:   "memory",
		KeyPrefix: "mg:session:",
		TTL:       24 * time.Hour,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         false,
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "marketinggen",
		Password:        "",
		Name:            "marketinggen.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		AutoMigrate:     true,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "marketing-generator",
		SampleRate:   0.1,
	}
}
