package video

import "time"

// VeoConfig 配置 Google Veo（Gemini API predictLongRunning）
type VeoConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // veo-3.1-generate-preview
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// RunwayConfig 配置 Runway ML
type RunwayConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"` // gen4_turbo
	APIVersion string        `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultVeoConfig 返回默认 Veo 配置
func DefaultVeoConfig() VeoConfig {
	return VeoConfig{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "veo-3.1-generate-preview",
		Timeout: 60 * time.Second,
	}
}

// DefaultRunwayConfig 返回默认 Runway 配置
func DefaultRunwayConfig() RunwayConfig {
	return RunwayConfig{
		BaseURL:    "https://api.dev.runwayml.com",
		Model:      "gen4_turbo",
		APIVersion: "2024-11-06",
		Timeout:    60 * time.Second,
	}
}

// PollerConfig 轮询参数
type PollerConfig struct {
	Interval        time.Duration `json:"interval" yaml:"interval"`
	Deadline        time.Duration `json:"deadline" yaml:"deadline"`
	MaxPollFailures int           `json:"max_poll_failures" yaml:"max_poll_failures"`
}

// DefaultPollerConfig 10s 轮询，5 分钟截止
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:        10 * time.Second,
		Deadline:        5 * time.Minute,
		MaxPollFailures: 3,
	}
}
