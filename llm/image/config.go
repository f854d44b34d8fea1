package image

import "time"

// OpenAIConfig 配置 OpenAI DALL-E 提供者
type OpenAIConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`     // dall-e-3
	Quality string        `json:"quality,omitempty" yaml:"quality,omitempty"` // hd
	Style   string        `json:"style,omitempty" yaml:"style,omitempty"`     // vivid
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultOpenAIConfig 返回默认 DALL-E 配置
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL: "https://api.openai.com",
		Model:   "dall-e-3",
		Quality: "hd",
		Style:   "vivid",
		Timeout: 120 * time.Second,
	}
}
