package image

import (
	"context"
	"time"
)

// DALL-E 3 支持的尺寸
const (
	SizeSquare = "1024x1024"
	SizeWide   = "1792x1024"
	SizeTall   = "1024x1792"
)

// MaxPromptLength DALL-E 3 prompt 长度上限（字符）
const MaxPromptLength = 4000

// GenerateRequest 文生图请求
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`            // 1024x1024, 1792x1024, 1024x1792
	Quality        string `json:"quality,omitempty"`         // standard, hd
	Style          string `json:"style,omitempty"`           // vivid, natural
	ResponseFormat string `json:"response_format,omitempty"` // url, b64_json
	TraceID        string `json:"-"`
}

// GenerateResponse 文生图响应
type GenerateResponse struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	Images    []ImageData `json:"images"`
	CreatedAt time.Time   `json:"created_at"`
}

// ImageData 单张生成结果，URL 与 B64JSON 二选一
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Provider 文生图提供者
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	Name() string
}

// TruncatePrompt 按字符（rune）截断 prompt
func TruncatePrompt(prompt string) string {
	r := []rune(prompt)
	if len(r) <= MaxPromptLength {
		return prompt
	}
	return string(r[:MaxPromptLength])
}
