package video

import (
	"context"
	"time"
)

// 后端名称
const (
	BackendVeo    = "veo"
	BackendRunway = "runway"
)

// GenerateRequest 视频生成请求；Image 非空时为图生视频
type GenerateRequest struct {
	Prompt          string `json:"prompt"`
	NegativePrompt  string `json:"negative_prompt,omitempty"`
	Model           string `json:"model,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"` // 16:9, 9:16
	Resolution      string `json:"resolution,omitempty"`   // 720p, 1080p
	Image           string `json:"image,omitempty"`        // base64
	ImageMediaType  string `json:"image_media_type,omitempty"`
	TraceID         string `json:"-"`
}

// HasImage 是否为图生视频
func (r *GenerateRequest) HasImage() bool { return r.Image != "" }

// Job 已提交的生成任务
type Job struct {
	ID              string `json:"id"`
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	DurationSeconds int    `json:"duration_seconds"`
}

// JobStatus 单次轮询结果
type JobStatus struct {
	Done     bool    `json:"done"`
	VideoURL string  `json:"video_url,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	State    string  `json:"state,omitempty"`
}

// GenerateResponse 任务完成后的结果
type GenerateResponse struct {
	Provider        string            `json:"provider"`
	Model           string            `json:"model"`
	JobID           string            `json:"job_id"`
	VideoURL        string            `json:"video_url"`
	DownloadHeaders map[string]string `json:"-"`
	DurationSeconds int               `json:"duration_seconds"`
	Polls           int               `json:"polls"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Provider 异步视频生成服务
type Provider interface {
	// Submit 提交生成任务，立即返回
	Submit(ctx context.Context, req *GenerateRequest) (*Job, error)
	// Poll 查询任务状态；任务在服务端失败时返回 error
	Poll(ctx context.Context, job *Job) (*JobStatus, error)
	// DownloadHeaders 下载产物时需要携带的请求头
	DownloadHeaders() map[string]string
	Name() string
}
