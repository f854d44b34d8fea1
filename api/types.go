package api

import (
	"time"

	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/types"
)

// =============================================================================
// 📥 请求类型
// =============================================================================

// TurnRequest 一轮自然语言对话
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// BannerRequest 结构化横幅请求
type BannerRequest struct {
	Campaign   string `json:"campaign"`
	Brand      string `json:"brand"`
	Message    string `json:"message"`
	CTA        string `json:"cta"`
	BannerType string `json:"banner_type,omitempty"`
	// 额外要求，追加到提示词末尾
	AdditionalInstructions string `json:"additional_instructions,omitempty"`
}

// ToGenerationRequest 转换为工作流请求
func (r *BannerRequest) ToGenerationRequest() *types.GenerationRequest {
	return &types.GenerationRequest{
		Kind:                   types.KindBanner,
		Campaign:               r.Campaign,
		Brand:                  r.Brand,
		Message:                r.Message,
		CTA:                    r.CTA,
		BannerType:             r.BannerType,
		AdditionalInstructions: r.AdditionalInstructions,
	}
}

// VideoRequest 结构化视频请求；source_image 非空时为图生视频
type VideoRequest struct {
	Campaign    string `json:"campaign"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	VideoType   string `json:"video_type,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Model       string `json:"model,omitempty"`
	// 输出目录中的横幅文件名
	SourceImage            string `json:"source_image,omitempty"`
	AdditionalInstructions string `json:"additional_instructions,omitempty"`
}

// ToGenerationRequest 转换为工作流请求，sourcePath 为已解析的源图路径
func (r *VideoRequest) ToGenerationRequest(sourcePath string) *types.GenerationRequest {
	req := &types.GenerationRequest{
		Kind:                   types.KindVideo,
		Campaign:               r.Campaign,
		Brand:                  r.Brand,
		Description:            r.Description,
		VideoType:              r.VideoType,
		Resolution:             r.Resolution,
		AspectRatio:            r.AspectRatio,
		VideoModel:             r.Model,
		AdditionalInstructions: r.AdditionalInstructions,
	}
	if sourcePath != "" {
		req.Kind = types.KindImageToVideo
		req.SourceImagePath = sourcePath
	}
	return req
}

// =============================================================================
// 📤 响应类型
// =============================================================================

// AttemptSummary 单次尝试摘要
type AttemptSummary struct {
	Attempt    int                     `json:"attempt"`
	Filename   string                  `json:"filename,omitempty"`
	Validation *types.ValidationResult `json:"validation,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// RunResponse 一次工作流运行的结果
type RunResponse struct {
	RunID         string                      `json:"run_id"`
	SessionID     string                      `json:"session_id,omitempty"`
	State         string                      `json:"state"`
	Reply         string                      `json:"reply"`
	Clarification string                      `json:"clarification,omitempty"`
	Request       *types.GenerationRequest    `json:"request,omitempty"`
	Artifact      *ArtifactResponse           `json:"artifact,omitempty"`
	Attempts      []AttemptSummary            `json:"attempts"`
	Metadata      *persistence.MetadataRecord `json:"metadata,omitempty"`
	DurationMs    int64                       `json:"duration_ms"`
	Error         string                      `json:"error,omitempty"`
}

// ArtifactResponse 产物信息
type ArtifactResponse struct {
	Filename    string    `json:"filename"`
	Kind        string    `json:"kind,omitempty"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	DownloadURL string    `json:"download_url"`
	// sidecar 元数据，没有时为空
	Metadata *persistence.MetadataRecord `json:"metadata,omitempty"`
}

// SessionResponse 会话快照
type SessionResponse struct {
	SessionID string                   `json:"session_id"`
	Turns     []types.ConversationTurn `json:"turns"`
	Capacity  int                      `json:"capacity"`
}

// BannerTypeResponse 横幅规格
type BannerTypeResponse struct {
	Name        string `json:"name"`
	Dimensions  string `json:"dimensions"`
	Description string `json:"description"`
}

// UsageStats 单个调用方的请求计数
type UsageStats struct {
	User     string `json:"user"`
	Tier     string `json:"tier"`
	Requests int64  `json:"requests"`
	Rejected int64  `json:"rejected"`
}

// StatsResponse 管理统计
type StatsResponse struct {
	Users       []UsageStats            `json:"users"`
	Generations []persistence.KindCount `json:"generations,omitempty"`
	Artifacts   int                     `json:"artifacts"`
	GeneratedAt time.Time               `json:"generated_at"`
}
