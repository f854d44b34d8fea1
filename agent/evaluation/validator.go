package evaluation

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/llm/retry"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

// Validator 产物校验接口
type Validator interface {
	Validate(ctx context.Context, artifactPath string, req *types.GenerationRequest) (*types.ValidationResult, error)
}

// VisionValidatorConfig 视觉校验配置
type VisionValidatorConfig struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
	MaxRetries  int           `json:"max_retries"`
}

// DefaultVisionValidatorConfig 返回默认配置
func DefaultVisionValidatorConfig() VisionValidatorConfig {
	return VisionValidatorConfig{
		MaxTokens:  2000,
		Timeout:    90 * time.Second,
		MaxRetries: 2,
	}
}

// VisionValidator 基于视觉模型的横幅评分器
type VisionValidator struct {
	provider llm.Provider
	config   VisionValidatorConfig
	retryer  *retry.Retryer
	logger   *zap.Logger
}

// NewVisionValidator 创建视觉校验器
func NewVisionValidator(provider llm.Provider, config VisionValidatorConfig, logger *zap.Logger) *VisionValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultVisionValidatorConfig()
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	logger = logger.With(zap.String("component", "validator"))

	policy := retry.DefaultPolicy()
	policy.MaxRetries = config.MaxRetries
	return &VisionValidator{
		provider: provider,
		config:   config,
		retryer:  retry.New(policy, logger),
		logger:   logger,
	}
}

// Validate 校验产物。视频类直接返回 manual_review；
// 横幅调用视觉模型，传输或解析失败返回 ValidationProviderError。
func (v *VisionValidator) Validate(ctx context.Context, artifactPath string, req *types.GenerationRequest) (*types.ValidationResult, error) {
	if req == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "generation request is required")
	}
	if req.Kind.IsVideo() {
		return &types.ValidationResult{
			Scores:   map[string]int{},
			Passed:   true,
			Status:   types.ValidationManualReview,
			Feedback: "Video generated successfully. Please review manually.",
		}, nil
	}
	return v.validateBanner(ctx, artifactPath, req)
}

func (v *VisionValidator) validateBanner(ctx context.Context, artifactPath string, req *types.GenerationRequest) (*types.ValidationResult, error) {
	providerName := v.provider.Name()

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, types.NewValidationProviderError(providerName, fmt.Errorf("read artifact: %w", err))
	}
	prompt, err := renderBannerRubric(req)
	if err != nil {
		return nil, types.NewValidationProviderError(providerName, fmt.Errorf("render rubric: %w", err))
	}

	chatReq := &llm.ChatRequest{
		Model: v.config.Model,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: prompt,
			Images: []llm.ImageContent{{
				Type:      "base64",
				Data:      base64.StdEncoding.EncodeToString(data),
				MediaType: http.DetectContentType(data),
			}},
		}},
		MaxTokens:   v.config.MaxTokens,
		Temperature: v.config.Temperature,
		JSONMode:    true,
		Timeout:     v.config.Timeout,
	}

	start := time.Now()
	resp, err := retry.Do(ctx, v.retryer, func(ctx context.Context) (*llm.ChatResponse, error) {
		return v.provider.Completion(ctx, chatReq)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		v.logger.Warn("vision validation call failed",
			zap.String("artifact", filepath.Base(artifactPath)),
			zap.Error(err))
		return nil, types.NewValidationProviderError(providerName, err)
	}

	result, err := parseVerdict(resp.FirstContent(), BannerDimensions)
	if err != nil {
		v.logger.Warn("unparseable validator reply",
			zap.String("artifact", filepath.Base(artifactPath)),
			zap.Error(err))
		return nil, types.NewValidationProviderError(providerName, err)
	}

	v.logger.Info("banner validated",
		zap.String("artifact", filepath.Base(artifactPath)),
		zap.Bool("passed", result.Passed),
		zap.Any("scores", result.Scores),
		zap.Duration("latency", time.Since(start)))
	return result, nil
}
