package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/types"
)

// Generator 生成单个产物
type Generator interface {
	Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error)
}

// Router 按 Kind 分发：横幅走 image，视频与图生视频走 video
type Router struct {
	image Generator
	video Generator
}

// NewRouter 创建路由
func NewRouter(image, video Generator) *Router {
	return &Router{image: image, video: video}
}

func (r *Router) Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	if req == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "generation request is required")
	}
	var g Generator
	switch req.Kind {
	case types.KindBanner:
		g = r.image
	case types.KindVideo, types.KindImageToVideo:
		g = r.video
	default:
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unsupported kind %q", req.Kind))
	}
	if g == nil {
		return nil, types.NewError(types.ErrServiceUnavailable, fmt.Sprintf("no generator configured for %s", req.Kind))
	}
	return g.Generate(ctx, req)
}

// timestampLayout 文件名中的时间戳格式
const timestampLayout = "20060102_150405"

func stamp(t time.Time) string { return t.Format(timestampLayout) }

// providerError 将 Provider 层错误转换为 GenerationProviderError；
// 已是 types.Error 或 ctx 错误的原样返回
func providerError(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := types.AsError(err); ok {
		return err
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) && llmErr.Provider != "" {
		provider = llmErr.Provider
	}
	return types.NewGenerationProviderError(provider, err)
}
