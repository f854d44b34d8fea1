package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/generation"
	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/api"
	"github.com/gpolydatas/marketing-generator/config"
	"github.com/gpolydatas/marketing-generator/internal/ctxkeys"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

const (
	generationCountsKey = "admin:generation_counts"
	generationCountsTTL = 30 * time.Second
)

// UsageSource 按调用方汇总的请求计数
type UsageSource interface {
	Usage() []api.UsageStats
}

// GenerationCounter 按类型统计已保存的生成记录
type GenerationCounter interface {
	CountByKind(ctx context.Context) ([]persistence.KindCount, error)
}

// JSONCache 统计结果缓存
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// AdminHandler 管理统计，仅 premium 可访问
type AdminHandler struct {
	usage     UsageSource
	counter   GenerationCounter
	cache     JSONCache
	artifacts persistence.ArtifactStore
	logger    *zap.Logger
}

// NewAdminHandler counter 与 cache 可为 nil
func NewAdminHandler(usage UsageSource, counter GenerationCounter, cache JSONCache, artifacts persistence.ArtifactStore, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		usage:     usage,
		counter:   counter,
		cache:     cache,
		artifacts: artifacts,
		logger:    logger.With(zap.String("handler", "admin")),
	}
}

// HandleStats GET /v1/admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	p, ok := ctxkeys.PrincipalFrom(r.Context())
	if !ok || p.Tier != config.TierPremium {
		WriteErrorMessage(w, r, types.ErrForbidden, "admin stats require a premium key", h.logger)
		return
	}

	resp := api.StatsResponse{Users: []api.UsageStats{}, GeneratedAt: time.Now().UTC()}
	if h.usage != nil {
		resp.Users = h.usage.Usage()
	}
	if h.artifacts != nil {
		infos, err := h.artifacts.List(r.Context())
		if err != nil {
			WriteError(w, r, types.NewError(types.ErrStorageFailed, "failed to list outputs").WithCause(err), h.logger)
			return
		}
		resp.Artifacts = len(infos)
	}
	resp.Generations = h.generationCounts(r.Context())
	WriteSuccess(w, r, resp)
}

// generationCounts 数据库统计失败时省略该字段
func (h *AdminHandler) generationCounts(ctx context.Context) []persistence.KindCount {
	if h.counter == nil {
		return nil
	}
	var counts []persistence.KindCount
	if h.cache != nil {
		if err := h.cache.GetJSON(ctx, generationCountsKey, &counts); err == nil {
			return counts
		}
	}
	counts, err := h.counter.CountByKind(ctx)
	if err != nil {
		h.logger.Warn("failed to count generations", zap.Error(err))
		return nil
	}
	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, generationCountsKey, counts, generationCountsTTL); err != nil {
			h.logger.Debug("failed to cache generation counts", zap.Error(err))
		}
	}
	return counts
}

// HandleBannerTypes GET /v1/banner-types
func HandleBannerTypes(w http.ResponseWriter, r *http.Request) {
	specs := generation.BannerTypes()
	out := make([]api.BannerTypeResponse, 0, len(specs))
	for _, s := range specs {
		out = append(out, api.BannerTypeResponse{
			Name:        s.Name,
			Dimensions:  s.Dimensions(),
			Description: s.Description,
		})
	}
	WriteSuccess(w, r, out)
}
