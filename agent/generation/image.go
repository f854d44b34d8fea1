package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/llm/image"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

// ImageGeneratorConfig 横幅生成配置
type ImageGeneratorConfig struct {
	Model   string
	Quality string
	Style   string
}

// DefaultImageGeneratorConfig hd + vivid
func DefaultImageGeneratorConfig() ImageGeneratorConfig {
	return ImageGeneratorConfig{Model: "dall-e-3", Quality: "hd", Style: "vivid"}
}

// ImageGenerator 横幅生成器
type ImageGenerator struct {
	provider   image.Provider
	store      persistence.ArtifactStore
	downloader *Downloader
	config     ImageGeneratorConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewImageGenerator 创建横幅生成器
func NewImageGenerator(provider image.Provider, store persistence.ArtifactStore, downloader *Downloader, config ImageGeneratorConfig, logger *zap.Logger) *ImageGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultImageGeneratorConfig()
	if config.Quality == "" {
		config.Quality = def.Quality
	}
	if config.Style == "" {
		config.Style = def.Style
	}
	if downloader == nil {
		downloader = NewDownloader(DownloaderConfig{}, logger)
	}
	return &ImageGenerator{
		provider:   provider,
		store:      store,
		downloader: downloader,
		config:     config,
		logger:     logger.With(zap.String("component", "image_generator")),
		now:        time.Now,
	}
}

func (g *ImageGenerator) Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	bannerType := req.BannerType
	if bannerType == "" {
		bannerType = DefaultBannerType
	}
	spec, ok := LookupBanner(bannerType)
	if !ok {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown banner type %q", bannerType)).
			WithField("banner_type")
	}

	size := spec.ProviderSize()
	resp, err := g.provider.Generate(ctx, &image.GenerateRequest{
		Prompt:  image.TruncatePrompt(BannerPrompt(req, spec)),
		Model:   g.config.Model,
		N:       1,
		Size:    size,
		Quality: g.config.Quality,
		Style:   g.config.Style,
	})
	if err != nil {
		return nil, providerError(ctx, g.provider.Name(), err)
	}
	if len(resp.Images) == 0 {
		return nil, types.NewGenerationProviderError(g.provider.Name(), fmt.Errorf("no image returned"))
	}
	img := resp.Images[0]

	filename := fmt.Sprintf("banner_%s_%s_%s.png", spec.Name, size, stamp(g.now()))
	var (
		path string
		n    int64
	)
	switch {
	case img.B64JSON != "":
		path, n, err = g.saveBase64(ctx, filename, img.B64JSON)
	case img.URL != "":
		path, n, err = g.downloader.Save(ctx, g.store, img.URL, nil, filename)
	default:
		err = types.NewGenerationProviderError(g.provider.Name(), fmt.Errorf("image has neither url nor b64_json"))
	}
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		"provider": resp.Provider,
		"model":    resp.Model,
		"size":     size,
	}
	if img.RevisedPrompt != "" {
		meta["revised_prompt"] = img.RevisedPrompt
	}
	if img.URL != "" {
		meta["url"] = img.URL
	}

	g.logger.Info("banner generated",
		zap.String("filename", filepath.Base(path)),
		zap.String("banner_type", spec.Name),
		zap.String("size", size),
		zap.Int64("bytes", n))

	return &types.GenerationResult{
		ArtifactPath:     path,
		Filename:         filepath.Base(path),
		ProviderMetadata: meta,
		Size:             size,
		Bytes:            n,
		CreatedAt:        g.now(),
	}, nil
}

func (g *ImageGenerator) saveBase64(ctx context.Context, filename, data string) (string, int64, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", 0, types.NewGenerationProviderError(g.provider.Name(), fmt.Errorf("decode b64_json: %w", err))
	}
	path, n, err := g.store.Create(ctx, filename, bytes.NewReader(raw))
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		return "", 0, fmt.Errorf("store banner: %w", err)
	}
	return path, n, nil
}
