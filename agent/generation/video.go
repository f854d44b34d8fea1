package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/llm/video"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

// 视频默认参数
const (
	DefaultResolution  = "720p"
	DefaultAspectRatio = "16:9"
)

// VideoGenerator 文本生成视频 / 图生视频
type VideoGenerator struct {
	providers      map[string]video.Provider
	defaultBackend string
	poller         *video.Poller
	store          persistence.ArtifactStore
	downloader     *Downloader
	logger         *zap.Logger
	now            func() time.Time
}

// NewVideoGenerator 创建视频生成器；defaultBackend 不在 providers 中时取名称排序后的第一个
func NewVideoGenerator(providers []video.Provider, defaultBackend string, poller *video.Poller, store persistence.ArtifactStore, downloader *Downloader, logger *zap.Logger) *VideoGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poller == nil {
		poller = video.NewPoller(video.DefaultPollerConfig(), logger)
	}
	if downloader == nil {
		downloader = NewDownloader(DownloaderConfig{}, logger)
	}
	byName := make(map[string]video.Provider, len(providers))
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		byName[p.Name()] = p
		names = append(names, p.Name())
	}
	sort.Strings(names)
	if _, ok := byName[defaultBackend]; !ok && len(names) > 0 {
		defaultBackend = names[0]
	}
	return &VideoGenerator{
		providers:      byName,
		defaultBackend: defaultBackend,
		poller:         poller,
		store:          store,
		downloader:     downloader,
		logger:         logger.With(zap.String("component", "video_generator")),
		now:            time.Now,
	}
}

// Backends 已配置的后端名称
func (g *VideoGenerator) Backends() []string {
	out := make([]string, 0, len(g.providers))
	for name := range g.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (g *VideoGenerator) backend(model string) (video.Provider, error) {
	if p, ok := g.providers[strings.ToLower(strings.TrimSpace(model))]; ok {
		return p, nil
	}
	if p, ok := g.providers[g.defaultBackend]; ok {
		return p, nil
	}
	return nil, types.NewError(types.ErrServiceUnavailable, "no video provider configured")
}

func (g *VideoGenerator) Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	videoType := req.VideoType
	if videoType == "" {
		videoType = DefaultVideoType
	}
	spec, ok := LookupVideo(videoType)
	if !ok {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown video type %q", videoType)).
			WithField("video_type")
	}
	provider, err := g.backend(req.VideoModel)
	if err != nil {
		return nil, err
	}

	vreq := &video.GenerateRequest{
		Prompt:          VideoPrompt(req, spec),
		DurationSeconds: spec.DurationSeconds,
		AspectRatio:     orDefault(req.AspectRatio, DefaultAspectRatio),
		Resolution:      orDefault(req.Resolution, DefaultResolution),
	}
	source := "text"
	if req.Kind == types.KindImageToVideo {
		if req.SourceImagePath == "" {
			return nil, types.NewMissingFieldError("source_image_path")
		}
		data, err := os.ReadFile(req.SourceImagePath)
		if err != nil {
			return nil, types.NewMissingFieldError("source_image_path").WithCause(err)
		}
		vreq.Image = base64.StdEncoding.EncodeToString(data)
		vreq.ImageMediaType = http.DetectContentType(data)
		source = "image"
	}

	g.logger.Info("submitting video job",
		zap.String("backend", provider.Name()),
		zap.String("video_type", spec.Name),
		zap.String("source", source))

	resp, err := g.poller.Generate(ctx, provider, vreq)
	if err != nil {
		return nil, providerError(ctx, provider.Name(), err)
	}
	if resp.VideoURL == "" {
		return nil, types.NewGenerationProviderError(provider.Name(), fmt.Errorf("job %s finished without a video", resp.JobID))
	}

	filename := fmt.Sprintf("video_%s_%ds_%s_%s.mp4", spec.Name, spec.DurationSeconds, source, stamp(g.now()))
	path, n, err := g.downloader.Save(ctx, g.store, resp.VideoURL, resp.DownloadHeaders, filename)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		"provider":  resp.Provider,
		"model":     resp.Model,
		"job_id":    resp.JobID,
		"polls":     strconv.Itoa(resp.Polls),
		"video_url": redact(resp.VideoURL),
	}
	if source == "image" {
		meta["source_image"] = filepath.Base(req.SourceImagePath)
	}

	g.logger.Info("video generated",
		zap.String("filename", filepath.Base(path)),
		zap.String("backend", provider.Name()),
		zap.Int("polls", resp.Polls),
		zap.Int64("bytes", n))

	return &types.GenerationResult{
		ArtifactPath:     path,
		Filename:         filepath.Base(path),
		ProviderMetadata: meta,
		DurationSeconds:  spec.DurationSeconds,
		Bytes:            n,
		CreatedAt:        g.now(),
	}, nil
}
