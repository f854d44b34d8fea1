package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/generation"
	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/llm/retry"
	"github.com/gpolydatas/marketing-generator/llm/tokenizer"
	"github.com/gpolydatas/marketing-generator/llm/video"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

// MinConfidence 低于该置信度视为意图不明
const MinConfidence = 0.5

// DefaultAnimationDescription 图生视频未描述动作时的默认值
const DefaultAnimationDescription = "Cinematic slow zoom with dynamic lighting"

// Extractor 意图与参数抽取
type Extractor interface {
	Extract(ctx context.Context, text string, snapshot []types.ConversationTurn) (*types.GenerationRequest, error)
}

// Config 抽取器配置
type Config struct {
	Model            string
	Temperature      float32
	MaxTokens        int
	Timeout          time.Duration
	MaxRetries       int
	MaxContextTokens int
	// OutputDir 显式文件名的解析目录
	OutputDir string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxTokens:        800,
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		MaxContextTokens: 2000,
		OutputDir:        "outputs",
	}
}

// LLMExtractor 基于 LLM 的抽取器
type LLMExtractor struct {
	provider llm.Provider
	config   Config
	counter  tokenizer.Counter
	retryer  *retry.Retryer
	logger   *zap.Logger
}

// NewLLMExtractor 创建抽取器；counter 为空时按模型选择分词器
func NewLLMExtractor(provider llm.Provider, config Config, counter tokenizer.Counter, logger *zap.Logger) *LLMExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.OutputDir == "" {
		config.OutputDir = def.OutputDir
	}
	logger = logger.With(zap.String("component", "extractor"))
	if counter == nil {
		counter = tokenizer.ForModel(config.Model, logger)
	}
	policy := retry.DefaultPolicy()
	policy.MaxRetries = config.MaxRetries
	return &LLMExtractor{
		provider: provider,
		config:   config,
		counter:  counter,
		retryer:  retry.New(policy, logger),
		logger:   logger,
	}
}

// reply 模型回复
type reply struct {
	Kind        string   `json:"kind"`
	Confidence  *float64 `json:"confidence"`
	Campaign    string   `json:"campaign"`
	Brand       string   `json:"brand"`
	Message     string   `json:"message"`
	CTA         string   `json:"cta"`
	BannerType  string   `json:"banner_type"`
	VideoType   string   `json:"video_type"`
	Description string   `json:"description"`
	Resolution  string   `json:"resolution"`
	AspectRatio string   `json:"aspect_ratio"`
	Model       string   `json:"model"`
	SourceImage string   `json:"source_image"`
}

// Extract 抽取结构化请求
func (e *LLMExtractor) Extract(ctx context.Context, text string, snapshot []types.ConversationTurn) (*types.GenerationRequest, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.NewAmbiguousIntentError("empty request")
	}

	history, dropped := renderContext(e.counter, snapshot, e.config.MaxContextTokens)
	if dropped > 0 {
		e.logger.Debug("context trimmed to token budget",
			zap.Int("dropped_turns", dropped),
			zap.Int("budget", e.config.MaxContextTokens),
			zap.String("tokenizer", e.counter.Name()))
	}

	chatReq := &llm.ChatRequest{
		Model: e.config.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: instructionPrompt},
			{Role: llm.RoleUser, Content: userMessage(text, history)},
		},
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
		JSONMode:    true,
		Timeout:     e.config.Timeout,
	}

	resp, err := retry.Do(ctx, e.retryer, func(ctx context.Context) (*llm.ChatResponse, error) {
		return e.provider.Completion(ctx, chatReq)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("extraction call failed", zap.Error(err))
		return nil, types.NewAmbiguousIntentError("could not classify the request").WithCause(err)
	}

	r, err := parseReply(resp.FirstContent())
	if err != nil {
		e.logger.Warn("unparseable extraction reply", zap.Error(err))
		return nil, types.NewAmbiguousIntentError("could not classify the request").WithCause(err)
	}

	req, err := e.build(r, text, snapshot)
	if err != nil {
		return nil, err
	}
	e.logger.Info("request extracted",
		zap.String("kind", string(req.Kind)),
		zap.Any("fields", req.Fields()))
	return req, nil
}

func parseReply(content string) (*reply, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var r reply
	if err := json.Unmarshal([]byte(content[start:end+1]), &r); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return &r, nil
}

// build 校验置信度、补齐默认值并检查必填字段
func (e *LLMExtractor) build(r *reply, text string, snapshot []types.ConversationTurn) (*types.GenerationRequest, error) {
	if strings.TrimSpace(r.Kind) == "" {
		return nil, types.NewAmbiguousIntentError("request kind is unclear")
	}
	kind, err := types.ParseKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return nil, types.NewAmbiguousIntentError("request kind is unclear").WithCause(err)
	}
	if r.Confidence != nil && *r.Confidence < MinConfidence {
		return nil, types.NewAmbiguousIntentError(fmt.Sprintf("low confidence (%.2f) for %s", *r.Confidence, kind))
	}
	// 文本中出现图片文件名的视频请求即为图生视频
	if kind == types.KindVideo && ExplicitImage(text) != "" {
		kind = types.KindImageToVideo
	}

	req := &types.GenerationRequest{
		Kind:     kind,
		Campaign: strings.TrimSpace(r.Campaign),
		Brand:    strings.TrimSpace(r.Brand),
		Message:  strings.TrimSpace(r.Message),
		CTA:      strings.TrimSpace(r.CTA),
	}

	switch kind {
	case types.KindBanner:
		req.BannerType = normalizeBannerType(r.BannerType)
		for _, f := range []struct{ name, value string }{
			{"brand", req.Brand}, {"message", req.Message}, {"cta", req.CTA},
		} {
			if f.value == "" {
				return nil, types.NewMissingFieldError(f.name)
			}
		}
		return req, nil

	case types.KindVideo, types.KindImageToVideo:
		req.Description = strings.TrimSpace(r.Description)
		req.Resolution = orDefault(strings.ToLower(strings.TrimSpace(r.Resolution)), generation.DefaultResolution)
		req.AspectRatio = orDefault(strings.TrimSpace(r.AspectRatio), generation.DefaultAspectRatio)
		req.VideoModel = DetectVideoModel(text, r.Model)
		req.VideoType = strings.ToLower(strings.TrimSpace(r.VideoType))
		if req.VideoType == "" {
			req.VideoType = generation.DefaultVideoType
		}
		if _, ok := generation.LookupVideo(req.VideoType); !ok {
			return nil, types.NewMissingFieldError("video_type")
		}

		if kind == types.KindVideo {
			if req.Description == "" {
				return nil, types.NewMissingFieldError("description")
			}
			return req, nil
		}

		if req.Description == "" {
			req.Description = DefaultAnimationDescription
		}
		source := ResolveSourceImage(text, snapshot, e.config.OutputDir)
		if source == "" {
			return nil, types.NewMissingFieldError("source_image_path")
		}
		if _, err := os.Stat(source); err != nil {
			return nil, types.NewMissingFieldError("source_image_path").
				WithCause(fmt.Errorf("source image %s: %w", filepath.Base(source), err))
		}
		req.SourceImagePath = source
		return req, nil
	}
	return nil, types.NewAmbiguousIntentError("request kind is unclear")
}

func normalizeBannerType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := generation.LookupBanner(s); ok {
		return s
	}
	return generation.DefaultBannerType
}

// DetectVideoModel 用户文本中的显式选择优先，其次采用模型回复，默认 veo
func DetectVideoModel(text, suggested string) string {
	lower := strings.ToLower(text)
	for _, kw := range []string{"runway", "gen-3", "gen-4", "gen3", "gen4"} {
		if strings.Contains(lower, kw) {
			return video.BackendRunway
		}
	}
	if strings.Contains(lower, "veo") {
		return video.BackendVeo
	}
	switch strings.ToLower(strings.TrimSpace(suggested)) {
	case video.BackendRunway, "runwayml":
		return video.BackendRunway
	}
	return video.BackendVeo
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
