package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gpolydatas/marketing-generator/internal/tlsutil"
	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/llm/providers"
	"go.uber.org/zap"
)

// OpenAIProvider 通过 OpenAI DALL-E 生成图像
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIProvider 创建 DALL-E 提供者，空字段使用 DefaultOpenAIConfig
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	def := DefaultOpenAIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", "dalle")),
	}
}

func (p *OpenAIProvider) Name() string { return "dalle" }

type dalleRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type dalleResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// Generate 从文本 prompt 生成图像
func (p *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    "prompt is required",
			HTTPStatus: http.StatusBadRequest,
			Provider:   p.Name(),
		}
	}

	body := dalleRequest{
		Model:          firstNonEmpty(req.Model, p.cfg.Model),
		Prompt:         TruncatePrompt(req.Prompt),
		N:              req.N,
		Size:           firstNonEmpty(req.Size, SizeSquare),
		Quality:        firstNonEmpty(req.Quality, p.cfg.Quality),
		Style:          firstNonEmpty(req.Style, p.cfg.Style),
		ResponseFormat: req.ResponseFormat,
	}
	if body.N == 0 {
		body.N = 1
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/images/generations",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, p.cfg.APIKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, providers.TransportError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		p.logger.Warn("image generation failed",
			zap.Int("status", resp.StatusCode),
			zap.String("size", body.Size),
			zap.String("trace_id", req.TraceID))
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var dResp dalleResponse
	if err := json.NewDecoder(resp.Body).Decode(&dResp); err != nil {
		return nil, providers.TransportError(fmt.Errorf("decode dalle response: %w", err), p.Name())
	}
	if len(dResp.Data) == 0 {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    "dalle returned no images",
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}

	images := make([]ImageData, len(dResp.Data))
	for i, d := range dResp.Data {
		images[i] = ImageData{URL: d.URL, B64JSON: d.B64JSON, RevisedPrompt: d.RevisedPrompt}
	}

	created := time.Now()
	if dResp.Created != 0 {
		created = time.Unix(dResp.Created, 0)
	}
	p.logger.Debug("image generated",
		zap.String("model", body.Model),
		zap.String("size", body.Size),
		zap.Duration("latency", time.Since(start)))

	return &GenerateResponse{
		Provider:  p.Name(),
		Model:     body.Model,
		Images:    images,
		CreatedAt: created,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
