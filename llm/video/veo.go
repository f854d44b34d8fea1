package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gpolydatas/marketing-generator/internal/tlsutil"
	"github.com/gpolydatas/marketing-generator/llm"
	"github.com/gpolydatas/marketing-generator/llm/providers"
	"go.uber.org/zap"
)

// VeoProvider 通过 Gemini API 的 predictLongRunning 调用 Veo
type VeoProvider struct {
	cfg    VeoConfig
	client *http.Client
	logger *zap.Logger
}

// NewVeoProvider 创建 Veo 提供者
func NewVeoProvider(cfg VeoConfig, logger *zap.Logger) *VeoProvider {
	def := DefaultVeoConfig()
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
	return &VeoProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", BackendVeo)),
	}
}

func (p *VeoProvider) Name() string { return BackendVeo }

// DownloadHeaders Veo 文件 URI 需要 API key 才能下载
func (p *VeoProvider) DownloadHeaders() map[string]string {
	return map[string]string{"x-goog-api-key": p.cfg.APIKey}
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParams     `json:"parameters"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoParams struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	NegativePrompt  string `json:"negativePrompt,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type veoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons,omitempty"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *VeoProvider) url(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/v1beta/" + strings.TrimLeft(path, "/")
}

func (p *VeoProvider) do(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return providers.TransportError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return providers.MapHTTPError(resp.StatusCode, providers.ReadErrorMessage(resp.Body), p.Name())
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.TransportError(fmt.Errorf("decode veo response: %w", err), p.Name())
	}
	return nil
}

// Submit 提交 predictLongRunning 任务
func (p *VeoProvider) Submit(ctx context.Context, req *GenerateRequest) (*Job, error) {
	model := req.Model
	if model == "" || model == BackendVeo {
		model = p.cfg.Model
	}

	instance := veoInstance{Prompt: req.Prompt}
	if req.HasImage() {
		mt := req.ImageMediaType
		if mt == "" {
			mt = "image/png"
		}
		instance.Image = &veoImage{BytesBase64Encoded: req.Image, MimeType: mt}
	}

	body := veoRequest{
		Instances: []veoInstance{instance},
		Parameters: veoParams{
			AspectRatio:     req.AspectRatio,
			Resolution:      req.Resolution,
			NegativePrompt:  req.NegativePrompt,
			DurationSeconds: req.DurationSeconds,
		},
	}

	var op veoOperation
	if err := p.do(ctx, http.MethodPost, p.url("models/"+model+":predictLongRunning"), body, &op); err != nil {
		p.logger.Warn("veo submit failed", zap.Error(err), zap.String("trace_id", req.TraceID))
		return nil, err
	}
	if op.Name == "" {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    "veo returned no operation name",
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}

	p.logger.Info("veo job submitted",
		zap.String("operation", op.Name),
		zap.Bool("image_to_video", req.HasImage()),
		zap.Int("duration", req.DurationSeconds))
	return &Job{ID: op.Name, Provider: p.Name(), Model: model, DurationSeconds: req.DurationSeconds}, nil
}

// Poll 查询 operation 状态
func (p *VeoProvider) Poll(ctx context.Context, job *Job) (*JobStatus, error) {
	var op veoOperation
	if err := p.do(ctx, http.MethodGet, p.url(job.ID), nil, &op); err != nil {
		return nil, err
	}
	if op.Error != nil {
		return nil, &JobFailedError{Provider: p.Name(), JobID: job.ID, Reason: op.Error.Message}
	}
	if !op.Done {
		return &JobStatus{State: "RUNNING"}, nil
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		reason := "operation finished without video"
		if op.Response != nil && len(op.Response.GenerateVideoResponse.RAIMediaFilteredReasons) > 0 {
			reason = strings.Join(op.Response.GenerateVideoResponse.RAIMediaFilteredReasons, "; ")
		}
		return nil, &JobFailedError{Provider: p.Name(), JobID: job.ID, Reason: reason}
	}
	return &JobStatus{
		Done:     true,
		State:    "SUCCEEDED",
		Progress: 1,
		VideoURL: op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI,
	}, nil
}
