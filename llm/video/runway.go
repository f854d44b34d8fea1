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

// RunwayProvider 调用 Runway ML 任务接口
// API 文档: https://docs.dev.runwayml.com/api/
type RunwayProvider struct {
	cfg    RunwayConfig
	client *http.Client
	logger *zap.Logger
}

// NewRunwayProvider 创建 Runway 提供者
func NewRunwayProvider(cfg RunwayConfig, logger *zap.Logger) *RunwayProvider {
	def := DefaultRunwayConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = def.APIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunwayProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", BackendRunway)),
	}
}

func (p *RunwayProvider) Name() string { return BackendRunway }

// DownloadHeaders Runway 输出为预签名 URL，无需额外请求头
func (p *RunwayProvider) DownloadHeaders() map[string]string { return nil }

type runwayRequest struct {
	Model       string `json:"model"`
	PromptText  string `json:"promptText,omitempty"`
	PromptImage string `json:"promptImage,omitempty"` // data URI
	Ratio       string `json:"ratio,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

type runwayTask struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"` // PENDING, THROTTLED, RUNNING, SUCCEEDED, FAILED, CANCELLED
	Output      []string `json:"output,omitempty"`
	Progress    float64  `json:"progress,omitempty"`
	Failure     string   `json:"failure,omitempty"`
	FailureCode string   `json:"failureCode,omitempty"`
}

// runwayRatio 宽高比转换为 Runway 的像素比
func runwayRatio(aspect string) string {
	switch aspect {
	case "9:16":
		return "720:1280"
	case "1:1":
		return "960:960"
	default:
		return "1280:720"
	}
}

// runwayDuration Runway 仅接受 5 或 10 秒
func runwayDuration(seconds int) int {
	if seconds > 5 {
		return 10
	}
	return 5
}

func (p *RunwayProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	httpReq, err := http.NewRequestWithContext(ctx, method,
		strings.TrimRight(p.cfg.BaseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, p.cfg.APIKey)
	httpReq.Header.Set("X-Runway-Version", p.cfg.APIVersion)

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
		return providers.TransportError(fmt.Errorf("decode runway response: %w", err), p.Name())
	}
	return nil
}

// Submit 提交 image_to_video 或 text_to_video 任务
func (p *RunwayProvider) Submit(ctx context.Context, req *GenerateRequest) (*Job, error) {
	model := req.Model
	if model == "" || model == BackendRunway {
		model = p.cfg.Model
	}
	duration := runwayDuration(req.DurationSeconds)

	body := runwayRequest{
		Model:      model,
		PromptText: req.Prompt,
		Ratio:      runwayRatio(req.AspectRatio),
		Duration:   duration,
	}
	path := "/v1/text_to_video"
	if req.HasImage() {
		mt := req.ImageMediaType
		if mt == "" {
			mt = "image/png"
		}
		body.PromptImage = "data:" + mt + ";base64," + req.Image
		path = "/v1/image_to_video"
	}

	var task runwayTask
	if err := p.do(ctx, http.MethodPost, path, body, &task); err != nil {
		p.logger.Warn("runway submit failed", zap.Error(err), zap.String("trace_id", req.TraceID))
		return nil, err
	}
	if task.ID == "" {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    "runway returned no task id",
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}

	p.logger.Info("runway task submitted",
		zap.String("task_id", task.ID),
		zap.String("endpoint", path),
		zap.Int("duration", duration))
	return &Job{ID: task.ID, Provider: p.Name(), Model: model, DurationSeconds: duration}, nil
}

// Poll 查询 /v1/tasks/{id}
func (p *RunwayProvider) Poll(ctx context.Context, job *Job) (*JobStatus, error) {
	var task runwayTask
	if err := p.do(ctx, http.MethodGet, "/v1/tasks/"+job.ID, nil, &task); err != nil {
		return nil, err
	}

	switch task.Status {
	case "SUCCEEDED":
		if len(task.Output) == 0 {
			return nil, &JobFailedError{Provider: p.Name(), JobID: job.ID, Reason: "task succeeded without output"}
		}
		return &JobStatus{Done: true, State: task.Status, Progress: 1, VideoURL: task.Output[0]}, nil
	case "FAILED", "CANCELLED":
		reason := task.Failure
		if reason == "" {
			reason = strings.ToLower(task.Status)
		}
		if task.FailureCode != "" {
			reason += " (" + task.FailureCode + ")"
		}
		return nil, &JobFailedError{Provider: p.Name(), JobID: job.ID, Reason: reason}
	default:
		return &JobStatus{State: task.Status, Progress: task.Progress}, nil
	}
}
