package handlers

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gpolydatas/marketing-generator/agent/conversation"
	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/api"
	"github.com/gpolydatas/marketing-generator/internal/ctxkeys"
	"github.com/gpolydatas/marketing-generator/types"
	"github.com/gpolydatas/marketing-generator/workflow"
	"go.uber.org/zap"
)

// FilesPrefix 产物下载路由前缀
const FilesPrefix = "/v1/files/"

const (
	maxSessionIDLen = 128
	maxTurnTextLen  = 8000
	// 请求结束后写回会话的时限
	saveTimeout = 5 * time.Second
)

// Runner 工作流入口
type Runner interface {
	Run(ctx context.Context, convo *conversation.Context, text string) *workflow.Outcome
	RunRequest(ctx context.Context, req *types.GenerationRequest) *workflow.Outcome
}

// SessionBackend 会话存储加单会话锁
type SessionBackend interface {
	conversation.SessionStore
	conversation.Locker
}

// =============================================================================
// 🎯 生成 Handler
// =============================================================================

// GenerateHandler 对话式与结构化生成接口
type GenerateHandler struct {
	runner    Runner
	sessions  SessionBackend
	artifacts persistence.ArtifactStore
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGenerateHandler 创建生成 handler；timeout 为 0 时不额外限时
func NewGenerateHandler(runner Runner, sessions SessionBackend, artifacts persistence.ArtifactStore, timeout time.Duration, logger *zap.Logger) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateHandler{
		runner:    runner,
		sessions:  sessions,
		artifacts: artifacts,
		timeout:   timeout,
		logger:    logger.With(zap.String("handler", "generate")),
	}
}

func (h *GenerateHandler) runContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(r.Context(), h.timeout)
	}
	return context.WithCancel(r.Context())
}

// HandleTurn POST /v1/generate
// 一轮自然语言对话：加锁、载入会话、运行工作流、写回会话
func (h *GenerateHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req api.TurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		WriteError(w, r, types.NewMissingFieldError("text"), h.logger)
		return
	}
	if len(req.Text) > maxTurnTextLen {
		WriteError(w, r, types.NewError(types.ErrInvalidRequest, "text is too long").WithField("text"), h.logger)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if len(req.SessionID) > maxSessionIDLen {
		WriteError(w, r, types.NewError(types.ErrInvalidRequest, "session_id is too long").WithField("session_id"), h.logger)
		return
	}

	release, err := h.sessions.TryLock(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionBusy) {
			WriteError(w, r, types.NewError(types.ErrSessionBusy, "a turn is already running for this session"), h.logger)
			return
		}
		WriteError(w, r, types.NewError(types.ErrServiceUnavailable, "session lock unavailable").WithCause(err), h.logger)
		return
	}
	defer release()

	convo, err := h.sessions.Load(r.Context(), req.SessionID)
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrServiceUnavailable, "failed to load session").WithCause(err), h.logger)
		return
	}

	ctx, cancel := h.runContext(r)
	defer cancel()
	ctx = ctxkeys.WithSessionID(ctx, req.SessionID)

	out := h.runner.Run(ctx, convo, req.Text)

	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(r.Context()), saveTimeout)
	defer saveCancel()
	if err := h.sessions.Save(saveCtx, req.SessionID, convo); err != nil {
		h.logger.Warn("failed to save session",
			zap.String("session_id", req.SessionID),
			zap.String("run_id", out.RunID),
			zap.Error(err))
	}

	h.writeOutcome(w, r, out, req.SessionID)
}

// HandleBanner POST /v1/generate/banner
func (h *GenerateHandler) HandleBanner(w http.ResponseWriter, r *http.Request) {
	var req api.BannerRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	genReq := req.ToGenerationRequest()
	if err := requireFields(genReq, "campaign", "brand", "message", "cta"); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	ctx, cancel := h.runContext(r)
	defer cancel()
	h.writeOutcome(w, r, h.runner.RunRequest(ctx, genReq), "")
}

// HandleVideo POST /v1/generate/video
// source_image 指向输出目录中的横幅时走图生视频
func (h *GenerateHandler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	var req api.VideoRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	var sourcePath string
	if req.SourceImage != "" {
		p, err := h.artifacts.Resolve(req.SourceImage)
		if err != nil {
			WriteError(w, r, artifactError(err, req.SourceImage).WithField("source_image"), h.logger)
			return
		}
		sourcePath = p
	}

	genReq := req.ToGenerationRequest(sourcePath)
	if err := requireFields(genReq, "campaign", "brand", "description"); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	ctx, cancel := h.runContext(r)
	defer cancel()
	h.writeOutcome(w, r, h.runner.RunRequest(ctx, genReq), "")
}

func requireFields(req *types.GenerationRequest, names ...string) error {
	fields := req.Fields()
	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			return types.NewMissingFieldError(name)
		}
	}
	return nil
}

// writeOutcome 成功、用尽和需要澄清都按 200 返回，其余失败走错误信封
func (h *GenerateHandler) writeOutcome(w http.ResponseWriter, r *http.Request, out *workflow.Outcome, sessionID string) {
	if out.State == workflow.StateFailed && out.Clarification == "" {
		WriteError(w, r, outcomeError(out.Err), h.logger)
		return
	}
	resp := NewRunResponse(out)
	resp.SessionID = sessionID
	WriteSuccess(w, r, resp)
}

func outcomeError(err error) error {
	switch {
	case err == nil:
		return types.NewError(types.ErrInternalError, "generation failed")
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewError(types.ErrTimeout, "generation did not finish within the request timeout").WithCause(err)
	case errors.Is(err, context.Canceled):
		return types.NewError(types.ErrTimeout, "generation was cancelled").WithCause(err)
	}
	return err
}

// NewRunResponse 将工作流结果转换为 API 响应
func NewRunResponse(out *workflow.Outcome) *api.RunResponse {
	resp := &api.RunResponse{
		RunID:         out.RunID,
		State:         string(out.State),
		Reply:         out.Reply,
		Clarification: out.Clarification,
		Request:       out.Request,
		Metadata:      out.Metadata,
		Attempts:      make([]api.AttemptSummary, 0, len(out.Attempts)),
		DurationMs:    out.Duration.Milliseconds(),
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	for _, a := range out.Attempts {
		s := api.AttemptSummary{Attempt: a.Attempt, Validation: a.Validation}
		if a.Result != nil {
			s.Filename = a.Result.Filename
		}
		if a.Err != nil {
			s.Error = a.Err.Error()
		}
		resp.Attempts = append(resp.Attempts, s)
	}
	if out.Winner != nil && out.Winner.Result != nil {
		res := out.Winner.Result
		art := &api.ArtifactResponse{
			Filename:    res.Filename,
			Size:        res.Bytes,
			Created:     res.CreatedAt,
			DownloadURL: DownloadURL(res.Filename),
			Metadata:    out.Metadata,
		}
		if out.Winner.Request != nil {
			art.Kind = string(out.Winner.Request.Kind)
		}
		resp.Artifact = art
	}
	return resp
}

// DownloadURL 产物的下载路径
func DownloadURL(filename string) string {
	return path.Join(FilesPrefix, filename)
}

func artifactError(err error, name string) *types.Error {
	switch {
	case errors.Is(err, persistence.ErrInvalidName):
		return types.NewError(types.ErrInvalidRequest, "invalid file name").WithCause(err)
	case errors.Is(err, persistence.ErrArtifactNotFound):
		return types.NewError(types.ErrArtifactNotFound, "artifact not found: "+name).WithCause(err)
	}
	return types.NewError(types.ErrStorageFailed, "failed to resolve artifact").WithCause(err)
}
