package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/conversation"
	"github.com/gpolydatas/marketing-generator/agent/evaluation"
	"github.com/gpolydatas/marketing-generator/agent/extraction"
	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/internal/ctxkeys"
	"github.com/gpolydatas/marketing-generator/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// run 单次运行的上下文
type run struct {
	id     string
	start  time.Time
	span   trace.Span
	logger *zap.Logger
	state  State
}

func (r *run) transition(to State, attempt int) {
	r.logger.Info("state transition",
		zap.String("from", string(r.state)),
		zap.String("to", string(to)),
		zap.Int("attempt", attempt))
	r.span.AddEvent("transition", trace.WithAttributes(
		attribute.String("state", string(to)),
		attribute.Int("attempt", attempt)))
	r.state = to
}

// =============================================================================
// 🎯 入口
// =============================================================================

// Run 处理一条用户输入：抽取、生成、校验，并把本轮对话写回 convo。
// 取消时不写入任何轮次。
func (w *Workflow) Run(ctx context.Context, convo *conversation.Context, text string) *Outcome {
	ctx, r := w.begin(ctx)
	defer r.span.End()

	snapshot := convo.Snapshot()
	r.transition(StateExtracting, 0)
	started := time.Now()
	req, err := w.extractor.Extract(ctx, text, snapshot)
	if err != nil {
		w.stage("extract", "", started, err)
		out := &Outcome{RunID: r.id, State: StateFailed, Err: err}
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Err = ctxErr
		} else {
			out.Clarification = extraction.Clarification(err)
		}
		return w.finish(r, out, convo, text)
	}
	w.stage("extract", string(req.Kind), started, nil)
	r.span.SetAttributes(attribute.String("kind", string(req.Kind)))

	return w.finish(r, w.execute(ctx, r, req), convo, text)
}

// RunRequest 跳过抽取，直接运行结构化请求
func (w *Workflow) RunRequest(ctx context.Context, req *types.GenerationRequest) *Outcome {
	ctx, r := w.begin(ctx)
	defer r.span.End()

	if req == nil || !req.Kind.Valid() {
		out := &Outcome{
			RunID: r.id,
			State: StateFailed,
			Err:   types.NewError(types.ErrInvalidRequest, "unknown generation kind").WithField("kind"),
		}
		return w.finish(r, out, nil, "")
	}
	r.span.SetAttributes(attribute.String("kind", string(req.Kind)))
	return w.finish(r, w.execute(ctx, r, req), nil, "")
}

func (w *Workflow) begin(ctx context.Context) (context.Context, *run) {
	id := w.newRunID()
	ctx = ctxkeys.WithRunID(ctx, id)
	ctx, span := w.tracer.Start(ctx, "workflow.run", trace.WithAttributes(attribute.String("run.id", id)))

	logger := w.logger.With(zap.String("run_id", id))
	if reqID, ok := ctxkeys.RequestID(ctx); ok {
		logger = logger.With(zap.String("request_id", reqID))
	}
	if sess, ok := ctxkeys.SessionID(ctx); ok {
		logger = logger.With(zap.String("session_id", sess))
	}
	return ctx, &run{
		id:     id,
		start:  time.Now(),
		span:   span,
		logger: logger,
	}
}

// finish 记录终态；convo 非空时写回用户与代理轮次
func (w *Workflow) finish(r *run, out *Outcome, convo *conversation.Context, text string) *Outcome {
	out.Duration = time.Since(r.start)
	out.Reply = replyText(out)
	r.transition(out.State, len(out.Attempts))

	kind := ""
	if out.Request != nil {
		kind = string(out.Request.Kind)
	}
	w.observer.RunFinished(kind, string(out.State), len(out.Attempts), out.Duration)

	r.span.SetAttributes(
		attribute.String("state", string(out.State)),
		attribute.Int("attempts", len(out.Attempts)))
	if out.Err != nil {
		r.span.RecordError(out.Err)
		r.span.SetStatus(codes.Error, out.Err.Error())
	}

	fields := []zap.Field{
		zap.String("state", string(out.State)),
		zap.Int("attempts", len(out.Attempts)),
		zap.Duration("duration", out.Duration),
	}
	if ref := out.Artifact(); ref != nil {
		fields = append(fields, zap.String("artifact", ref.Path))
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
	}
	r.logger.Info("run finished", fields...)

	if convo != nil && !cancelled(out.Err) {
		convo.Append(types.NewUserTurn(text))
		convo.Append(types.NewAgentTurn(out.Reply, out.Artifact()))
	}
	return out
}

// =============================================================================
// 🔁 生成 / 校验循环
// =============================================================================

func (w *Workflow) execute(ctx context.Context, r *run, req *types.GenerationRequest) *Outcome {
	out := &Outcome{RunID: r.id, Request: req}
	kind := string(req.Kind)
	current := req
	var lastErr error
	// fallback 最近一次已生成且已评分的尝试；只有更新的尝试产出文件后才删除
	fallback := -1
	dropFallback := func() {
		if fallback >= 0 {
			w.discard(r, out.Attempts[fallback].Result.ArtifactPath)
			fallback = -1
		}
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			dropFallback()
			return w.abort(r, out, err, nil)
		}

		actx, span := w.tracer.Start(ctx, "workflow.attempt", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("kind", kind)))
		rec := types.AttemptRecord{Attempt: attempt, Request: current}

		r.transition(StateGenerating, attempt)
		started := time.Now()
		res, err := w.generator.Generate(actx, current)
		w.stage("generate", kind, started, err)
		if err != nil {
			rec.Err = err
			out.Attempts = append(out.Attempts, rec)
			endSpan(span, err)
			if ctx.Err() != nil {
				dropFallback()
				return w.abort(r, out, ctx.Err(), nil)
			}
			if !types.IsGenerationError(err) {
				dropFallback()
				out.State = StateFailed
				out.Err = err
				out.Clarification = extraction.Clarification(err)
				return out
			}
			r.logger.Warn("generation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			continue
		}
		rec.Result = res
		w.observePolls(res)
		dropFallback()
		if ctx.Err() != nil {
			out.Attempts = append(out.Attempts, rec)
			endSpan(span, ctx.Err())
			return w.abort(r, out, ctx.Err(), res)
		}

		r.transition(StateValidating, attempt)
		started = time.Now()
		verdict, err := w.validator.Validate(actx, res.ArtifactPath, current)
		w.stage("validate", kind, started, err)
		if err != nil {
			if ctx.Err() != nil {
				rec.Err = ctx.Err()
				out.Attempts = append(out.Attempts, rec)
				endSpan(span, ctx.Err())
				return w.abort(r, out, ctx.Err(), res)
			}
			// 校验器不可用：放行且不再重试
			r.logger.Warn("validator unavailable, accepting unscored artifact",
				zap.Int("attempt", attempt), zap.Error(err))
			verdict = &types.ValidationResult{
				Scores:   map[string]int{},
				Status:   types.ValidationUnavailable,
				Feedback: err.Error(),
			}
		}
		rec.Validation = verdict
		out.Attempts = append(out.Attempts, rec)
		w.observer.ValidationRecorded(kind, string(verdict.Status))
		span.SetAttributes(attribute.String("validation.status", string(verdict.Status)))
		endSpan(span, nil)

		switch {
		case verdict.Passed || verdict.Status == types.ValidationUnavailable:
			return w.accept(ctx, r, out, len(out.Attempts)-1, StateAccepted)
		case attempt == MaxAttempts:
			return w.accept(ctx, r, out, len(out.Attempts)-1, StateExhausted)
		}

		r.logger.Info("validation failed, regenerating",
			zap.Int("attempt", attempt),
			zap.Any("scores", verdict.Scores))
		fallback = len(out.Attempts) - 1
		current = withFeedback(req, evaluation.Recommendations(verdict))
	}

	// 之后的尝试都没有产出文件：交付最近一次评分未通过的产物
	if fallback >= 0 {
		r.logger.Warn("later attempts failed to generate, delivering last scored artifact",
			zap.Int("attempt", out.Attempts[fallback].Attempt),
			zap.Error(lastErr))
		return w.accept(ctx, r, out, fallback, StateExhausted)
	}
	out.State = StateFailed
	out.Err = lastErr
	return out
}

// accept 以 out.Attempts[idx] 为胜出者并持久化元数据
func (w *Workflow) accept(ctx context.Context, r *run, out *Outcome, idx int, state State) *Outcome {
	winner := &out.Attempts[idx]
	if err := ctx.Err(); err != nil {
		return w.abort(r, out, err, winner.Result)
	}
	out.State = state
	out.Winner = winner

	rec := persistence.NewMetadataRecord(r.id, winner, len(out.Attempts))
	rec.Unvalidated = state == StateExhausted
	rec.QualityUnknown = winner.Validation != nil && winner.Validation.Status == types.ValidationUnavailable

	started := time.Now()
	err := w.metadata.Save(ctx, winner.Result.ArtifactPath, rec)
	w.stage("persist", string(rec.Kind), started, err)
	if err != nil {
		// 产物已生成，元数据写失败不影响结果
		r.logger.Error("failed to persist metadata",
			zap.String("artifact", winner.Result.ArtifactPath),
			zap.Error(err))
	}
	out.Metadata = rec
	return out
}

// abort 取消：删除进行中的产物，不持久化元数据
func (w *Workflow) abort(r *run, out *Outcome, err error, inflight *types.GenerationResult) *Outcome {
	if inflight != nil {
		w.discard(r, inflight.ArtifactPath)
	}
	out.State = StateFailed
	out.Winner = nil
	out.Err = err
	return out
}

func (w *Workflow) discard(r *run, path string) {
	// 删除不应受已取消的 ctx 影响
	if err := w.store.Delete(context.Background(), path); err != nil {
		r.logger.Warn("failed to delete artifact", zap.String("path", path), zap.Error(err))
		return
	}
	r.logger.Debug("artifact discarded", zap.String("path", path))
}

func (w *Workflow) stage(name, kind string, started time.Time, err error) {
	outcome, code := "ok", ""
	if err != nil {
		outcome = "error"
		code = string(types.GetErrorCode(err))
		if code == "" {
			code = string(types.ErrInternalError)
			if cancelled(err) {
				code = "CANCELED"
			}
		}
	}
	w.observer.StageFinished(name, kind, outcome, code, time.Since(started))
}

func (w *Workflow) observePolls(res *types.GenerationResult) {
	raw, ok := res.ProviderMetadata["polls"]
	if !ok {
		return
	}
	if n, err := strconv.Atoi(raw); err == nil {
		w.observer.VideoPolled(res.ProviderMetadata["provider"], n)
	}
}

// withFeedback 基于原始请求生成下一次尝试的请求，建议不跨尝试累积
func withFeedback(req *types.GenerationRequest, recommendations string) *types.GenerationRequest {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(req.AdditionalInstructions); s != "" {
		parts = append(parts, s)
	}
	if recommendations != "" {
		parts = append(parts, recommendations)
	}
	return req.WithAdditionalInstructions(strings.Join(parts, "\n"))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// cancelled 调用方取消；生成超时等业务错误不算
func cancelled(err error) bool {
	if _, ok := types.AsError(err); ok {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
