package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

// JobFailedError 任务在服务端终止（内容过滤、渲染失败等）
type JobFailedError struct {
	Provider string
	JobID    string
	Reason   string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("%s job %s failed: %s", e.Provider, e.JobID, e.Reason)
}

// Poller 提交任务并等待完成
type Poller struct {
	cfg    PollerConfig
	logger *zap.Logger

	// OnPoll 每次轮询后回调（用于指标与测试）
	OnPoll func(job *Job, n int, status *JobStatus)

	newTicker func(d time.Duration) (<-chan time.Time, func())
}

// NewPoller 创建轮询器，非法参数回落到默认值
func NewPoller(cfg PollerConfig, logger *zap.Logger) *Poller {
	def := DefaultPollerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = def.Deadline
	}
	if cfg.MaxPollFailures <= 0 {
		cfg.MaxPollFailures = def.MaxPollFailures
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "video_poller")),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Config 返回生效的轮询参数
func (p *Poller) Config() PollerConfig { return p.cfg }

// Generate 提交任务并轮询直到完成。
// 超过 Deadline 返回 *types.Error(GENERATION_TIMEOUT)；调用方取消返回 ctx.Err()。
func (p *Poller) Generate(ctx context.Context, provider Provider, req *GenerateRequest) (*GenerateResponse, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, p.cfg.Deadline)
	defer cancel()

	job, err := provider.Submit(deadlineCtx, req)
	if err != nil {
		return nil, p.classify(ctx, deadlineCtx, provider.Name(), "", err)
	}

	status, polls, err := p.Wait(ctx, deadlineCtx, provider, job)
	if err != nil {
		return nil, err
	}

	return &GenerateResponse{
		Provider:        provider.Name(),
		Model:           job.Model,
		JobID:           job.ID,
		VideoURL:        status.VideoURL,
		DownloadHeaders: provider.DownloadHeaders(),
		DurationSeconds: job.DurationSeconds,
		Polls:           polls,
		CreatedAt:       time.Now(),
	}, nil
}

// Wait 以固定间隔轮询 job。parent 为调用方 ctx，deadlineCtx 在其上附加了截止时间。
func (p *Poller) Wait(parent, deadlineCtx context.Context, provider Provider, job *Job) (*JobStatus, int, error) {
	tick, stop := p.newTicker(p.cfg.Interval)
	defer stop()

	polls, failures := 0, 0
	for {
		select {
		case <-deadlineCtx.Done():
			return nil, polls, p.classify(parent, deadlineCtx, provider.Name(), job.ID, deadlineCtx.Err())
		case <-tick:
		}

		polls++
		status, err := provider.Poll(deadlineCtx, job)
		if err != nil {
			var failed *JobFailedError
			if errors.As(err, &failed) || deadlineCtx.Err() != nil {
				return nil, polls, p.classify(parent, deadlineCtx, provider.Name(), job.ID, err)
			}
			failures++
			p.logger.Warn("poll failed",
				zap.String("job_id", job.ID),
				zap.Int("consecutive_failures", failures),
				zap.Error(err))
			if failures >= p.cfg.MaxPollFailures {
				return nil, polls, err
			}
			continue
		}
		failures = 0

		if p.OnPoll != nil {
			p.OnPoll(job, polls, status)
		}
		p.logger.Debug("poll",
			zap.String("job_id", job.ID),
			zap.Int("poll", polls),
			zap.String("state", status.State),
			zap.Float64("progress", status.Progress))

		if status.Done {
			return status, polls, nil
		}
	}
}

// classify 区分调用方取消与截止超时
func (p *Poller) classify(parent, deadlineCtx context.Context, provider, jobID string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
		p.logger.Warn("video generation deadline exceeded",
			zap.String("provider", provider),
			zap.String("job_id", jobID),
			zap.Duration("deadline", p.cfg.Deadline))
		return types.NewGenerationTimeoutError(provider, jobID).WithCause(err)
	}
	return err
}
