package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gpolydatas/marketing-generator/llm/image"
	"github.com/gpolydatas/marketing-generator/llm/video"
)

// --- ImageProvider ---

// ImageProvider 是 image.Provider 的模拟实现
type ImageProvider struct {
	mu       sync.Mutex
	url      string
	b64      string
	revised  string
	errQueue []error
	calls    []*image.GenerateRequest
}

// NewImageProvider 创建返回固定 URL 的 ImageProvider
func NewImageProvider(url string) *ImageProvider {
	return &ImageProvider{url: url, revised: "revised prompt"}
}

// WithB64 改为返回 b64_json
func (m *ImageProvider) WithB64(data string) *ImageProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url, m.b64 = "", data
	return m
}

// WithErrors 前 N 次调用依次返回给定错误（nil 表示成功）
func (m *ImageProvider) WithErrors(errs ...error) *ImageProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errQueue = append(m.errQueue, errs...)
	return m
}

func (m *ImageProvider) Name() string { return "mock-image" }

func (m *ImageProvider) Generate(ctx context.Context, req *image.GenerateRequest) (*image.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.errQueue) > 0 {
		err := m.errQueue[0]
		m.errQueue = m.errQueue[1:]
		if err != nil {
			return nil, err
		}
	}
	return &image.GenerateResponse{
		Provider:  m.Name(),
		Model:     "dall-e-3",
		Images:    []image.ImageData{{URL: m.url, B64JSON: m.b64, RevisedPrompt: m.revised}},
		CreatedAt: time.Now(),
	}, nil
}

// Calls 返回所有请求
func (m *ImageProvider) Calls() []*image.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*image.GenerateRequest(nil), m.calls...)
}

// CallCount 调用次数
func (m *ImageProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// --- VideoProvider ---

// VideoProvider 是 video.Provider 的模拟实现，第 PollsUntilDone 次轮询完成
type VideoProvider struct {
	mu             sync.Mutex
	name           string
	pollsUntilDone int
	videoURL       string
	submitErr      error
	failReason     string
	submits        []*video.GenerateRequest
	polls          map[string]int
}

// NewVideoProvider 创建在第 pollsUntilDone 次轮询时返回 videoURL 的 VideoProvider
func NewVideoProvider(name, videoURL string, pollsUntilDone int) *VideoProvider {
	if pollsUntilDone <= 0 {
		pollsUntilDone = 1
	}
	return &VideoProvider{name: name, videoURL: videoURL, pollsUntilDone: pollsUntilDone, polls: map[string]int{}}
}

// WithSubmitError Submit 返回错误
func (m *VideoProvider) WithSubmitError(err error) *VideoProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
	return m
}

// WithFailure 任务在完成时失败
func (m *VideoProvider) WithFailure(reason string) *VideoProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReason = reason
	return m
}

// WithNeverDone 任务永不完成（用于超时与取消测试）
func (m *VideoProvider) WithNeverDone() *VideoProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollsUntilDone = int(^uint(0) >> 1)
	return m
}

func (m *VideoProvider) Name() string { return m.name }

func (m *VideoProvider) DownloadHeaders() map[string]string {
	return map[string]string{"x-mock-key": m.name}
}

func (m *VideoProvider) Submit(ctx context.Context, req *video.GenerateRequest) (*video.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, req)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &video.Job{
		ID:              fmt.Sprintf("%s-job-%d", m.name, len(m.submits)),
		Provider:        m.name,
		Model:           m.name + "-model",
		DurationSeconds: req.DurationSeconds,
	}, nil
}

func (m *VideoProvider) Poll(ctx context.Context, job *video.Job) (*video.JobStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[job.ID]++
	if m.polls[job.ID] < m.pollsUntilDone {
		return &video.JobStatus{State: "RUNNING"}, nil
	}
	if m.failReason != "" {
		return nil, &video.JobFailedError{Provider: m.name, JobID: job.ID, Reason: m.failReason}
	}
	return &video.JobStatus{Done: true, State: "SUCCEEDED", VideoURL: m.videoURL, Progress: 1}, nil
}

// Submits 返回所有提交的请求
func (m *VideoProvider) Submits() []*video.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*video.GenerateRequest(nil), m.submits...)
}

// Polls 返回某个任务的轮询次数
func (m *VideoProvider) Polls(jobID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[jobID]
}
