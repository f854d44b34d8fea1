package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/gpolydatas/marketing-generator/agent/evaluation"
	"github.com/gpolydatas/marketing-generator/agent/extraction"
	"github.com/gpolydatas/marketing-generator/agent/generation"
	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MaxAttempts 每次运行的生成次数上限
const MaxAttempts = 3

// State 运行状态
type State string

const (
	StateExtracting State = "extracting"
	StateGenerating State = "generating"
	StateValidating State = "validating"
	StateAccepted   State = "accepted"
	StateExhausted  State = "exhausted"
	StateFailed     State = "failed"
)

// Terminal 是否为终态
func (s State) Terminal() bool {
	switch s {
	case StateAccepted, StateExhausted, StateFailed:
		return true
	}
	return false
}

// Outcome 一次运行的结果
type Outcome struct {
	RunID    string                      `json:"run_id"`
	State    State                       `json:"state"`
	Request  *types.GenerationRequest    `json:"request,omitempty"`
	Winner   *types.AttemptRecord        `json:"winner,omitempty"`
	Attempts []types.AttemptRecord       `json:"attempts"`
	Metadata *persistence.MetadataRecord `json:"metadata,omitempty"`
	// Clarification 抽取失败时向用户提出的问题
	Clarification string        `json:"clarification,omitempty"`
	Reply         string        `json:"reply"`
	Duration      time.Duration `json:"duration"`
	Err           error         `json:"-"`
}

// Artifact 胜出产物的引用；没有胜出者时为 nil
func (o *Outcome) Artifact() *types.ArtifactRef {
	if o == nil || o.Winner == nil || o.Winner.Result == nil {
		return nil
	}
	return &types.ArtifactRef{Kind: o.Winner.Request.Kind, Path: o.Winner.Result.ArtifactPath}
}

// Observer 运行指标回调
type Observer interface {
	RunFinished(kind, state string, attempts int, duration time.Duration)
	StageFinished(stage, kind, outcome, code string, duration time.Duration)
	ValidationRecorded(kind, status string)
	VideoPolled(provider string, polls int)
}

type nopObserver struct{}

func (nopObserver) RunFinished(string, string, int, time.Duration)              {}
func (nopObserver) StageFinished(string, string, string, string, time.Duration) {}
func (nopObserver) ValidationRecorded(string, string)                           {}
func (nopObserver) VideoPolled(string, int)                                     {}

// Workflow 带校验重试的生成工作流，可被多个会话并发使用
type Workflow struct {
	extractor extraction.Extractor
	generator generation.Generator
	validator evaluation.Validator
	store     persistence.ArtifactStore
	metadata  persistence.MetadataStore
	observer  Observer
	tracer    trace.Tracer
	newRunID  func() string
	logger    *zap.Logger
}

// Option 工作流选项
type Option func(*Workflow)

// WithMetadataStore 替换默认的 sidecar 元数据存储
func WithMetadataStore(store persistence.MetadataStore) Option {
	return func(w *Workflow) {
		if store != nil {
			w.metadata = store
		}
	}
}

// WithObserver 设置指标回调
func WithObserver(o Observer) Option {
	return func(w *Workflow) {
		if o != nil {
			w.observer = o
		}
	}
}

// WithTracer 设置 tracer，默认使用全局 TracerProvider
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) {
		if t != nil {
			w.tracer = t
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New 创建工作流
func New(extractor extraction.Extractor, generator generation.Generator, validator evaluation.Validator, store persistence.ArtifactStore, opts ...Option) *Workflow {
	w := &Workflow{
		extractor: extractor,
		generator: generator,
		validator: validator,
		store:     store,
		metadata:  persistence.NewSidecarStore(),
		observer:  nopObserver{},
		tracer:    otel.Tracer("marketing-generator/workflow"),
		newRunID:  func() string { return uuid.NewString() },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "workflow"))
	return w
}
