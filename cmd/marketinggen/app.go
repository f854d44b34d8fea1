package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/conversation"
	"github.com/gpolydatas/marketing-generator/agent/evaluation"
	"github.com/gpolydatas/marketing-generator/agent/extraction"
	"github.com/gpolydatas/marketing-generator/agent/generation"
	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/api/handlers"
	"github.com/gpolydatas/marketing-generator/config"
	"github.com/gpolydatas/marketing-generator/internal/cache"
	"github.com/gpolydatas/marketing-generator/internal/database"
	"github.com/gpolydatas/marketing-generator/internal/metrics"
	"github.com/gpolydatas/marketing-generator/internal/migration"
	"github.com/gpolydatas/marketing-generator/llm/image"
	"github.com/gpolydatas/marketing-generator/llm/providers/openaicompat"
	"github.com/gpolydatas/marketing-generator/llm/video"
	"github.com/gpolydatas/marketing-generator/workflow"
	"go.uber.org/zap"
)

// metricsNamespace Prometheus 指标前缀
const metricsNamespace = "marketinggen"

// App 持有服务与 generate 命令共用的组件
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	collector *metrics.Collector
	artifacts *persistence.FileStore
	sessions  handlers.SessionBackend
	cache     *cache.Manager
	pool      *database.PoolManager
	records   *persistence.GormStore
	workflow  *workflow.Workflow
}

// NewApp 按配置组装组件。Redis 或数据库不可用时返回错误，不做降级。
// collector 为 nil 时不记录工作流指标
func NewApp(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, collector: collector}

	artifacts, err := persistence.NewFileStore(cfg.Storage.OutputDir, logger)
	if err != nil {
		return nil, err
	}
	a.artifacts = artifacts

	if err := a.initSessions(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initDatabase(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.workflow = a.buildWorkflow()
	return a, nil
}

// initSessions 会话存储；redis 后端同时提供管理统计缓存
func (a *App) initSessions() error {
	window := conversation.DefaultWindow
	switch a.cfg.Session.Backend {
	case "", "memory":
		a.sessions = conversation.NewMemoryStore(window)
		return nil
	case "redis":
		m, err := cache.NewManager(a.cfg.Redis, cache.DefaultOptions(), a.logger)
		if err != nil {
			return fmt.Errorf("session store: %w", err)
		}
		a.cache = m
		a.sessions = conversation.NewRedisStore(m.Client(), conversation.RedisStoreOptions{
			KeyPrefix: a.cfg.Session.KeyPrefix,
			TTL:       a.cfg.Session.TTL,
			Window:    window,
			LockTTL:   a.cfg.Server.RequestTimeout + time.Minute,
		}, a.logger)
		return nil
	default:
		return fmt.Errorf("unsupported session backend: %s", a.cfg.Session.Backend)
	}
}

// initDatabase 元数据入库；未启用时只写 sidecar
func (a *App) initDatabase(ctx context.Context) error {
	dbCfg := a.cfg.Database
	if !dbCfg.Enabled {
		return nil
	}
	if dbCfg.AutoMigrate {
		if err := runMigrations(ctx, dbCfg, a.logger); err != nil {
			return err
		}
	}

	db, err := database.Open(dbCfg, a.logger)
	if err != nil {
		return err
	}
	var recorder database.StatsRecorder
	if a.collector != nil {
		recorder = a.collector
	}
	pool, err := database.NewPoolManager(dbCfg.Driver, db, database.PoolConfigFrom(dbCfg), recorder, a.logger)
	if err != nil {
		return err
	}
	a.pool = pool

	records, err := persistence.NewGormStore(db, false, a.logger)
	if err != nil {
		return err
	}
	a.records = records
	return nil
}

func runMigrations(ctx context.Context, dbCfg config.DatabaseConfig, logger *zap.Logger) error {
	m, err := migration.NewMigratorFromDatabaseConfig(dbCfg, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (a *App) buildWorkflow() *workflow.Workflow {
	cfg := a.cfg

	extractorLLM := openaicompat.New(openaicompat.Config{
		ProviderName: cfg.Extractor.Provider,
		APIKey:       cfg.Extractor.APIKey,
		BaseURL:      cfg.Extractor.BaseURL,
		DefaultModel: cfg.Extractor.Model,
		Timeout:      cfg.Extractor.Timeout,
	}, a.logger)
	extractor := extraction.NewLLMExtractor(extractorLLM, extraction.Config{
		Model:            cfg.Extractor.Model,
		Temperature:      float32(cfg.Extractor.Temperature),
		MaxTokens:        cfg.Extractor.MaxTokens,
		Timeout:          cfg.Extractor.Timeout,
		MaxRetries:       cfg.Extractor.MaxRetries,
		MaxContextTokens: cfg.Extractor.MaxContextTokens,
		OutputDir:        a.artifacts.Dir(),
	}, nil, a.logger)

	validatorLLM := openaicompat.New(openaicompat.Config{
		ProviderName: cfg.Validator.Provider,
		APIKey:       cfg.Validator.APIKey,
		BaseURL:      cfg.Validator.BaseURL,
		DefaultModel: cfg.Validator.Model,
		Timeout:      cfg.Validator.Timeout,
	}, a.logger)
	validator := evaluation.NewVisionValidator(validatorLLM, evaluation.VisionValidatorConfig{
		Model:       cfg.Validator.Model,
		MaxTokens:   cfg.Validator.MaxTokens,
		Temperature: float32(cfg.Validator.Temperature),
		Timeout:     cfg.Validator.Timeout,
		MaxRetries:  cfg.Validator.MaxRetries,
	}, a.logger)

	downloader := generation.NewDownloader(generation.DownloaderConfig{
		Timeout:    cfg.Storage.DownloadTimeout,
		MaxRetries: cfg.Storage.DownloadRetries,
	}, a.logger)

	imageProvider := image.NewOpenAIProvider(image.OpenAIConfig{
		APIKey:  cfg.Image.APIKey,
		BaseURL: cfg.Image.BaseURL,
		Model:   cfg.Image.Model,
		Quality: cfg.Image.Quality,
		Style:   cfg.Image.Style,
		Timeout: cfg.Image.Timeout,
	}, a.logger)
	images := generation.NewImageGenerator(imageProvider, a.artifacts, downloader, generation.ImageGeneratorConfig{
		Model:   cfg.Image.Model,
		Quality: cfg.Image.Quality,
		Style:   cfg.Image.Style,
	}, a.logger)

	var videoProviders []video.Provider
	if cfg.Video.Veo.APIKey != "" {
		videoProviders = append(videoProviders, video.NewVeoProvider(video.VeoConfig{
			APIKey:  cfg.Video.Veo.APIKey,
			BaseURL: cfg.Video.Veo.BaseURL,
			Model:   cfg.Video.Veo.Model,
			Timeout: cfg.Video.Veo.Timeout,
		}, a.logger))
	}
	if cfg.Video.Runway.APIKey != "" {
		runwayCfg := video.DefaultRunwayConfig()
		runwayCfg.APIKey = cfg.Video.Runway.APIKey
		runwayCfg.BaseURL = cfg.Video.Runway.BaseURL
		runwayCfg.Model = cfg.Video.Runway.Model
		runwayCfg.Timeout = cfg.Video.Runway.Timeout
		videoProviders = append(videoProviders, video.NewRunwayProvider(runwayCfg, a.logger))
	}
	if len(videoProviders) == 0 {
		a.logger.Warn("no video provider API key configured, video requests will fail")
	}
	poller := video.NewPoller(video.PollerConfig{
		Interval: cfg.Video.PollInterval,
		Deadline: cfg.Video.GenerationTimeout,
	}, a.logger)
	videos := generation.NewVideoGenerator(videoProviders, cfg.Video.DefaultBackend, poller, a.artifacts, downloader, a.logger)

	metadata := []persistence.MetadataStore{}
	if a.records != nil {
		metadata = append(metadata, a.records)
	}
	opts := []workflow.Option{
		workflow.WithLogger(a.logger),
		workflow.WithMetadataStore(persistence.NewMultiStore(a.logger, persistence.NewSidecarStore(), metadata...)),
	}
	if a.collector != nil {
		opts = append(opts, workflow.WithObserver(a.collector))
	}
	return workflow.New(extractor, generation.NewRouter(images, videos), validator, a.artifacts, opts...)
}

// HealthChecks 依赖的健康检查
func (a *App) HealthChecks() []handlers.HealthCheck {
	checks := []handlers.HealthCheck{handlers.NewStorageCheck(a.artifacts.Dir())}
	if a.cache != nil {
		checks = append(checks, handlers.NewFuncCheck("redis", a.cache.Ping))
	}
	if a.pool != nil {
		checks = append(checks, handlers.NewFuncCheck("database", a.pool.Ping))
	}
	return checks
}

// Close 释放连接，可重复调用
func (a *App) Close() error {
	var errs []error
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
		a.pool = nil
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
		a.cache = nil
	}
	return errors.Join(errs...)
}
