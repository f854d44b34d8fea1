package generation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gpolydatas/marketing-generator/agent/persistence"
	"github.com/gpolydatas/marketing-generator/internal/tlsutil"
	"github.com/gpolydatas/marketing-generator/llm/retry"
	"github.com/gpolydatas/marketing-generator/types"
	"go.uber.org/zap"
)

// Downloader 将 Provider 返回的 URL 下载到产物存储
type Downloader struct {
	client  *http.Client
	retryer *retry.Retryer
	logger  *zap.Logger
}

// DownloaderConfig 下载配置
type DownloaderConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// NewDownloader 创建下载器；重定向只允许 https
func NewDownloader(cfg DownloaderConfig, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	if cfg.RetryDelay > 0 {
		policy.InitialDelay = cfg.RetryDelay
	}
	logger = logger.With(zap.String("component", "downloader"))
	return &Downloader{
		client:  tlsutil.DownloadClient(cfg.Timeout),
		retryer: retry.New(policy, logger),
		logger:  logger,
	}
}

type statusError struct {
	status int
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.status) }

// Save 下载 url 并写入 store；失败统一返回 DownloadError，取消返回 ctx 错误
func (d *Downloader) Save(ctx context.Context, store persistence.ArtifactStore, url string, headers map[string]string, filename string) (string, int64, error) {
	type saved struct {
		path string
		n    int64
	}
	out, err := retry.Do(ctx, d.retryer, func(ctx context.Context) (saved, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return saved{}, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := d.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return saved{}, ctx.Err()
			}
			return saved{}, retry.WrapRetryable(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			se := &statusError{status: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return saved{}, retry.WrapRetryable(se)
			}
			return saved{}, se
		}
		path, n, err := store.Create(ctx, filename, resp.Body)
		if err != nil {
			if ctx.Err() != nil {
				return saved{}, ctx.Err()
			}
			return saved{}, retry.WrapRetryable(err)
		}
		return saved{path: path, n: n}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		d.logger.Warn("download failed", zap.String("filename", filename), zap.Error(err))
		return "", 0, types.NewDownloadError(redact(url), err)
	}
	return out.path, out.n, nil
}

// redact 去掉签名 URL 的查询串
func redact(url string) string {
	base, _, _ := strings.Cut(url, "?")
	return base
}
