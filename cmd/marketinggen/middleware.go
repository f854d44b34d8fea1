package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gpolydatas/marketing-generator/api"
	"github.com/gpolydatas/marketing-generator/api/handlers"
	"github.com/gpolydatas/marketing-generator/config"
	"github.com/gpolydatas/marketing-generator/internal/ctxkeys"
	"github.com/gpolydatas/marketing-generator/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Middleware 类型定义
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个在最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// publicPaths 无需认证与限流的路径
var publicPaths = []string{"/health", "/healthz", "/ready", "/v1/banner-types"}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// Recovery panic 恢复中间件
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"))
					handlers.WriteErrorMessage(w, r, types.ErrInternalError, "internal server error", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID 为每个请求分配 X-Request-ID，客户端已提供时沿用
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
		})
	}
}

// SecurityHeaders 通用安全响应头
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
			next.ServeHTTP(w, r)
		})
	}
}

// CORS 跨域中间件
// allowedOrigins 为空时不设置任何 CORS 头，浏览器会拒绝跨域请求
func CORS(allowedOrigins []string) Middleware {
	originSet := pathSet(allowedOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, allowed := originSet[origin]
			if origin != "" && allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && origin != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger 请求日志中间件
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)
			id, _ := ctxkeys.RequestID(r.Context())
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.StatusCode),
				zap.Int64("bytes", rw.BytesWritten),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", id),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// =============================================================================
// 📊 指标与追踪
// =============================================================================

// HTTPRecorder HTTP 指标记录
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64)
}

// MetricsMiddleware 记录请求耗时、状态与响应大小
func MetricsMiddleware(recorder HTTPRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)
			recorder.RecordHTTPRequest(r.Method, normalizePath(r.URL.Path), rw.StatusCode, time.Since(start), rw.BytesWritten)
		})
	}
}

// normalizePath 将带参数的路由折叠为模板，控制标签基数
//
//	/v1/files/acme_banner.png -> /v1/files/{name}
//	/v1/sessions/abc          -> /v1/sessions/{id}
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, handlers.FilesPrefix):
		return handlers.FilesPrefix + "{name}"
	case strings.HasPrefix(path, "/v1/sessions/"):
		return "/v1/sessions/{id}"
	}
	switch path {
	case "/health", "/healthz", "/ready", "/v1/banner-types", "/v1/generate",
		"/v1/generate/banner", "/v1/generate/video", "/v1/outputs", "/v1/admin/stats":
		return path
	}
	return "other"
}

// OTelTracing 为每个请求创建 server span，并从请求头提取上游 trace 上下文
func OTelTracing() Middleware {
	tracer := otel.Tracer("marketing-generator/http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+normalizePath(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			if id, ok := ctxkeys.RequestID(ctx); ok {
				span.SetAttributes(attribute.String("request_id", id))
			}
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))
			span.SetAttributes(semconv.HTTPResponseStatusCode(rw.StatusCode))
		})
	}
}

// =============================================================================
// 🔐 认证
// =============================================================================

// APIKeyAuth 通过 X-API-Key 识别调用方，并把 {user, tier} 写入 context
func APIKeyAuth(keys []config.APIKeyConfig, skipPaths []string, allowQueryAPIKey bool, logger *zap.Logger) Middleware {
	principals := make(map[string]ctxkeys.Principal, len(keys))
	for _, k := range keys {
		principals[k.Key] = ctxkeys.Principal{User: k.User, Tier: k.Tier}
	}
	skipSet := pathSet(skipPaths)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := skipSet[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("X-API-Key")
			if allowQueryAPIKey && key == "" {
				key = r.URL.Query().Get("api_key")
			}
			p, ok := principals[key]
			if key == "" || !ok {
				handlers.WriteErrorMessage(w, r, types.ErrUnauthorized, "invalid or missing API key", logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithPrincipal(r.Context(), p)))
		})
	}
}

// JWTAuth 校验 Authorization: Bearer 令牌（HS256 / RS256）。
// sub 或 user_id 作为调用方，tier 缺省为 standard。
func JWTAuth(cfg config.JWTConfig, skipPaths []string, logger *zap.Logger) Middleware {
	skipSet := pathSet(skipPaths)

	var rsaKey *rsa.PublicKey
	if cfg.PublicKey != "" {
		if block, _ := pem.Decode([]byte(cfg.PublicKey)); block != nil {
			if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
				rsaKey, _ = pub.(*rsa.PublicKey)
			}
		}
		if rsaKey == nil {
			logger.Warn("failed to parse RSA public key, RS256 verification disabled")
		}
	}
	hmacSecret := []byte(cfg.Secret)

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "RS256"})}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		switch token.Method.Alg() {
		case "HS256":
			if len(hmacSecret) == 0 {
				return nil, fmt.Errorf("HMAC secret not configured")
			}
			return hmacSecret, nil
		case "RS256":
			if rsaKey == nil {
				return nil, fmt.Errorf("RSA public key not configured")
			}
			return rsaKey, nil
		default:
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := skipSet[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenStr == "" {
				handlers.WriteErrorMessage(w, r, types.ErrUnauthorized, "missing or malformed Authorization header", logger)
				return
			}

			token, err := jwt.Parse(tokenStr, keyFunc, parserOpts...)
			if err != nil {
				logger.Debug("JWT validation failed", zap.Error(err))
				handlers.WriteErrorMessage(w, r, types.ErrUnauthorized, "invalid or expired token", logger)
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				handlers.WriteErrorMessage(w, r, types.ErrUnauthorized, "invalid token claims", logger)
				return
			}

			p := ctxkeys.Principal{Tier: config.TierStandard}
			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				p.User = sub
			}
			if userID, ok := claims["user_id"].(string); ok && userID != "" {
				p.User = userID
			}
			if tier, ok := claims["tier"].(string); ok && tier != "" {
				p.Tier = tier
			}
			if p.User == "" {
				handlers.WriteErrorMessage(w, r, types.ErrUnauthorized, "token has no subject", logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithPrincipal(r.Context(), p)))
		})
	}
}

// =============================================================================
// 🚦 分级限流
// =============================================================================

// RateLimitRecorder 限流拒绝指标
type RateLimitRecorder interface {
	RecordRateLimited(tier, window string)
}

type visitor struct {
	tier     string
	minute   *rate.Limiter
	hour     *rate.Limiter
	requests int64
	rejected int64
	lastSeen time.Time
}

// TieredRateLimiter 按调用方分级限流：每分钟与每小时各一个令牌桶。
// 认证关闭时按客户端 IP 计数，使用 standard 等级。
type TieredRateLimiter struct {
	tiers    map[string]config.TierLimit
	recorder RateLimitRecorder
	logger   *zap.Logger

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// NewTieredRateLimiter 创建限流器；recorder 可为 nil
func NewTieredRateLimiter(tiers map[string]config.TierLimit, recorder RateLimitRecorder, logger *zap.Logger) *TieredRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredRateLimiter{
		tiers:    tiers,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "rate_limiter")),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// limitFor 未知等级按 free 处理
func (l *TieredRateLimiter) limitFor(tier string) config.TierLimit {
	if lim, ok := l.tiers[tier]; ok {
		return lim
	}
	return l.tiers[config.TierFree]
}

func newBucket(perWindow int, window time.Duration) *rate.Limiter {
	if perWindow <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(perWindow)), perWindow)
}

// allow 返回被拒绝的窗口名；允许时为空
func (l *TieredRateLimiter) allow(p ctxkeys.Principal) (tier string, window string) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[p.User]
	if !ok || v.tier != p.Tier {
		lim := l.limitFor(p.Tier)
		v = &visitor{
			tier:   p.Tier,
			minute: newBucket(lim.RequestsPerMinute, time.Minute),
			hour:   newBucket(lim.RequestsPerHour, time.Hour),
		}
		l.visitors[p.User] = v
	}
	v.lastSeen = now
	v.requests++

	switch {
	case !v.minute.AllowN(now, 1):
		window = "minute"
	case !v.hour.AllowN(now, 1):
		window = "hour"
	}
	if window != "" {
		v.rejected++
	}
	return v.tier, window
}

// Middleware 限流中间件，需位于认证之后
func (l *TieredRateLimiter) Middleware(skipPaths []string) Middleware {
	skipSet := pathSet(skipPaths)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := skipSet[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := ctxkeys.PrincipalFrom(r.Context())
			if !ok {
				p = ctxkeys.Principal{User: "ip:" + clientIP(r), Tier: config.TierStandard}
			}

			tier, window := l.allow(p)
			if window != "" {
				if l.recorder != nil {
					l.recorder.RecordRateLimited(tier, window)
				}
				retry := time.Minute
				if window == "hour" {
					retry = time.Hour
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
				handlers.WriteError(w, r,
					types.NewError(types.ErrRateLimited, fmt.Sprintf("%s tier limit exceeded for this %s", tier, window)).
						WithRetryable(true),
					l.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Usage 各调用方的请求与拒绝计数，按用户名排序
func (l *TieredRateLimiter) Usage() []api.UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.UsageStats, 0, len(l.visitors))
	for user, v := range l.visitors {
		out = append(out, api.UsageStats{User: user, Tier: v.tier, Requests: v.requests, Rejected: v.rejected})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}

// Cleanup 定期清理长时间未出现的匿名调用方，直到 ctx 结束
func (l *TieredRateLimiter) Cleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.prune(idle)
		}
	}
}

func (l *TieredRateLimiter) prune(idle time.Duration) int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, v := range l.visitors {
		if strings.HasPrefix(key, "ip:") && now.Sub(v.lastSeen) > idle {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
