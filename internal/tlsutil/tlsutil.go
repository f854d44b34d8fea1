package tlsutil

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// MaxDownloadRedirects 下载客户端允许的最大重定向次数（CDN 签名链接通常 1-2 跳）。
const MaxDownloadRedirects = 5

// ErrInsecureRedirect 下载被重定向到明文地址。
var ErrInsecureRedirect = errors.New("tlsutil: refusing redirect from https to http")

// DefaultTLSConfig returns a hardened TLS configuration.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// SecureTransport returns an http.Transport with TLS hardening.
// maxIdlePerHost 为 0 时使用 net/http 默认值。
func SecureTransport(maxIdlePerHost int) *http.Transport {
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// SecureHTTPClient 供 LLM / 图片 / 视频 API 调用使用。
func SecureHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: SecureTransport(0),
	}
}

// DownloadClient 供产物下载使用：限制重定向次数，拒绝 https -> http 降级。
// 下载体积较大，超时应由调用方 ctx 控制，timeout 仅作兜底。
func DownloadClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:       timeout,
		Transport:     SecureTransport(4),
		CheckRedirect: checkDownloadRedirect,
	}
}

func checkDownloadRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= MaxDownloadRedirects {
		return fmt.Errorf("tlsutil: stopped after %d redirects", MaxDownloadRedirects)
	}
	if len(via) > 0 && via[len(via)-1].URL.Scheme == "https" && req.URL.Scheme != "https" {
		return ErrInsecureRedirect
	}
	return nil
}

// RedisTLSConfig 为 Redis 连接返回 TLS 配置；enabled 为 false 时返回 nil（明文连接）。
func RedisTLSConfig(enabled bool, serverName string) *tls.Config {
	if !enabled {
		return nil
	}
	cfg := DefaultTLSConfig()
	cfg.ServerName = serverName
	return cfg
}
