// Package tlsutil 集中管理出站 HTTP 与 Redis 连接的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件），
// 并为产物下载提供限制重定向的专用客户端。
package tlsutil
