// Copyright (c) marketing-generator Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 marketing-generator HTTP API 的请求处理器。

# 核心类型

  - GenerateHandler  — 对话式生成（/v1/generate）与结构化横幅/视频生成
  - OutputsHandler   — 产物列表（附 sidecar 元数据）与文件下载
  - SessionHandler   — 会话快照查看与清理
  - AdminHandler     — premium 调用方的用量与生成统计
  - HealthHandler    — 健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）

# 错误处理

WriteError 将 types.Error 的错误码映射为 HTTP 状态；其他错误一律按
INTERNAL_ERROR 返回，不向调用方暴露原因。工作流需要澄清时返回 200，
由 clarification 字段携带问题。

同一会话同时只允许一轮对话，并发的第二个请求返回 409 SESSION_BUSY。
*/
package handlers
