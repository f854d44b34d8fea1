// Copyright (c) marketing-generator Authors.
// Licensed under the MIT License.

/*
Package main 提供 marketing-generator 的可执行入口。

# 概述

cmd/marketinggen 组装抽取、生成、校验工作流，并通过 HTTP API 或命令行
对外提供。配置按 默认值 → YAML → MARKETINGGEN_* 环境变量 的顺序加载。

# 核心类型

  - App                — 工作流、会话存储、产物存储、数据库与 Redis 的组装结果
  - Server             — API 与 Metrics 双端口服务，errgroup 统一生命周期
  - Middleware         — func(http.Handler) http.Handler
  - TieredRateLimiter  — 按主体分级（free/standard/premium）的令牌桶限流

# 子命令

  - serve     启动服务
  - generate  终端内运行一次工作流并输出 JSON
  - migrate   数据库迁移（up/down/reset/steps/goto/force/version/status/info）
  - version / health
*/
package main
