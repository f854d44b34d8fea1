// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、生成工作流与数据库三个维度。

# 概述

Collector 使用 promauto 注册到默认 Registry，所有指标按 namespace 隔离。
工作流通过 RunFinished、StageFinished、ValidationRecorded 与
VideoPolled 上报，HTTP 中间件通过 RecordHTTPRequest 与
RecordRateLimited 上报。

# 主要能力

  - HTTP 指标：请求总数、耗时、响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 工作流指标：按 kind/state 的运行总数、运行耗时、尝试次数、
    extract/generate/validate 阶段耗时、校验结论、Provider 错误码。
  - 视频指标：每个任务所需的轮询次数。
  - 数据库指标：活跃/空闲连接数 Gauge。
*/
package metrics
