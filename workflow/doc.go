// Copyright (c) marketing-generator Authors.
// Licensed under the MIT License.

/*
Package workflow 实现带校验重试的生成工作流。

# 概述

一次运行依次经过 Extracting → Generating → Validating，终止于
Accepted、Exhausted 或 Failed。校验未通过时，校验器的建议写入
AdditionalInstructions 后重新生成，最多 MaxAttempts 次。

# 核心类型

  - Workflow — 组合抽取器、生成器、校验器与存储
  - Outcome  — 运行结果：终态、胜出尝试、全部尝试与持久化的元数据
  - State    — 状态机状态
  - Observer — 运行与阶段指标回调，由 metrics.Collector 实现

# 入口

  - Run        — 从一句用户输入开始，写回会话窗口
  - RunRequest — 跳过抽取，直接用结构化请求运行
*/
package workflow
