// Copyright (c) marketing-generator Authors.
// Licensed under the MIT License.

/*
Package types 提供生成管线的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、workflow、llm、
api 等上层模块提供统一的类型契约。

# 核心类型

  - Kind              — 生成请求类型（banner / video / image_to_video）
  - GenerationRequest — 抽取器产出的结构化生成命令
  - GenerationResult  — 生成器写入的单个产物
  - ValidationResult  — 评分结果，Status 区分自动通过、人工复核与校验器不可用
  - AttemptRecord     — 一次生成/校验循环
  - ConversationTurn  — 会话中的一条不可变记录
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Field 标记
*/
package types
