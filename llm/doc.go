// 版权所有 2024 marketing-generator Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层。

# 概述

意图抽取与视觉校验都通过 [Provider] 调用托管模型；
图像与视频生成位于 image、video 子包，重试策略位于 retry，
Token 计数位于 tokenizer。

# 核心接口

  - [Provider]：Completion / HealthCheck / Name
  - [Message]：支持随消息附带 base64 或 URL 图片（[ImageContent]）
  - [Error]：统一错误码（LLM_*），携带 HTTP 状态与 Retryable 标记
*/
package llm
