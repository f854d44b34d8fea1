// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
包 image 封装文生图服务（OpenAI DALL-E /v1/images/generations）。

# 核心接口

  - Provider：Generate 与 Name；agent/generation 的 ImageGenerator 只依赖该接口。
  - GenerateRequest / GenerateResponse：prompt、尺寸、质量、风格与返回格式。

上游 HTTP 错误经 providers.MapHTTPError 映射为 *llm.Error，
由调用方转换为 GenerationProviderError。
*/
package image
