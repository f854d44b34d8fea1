// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
包 generation 调用图像 / 视频 Provider 生成营销素材并写入产物存储。

Router 按 Kind 分发到两个实现：

  - ImageGenerator：横幅（DALL-E），下载 URL 或解码 b64_json
  - VideoGenerator：文本生成视频与图生视频（Veo / Runway），提交后轮询

每次 Generate 恰好写入一个产物文件。Provider 层的 llm.Error 在此转换为
GenerationProviderError / DownloadError / GenerationTimeoutError。
*/
package generation
