// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
包 extraction 将自然语言请求转换为结构化的 GenerationRequest。

LLMExtractor 把固定的指令模板与裁剪后的对话上下文交给 LLM 分类，
解析其 JSON 回复，补齐默认值并校验各类型的必填字段。

图生视频的源图解析是确定性的，不采信模型的猜测：

 1. 用户文本中显式的 *.png / *.jpg / *.jpeg 文件名，相对输出目录解析
 2. 否则从最新的对话轮次向前扫描：先看轮次的 Artifact（横幅），再看文本中的横幅文件名
 3. 都没有则返回 MissingRequiredFieldError("source_image_path")
*/
package extraction
