// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
Package retry 为单次外部调用提供指数退避重试。

抽取器的 LLM 调用和生成产物的下载都经由 Retryer 执行；
可重试性由 Classify 根据 llm.Error / types.Error 的 Retryable 标记判定。
*/
package retry
