// Package tokenizer 统计 token 数，抽取器据此裁剪对话上下文以控制 prompt 长度。
package tokenizer
