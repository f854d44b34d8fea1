// Package telemetry 初始化 OpenTelemetry 的 TracerProvider 与 MeterProvider。
// 工作流的运行与尝试 span、HTTP 请求 span 都经由这里注册的全局 Provider 导出；
// 禁用时不创建任何 exporter，全局 Provider 保持 noop。
package telemetry
