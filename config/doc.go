// Package config 提供 marketing-generator 的配置管理功能。
//
// 支持从 YAML 文件与环境变量（前缀 MARKETINGGEN）加载配置，
// 并提供分级 API Key 解析与配置校验。
package config
