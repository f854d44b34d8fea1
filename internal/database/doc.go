// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 负责打开生成记录所用的 GORM 连接并管理连接池。

# 核心能力

  - Open：按 config.DatabaseConfig 选择 postgres、mysql 或 sqlite
    方言并打开连接。
  - PoolManager：设置连接池参数，后台健康检查，并把打开/空闲连接数
    上报给 StatsRecorder（metrics.Collector）。
*/
package database
