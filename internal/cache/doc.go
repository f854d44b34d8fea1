// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 管理进程共享的 Redis 连接。

# 概述

Manager 由 config.RedisConfig 构建，启动时 Ping 校验连通性，后台定期
健康检查。会话存储通过 Client 复用同一连接池；管理端统计接口用
GetJSON/SetJSON 做短期缓存；健康检查接口调用 Ping；连接池状态经
PoolStats 上报为数据库连接指标。

# 错误语义

未命中返回 ErrCacheMiss；关闭后的调用返回 ErrClosed。
*/
package cache
