// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
包 conversation 维护单个会话的最近对话轮次。

# 概述

Context 是一个容量固定（默认 6 轮，即 3 次往返）的 FIFO 窗口：
追加后从队首淘汰，长度永不超过容量。抽取器通过 Snapshot 读取副本，
用于解析 "it" / "this banner" 之类的指代。

# 会话存储

  - SessionStore：按 session_id 加载 / 保存 / 删除 Context
  - MemoryStore：进程内实现（默认）
  - RedisStore：基于 go-redis 的 JSON 持久化，带 TTL

两种存储都实现 Locker：同一会话同时只允许一轮在处理，RedisStore
使用 SET NX 加 token 校验释放。不同会话之间不共享任何可变状态。
*/
package conversation
