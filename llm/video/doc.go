// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
包 video 封装异步视频生成服务（Google Veo、Runway ML）。

# 概述

两家服务商都是"提交任务 + 轮询状态"模型。Provider 只负责单次 Submit
与单次 Poll；等待逻辑统一由 Poller 实现：

  - 每隔 Interval 轮询一次，直到任务完成、超过 Deadline 或 ctx 取消；
  - 超过 Deadline 返回 types.GenerationTimeoutError；
  - ctx 取消直接返回 ctx.Err()；
  - 连续轮询失败超过 MaxPollFailures 次才放弃，单次网络抖动不会中断任务。

完成后返回视频 URL（Runway）或文件 URI（Veo，下载需携带 DownloadHeaders）。
*/
package video
