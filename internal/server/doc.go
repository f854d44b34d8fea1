// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 API 与 metrics 两个 HTTP 监听的生命周期。

Manager 封装 net/http.Server：Start 非阻塞启动，Run 供 errgroup
使用，在 ctx 结束时按 ShutdownTimeout 优雅关闭。APIConfig 会把
写超时放宽到覆盖单次生成请求的总超时。
*/
package server
