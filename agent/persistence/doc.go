// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
包 persistence 负责生成产物与其元数据的落盘。

  - ArtifactStore / FileStore：输出目录中的产物文件，文件名唯一，写入原子化
  - MetadataRecord：每次成功（或耗尽）运行的胜出产物元数据
  - MetadataStore：SidecarStore（产物旁的 .json）、GormStore（generation_records 表）、
    MultiStore（依次写入多个后端）
*/
package persistence
