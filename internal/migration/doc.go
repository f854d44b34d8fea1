// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 generation_records 表的 Schema 版本，基于
golang-migrate，内嵌 postgres、mysql 与 sqlite 三种方言的 SQL。

  - DefaultMigrator：Up/Down/Steps/Goto/Force/Version/Status/Info。
  - NewMigratorFromDatabaseConfig：由 config.DatabaseConfig 创建。
  - CLI：`marketinggen migrate <action>` 的格式化输出。
*/
package migration
