// Copyright (c) marketing-generator Authors.
// Licensed under the MIT License.

/*
Package testutil 提供各包测试共享的辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext
  - 产物目录: OutputDir / AssertFileCount
  - 断言工具: AssertErrorCode / AssertJSONEqual / AssertEventuallyTrue

# 子包

  - testutil/mocks: MockProvider（llm.Provider），支持响应脚本、延迟与错误注入
  - testutil/fixtures: 抽取器与校验器的 JSON 回复样例，PNG 样本

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponses(fixtures.BlackFridayBannerExtraction())
*/
package testutil
