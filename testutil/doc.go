// Copyright (c) GuardFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 GuardFlow 各包测试共用的辅助工具。

# 概述

  - 上下文辅助：TestContext、TestContextWithTimeout、CancelledContext
  - 领域断言：AssertViolationTags（违规标签序列）、
    AssertMatchSpans（匹配区间切片一致性）
  - 异步断言：AssertEventuallyTrue、AssertEventuallyEqual、
    WaitFor、WaitForChannel
  - 数据辅助：MustJSON、MustParseJSON、AssertJSONEqual

子包：

  - fixtures — 常用护栏配置与样本文本
  - mocks — 可编排的委托能力与事件 sink 替身
*/
package testutil
