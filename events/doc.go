// Copyright (c) GuardFlow Authors.
// Licensed under the MIT License.

/*
Package events 提供护栏校验的开始/结束事件通知侧信道。

# 概述

校验管道在每条护栏执行前后分别发出 StartEvent / EndEvent。
事件分发是 fire-and-forget 的：接收器出错或（在受限范围内）阻塞
都不会影响管道本身的结果——这是侧信道的硬性约束。

# 核心类型

  - [Sink]：事件接收器接口（OnValidateStart / OnValidateEnd / Name）
  - [Emitter]：并发扇出分发器，接收器错误仅记录日志
  - [ZapSink]：结构化日志接收器
  - [SpanSink]：OpenTelemetry span 事件接收器
*/
package events
