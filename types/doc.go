// Copyright (c) GuardFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 GuardFlow 服务的全局共享类型定义。

# 概述

types 是服务最底层的公共包，不依赖任何内部包，为 guardrail、hub、api
等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和错误码均
定义于此，以避免循环依赖。

# 核心类型

  - Guardrail          — 单条护栏配置（类型、作用域、模式、失败策略、扩展参数）
  - GuardrailType      — 护栏类型枚举（regex_match / valid_json / detect_pii 等）
  - GuardrailScope     — 作用域枚举（input / output / both）
  - Error / ErrorCode  — 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - 作用域匹配：GuardrailScope.Matches（both 护栏在任何运行时作用域下生效）
  - 类型键归一化：NormalizeTypeKey（小写化并裁剪点号前缀）
  - 失败策略归一化：Guardrail.EffectiveOnFail（默认 "exception"）
  - 错误工具链：IsRetryable / GetErrorCode
*/
package types
