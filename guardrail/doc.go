// Copyright (c) GuardFlow Authors.
// Licensed under the MIT License.

/*
Package guardrail 提供可配置的文本内容护栏校验能力。

# 概述

guardrail 聚焦于"在不破坏业务流程的前提下，降低内容风险"。
它将输入/输出文本依次通过一组有序的护栏检查，用于识别并处理：

- 正则模式命中
- 屏蔽词（blocklist）命中
- PII（个人敏感信息）泄露
- 委托给第三方校验器目录的外部校验（见 hub 包）

# 核心接口

  - [Check]：单条护栏检查接口，提供 Run / Name
  - [Registry]：类型键到检查实现的注册表，支持注册、注销与覆盖

# 核心模型

本包围绕 Check 与 Pipeline 展开：

- [Pipeline]：作用域过滤的顺序执行编排器，逐条检查并聚合结果
- [EvaluationResult]：聚合结果，包含最终文本、整体有效性与违规列表

执行语义：

- 按描述符顺序串行执行，后一条检查观察前一条的改写文本
- 单条检查失败不中断循环，始终执行全部符合作用域的护栏
- 请求级超时会记为 validator_timeout 违规，而非静默成功

# 结果与错误

  - [CheckResult]：单条检查结果，包含改写文本、有效性、匹配与违规
  - [Match]：匹配区间（半开区间偏移 + 命中值 + 类别）
  - [Violation]：违规记录（类型、作用域、脱敏参数、错误标签）
  - 错误标签常量：ErrTagMissingPattern / ErrTagNotFound /
    ErrTagRegexCompileError / ErrTagFailed / ErrTagTimeout 等

# 内置检查

- [RegexCheck]：大小写不敏感、多行模式的正则检测，非法模式不会崩溃
- [BlocklistCheck]：整词优先、子串兜底的屏蔽词检测
- [PIICheck]：邮箱、电话、信用卡、IP、URL、API Key 等 PII 检测

内置检测类检查默认仅做观测（不影响整体有效性），可通过描述符
params.enforce 显式开启强制模式。只有委托型检查默认参与有效性判定。

# 扩展方式

你可以通过实现 Check 接口并注册到 Registry 接入自定义规则，例如：

- 行业术语合规校验
- 组织内部敏感词校验
- 多租户隔离策略校验
*/
package guardrail
