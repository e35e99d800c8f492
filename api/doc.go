// Copyright (c) GuardFlow Authors.
// Licensed under the MIT License.

// Package api 定义 GuardFlow HTTP API 的线上格式类型。
//
// # API 概览
//
// GuardFlow 提供以下 RESTful 端点：
//   - POST /validate — 文本护栏校验（支持 include_logs 查询参数）
//   - GET  /health / /healthz — 健康检查
//   - GET  /ready — 就绪检查（含依赖探测）
//   - GET  /metrics — Prometheus 指标
//
// # 线上格式
//
// ValidateRequest 携带待校验文本、运行时作用域与校验器配置列表；
// 本包负责把线上格式的 ValidatorConfig 转换为领域类型
// types.Guardrail，包括按 UI 展示名推断类型、剥除 pattern
// 外层引号、补默认目录标识。
//
// # 基础 URL
//
// 默认基础 URL：
//
//	http://localhost:8080
package api
