// Copyright (c) GuardFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 GuardFlow HTTP API 的请求处理器实现。

# 概述

handlers 把 HTTP 线上格式与领域管道衔接起来：

  - ValidateHandler：POST /validate，解码 api.ValidateRequest、
    执行护栏管道并回写聚合结果；校验失败返回 422，携带
    message 与完整违规列表，绝不暴露内部堆栈。
  - HealthHandler：/health、/healthz、/ready，就绪检查支持注册
    依赖探测（Redis、远端目录等）。
  - LogCapture：include_logs=true 时的请求级日志捕获 Core，
    把服务端日志附进响应明细，保留最近 200 条。

# 边界语义

仅能靠远端目录解析的护栏在目录不可达时由本层上报
hub_unavailable 违规；管道内部不产生该错误标签。

# 响应约定

统一 JSON 响应经 WriteJSON / WriteError 写出；types.Error 的
错误码按 mapErrorCodeToHTTPStatus 映射到 HTTP 状态码，
护栏违规映射为 422 Unprocessable Entity。
*/
package handlers
