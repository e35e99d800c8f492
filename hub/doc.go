// 版权所有 2024 GuardFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 hub 提供委托型护栏的能力解析、调用与归一化。

# 概述

委托型护栏（regex_match、valid_json、toxic_language 等）不在本地
内联实现，而是解析为一条"委托能力"再调用。本包实现三段式解析
（内置 → 插件 → 远端目录）、保留字段过滤的参数透传，以及对
异构返回形态（元组、字典、裸字符串）的统一归一化。

# 核心类型

  - Capability：委托能力接口，内置实现覆盖正则、JSON、URL、
    有害言论、竞品提及、PII 脱敏与屏蔽词。
  - Resolver：解析器，按别名表与命名候选（snake_case 与
    PascalCase）查找内置能力，再依次尝试插件与远端目录；
    解析只返回命中与否，绝不抛错。
  - Invoker：调用器，组装透传参数并把返回形态归一化为 Outcome。
  - Client：远端目录客户端，带限流与 Redis 清单缓存。
  - HubCheck：guardrail.Check 实现，把解析/调用/归一化串联为
    一条可入管道的检查；on_fail="noop" 时违规被容忍。

# 违规语义

  - 解析不到委托 → validator_not_found
  - 正则型缺少 pattern → validator_missing_pattern
  - 本地正则模式非法 → validator_regex_compile_error
  - 委托判定无效或调用出错 → validator_failed
*/
package hub
