package guardrail

import (
	"sync"

	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
)

// Factory 依据护栏配置创建检查实例
type Factory func(g types.Guardrail) Check

// Registry 检查注册表
// 将归一化后的护栏类型键映射到检查工厂，支持注册、注销与覆盖。
// 进程级单例，启动期写入，请求期只读；读写锁保证并发读安全。
type Registry struct {
	factories map[string]Factory
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewRegistry 创建检查注册表
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger.With(zap.String("component", "guardrail_registry")),
	}
}

// Register 注册检查工厂（重复注册覆盖旧值）
func (r *Registry) Register(typeKey string, f Factory) {
	key := types.NormalizeTypeKey(typeKey)
	if key == "" || f == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = f
}

// Unregister 注销检查工厂
func (r *Registry) Unregister(typeKey string) {
	key := types.NormalizeTypeKey(typeKey)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, key)
}

// Get 获取检查工厂
func (r *Registry) Get(typeKey string) (Factory, bool) {
	key := types.NormalizeTypeKey(typeKey)

	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[key]
	return f, ok
}

// Len 返回已注册的类型键数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Create 依据护栏配置创建检查实例。
// 类型未注册时回退为透传检查——评估绝不能仅因类型未注册而失败。
func (r *Registry) Create(g types.Guardrail) Check {
	if f, ok := r.Get(string(g.Type)); ok {
		return f(g)
	}

	r.logger.Debug("no check registered for type, using passthrough",
		zap.String("type", string(g.Type)),
	)
	return passthroughCheck{}
}

// RegisterDetectionChecks 注册内置检测类检查。
// detect_pii → PII 检测，blocklist → 屏蔽词检测。
// 委托型类型（regex_match / valid_json 等）由 hub 包注册。
func (r *Registry) RegisterDetectionChecks(logger *zap.Logger) {
	pii := NewPIICheck(logger)
	blocklist := NewBlocklistCheck(logger)

	r.Register(string(types.TypeDetectPII), func(types.Guardrail) Check { return pii })
	r.Register(string(types.TypeBlocklist), func(types.Guardrail) Check { return blocklist })
}
