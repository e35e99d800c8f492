package handlers

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// =============================================================================
// 📋 请求级日志捕获
// =============================================================================

// defaultCaptureLimit 单次请求最多保留的日志条数
const defaultCaptureLimit = 200

// LogCapture 是一个把日志条目收进内存的 zapcore.Core，
// 供 include_logs=true 的请求把服务端日志附进响应。
// 超出上限时丢弃最旧的条目。
type LogCapture struct {
	enc   zapcore.Encoder
	limit int

	mu      sync.Mutex
	entries []string
}

// NewLogCapture 创建日志捕获器，limit<=0 时使用默认上限
func NewLogCapture(limit int) *LogCapture {
	if limit <= 0 {
		limit = defaultCaptureLimit
	}
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return &LogCapture{
		enc:   zapcore.NewConsoleEncoder(encCfg),
		limit: limit,
	}
}

// Enabled 实现 zapcore.Core，仅捕获 Info 及以上级别
func (c *LogCapture) Enabled(lvl zapcore.Level) bool {
	return lvl >= zapcore.InfoLevel
}

// With 实现 zapcore.Core，携带字段的子 Core 共享同一缓冲
func (c *LogCapture) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &tee{parent: c, enc: enc}
}

// Check 实现 zapcore.Core
func (c *LogCapture) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write 实现 zapcore.Core
func (c *LogCapture) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.append(c.enc, ent, fields)
}

// Sync 实现 zapcore.Core
func (c *LogCapture) Sync() error { return nil }

// Entries 返回捕获到的日志条目副本
func (c *LogCapture) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *LogCapture) append(enc zapcore.Encoder, ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := enc.EncodeEntry(ent, fields)
	if err != nil {
		// 日志编码失败不能影响请求处理
		return nil
	}
	line := strings.TrimRight(buf.String(), "\n")
	buf.Free()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, line)
	if len(c.entries) > c.limit {
		c.entries = c.entries[len(c.entries)-c.limit:]
	}
	return nil
}

// tee 是 With 派生出的子 Core：持有带字段的编码器，写回父缓冲
type tee struct {
	parent *LogCapture
	enc    zapcore.Encoder
}

func (t *tee) Enabled(lvl zapcore.Level) bool { return t.parent.Enabled(lvl) }

func (t *tee) With(fields []zapcore.Field) zapcore.Core {
	enc := t.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &tee{parent: t.parent, enc: enc}
}

func (t *tee) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if t.Enabled(ent.Level) {
		return ce.AddCore(ent, t)
	}
	return ce
}

func (t *tee) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return t.parent.append(t.enc, ent, fields)
}

func (t *tee) Sync() error { return nil }
