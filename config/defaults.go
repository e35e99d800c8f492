// =============================================================================
// 📦 GuardFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Guardrails: DefaultGuardrailsConfig(),
		Hub:        DefaultHubConfig(),
		Redis:      DefaultRedisConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultGuardrailsConfig 返回默认护栏评估配置
func DefaultGuardrailsConfig() GuardrailsConfig {
	return GuardrailsConfig{
		Timeout:       30 * time.Second,
		UseLocalFirst: false,
		MaxGuardrails: 64,
		MaxTextBytes:  1 << 20, // 1 MiB
	}
}

// DefaultHubConfig 返回默认远端目录配置
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BaseURL:         "",
		APIKey:          "",
		Timeout:         10 * time.Second,
		RateLimit:       10,
		RateBurst:       20,
		ManifestTTL:     10 * time.Minute,
		AvailabilityTTL: 30 * time.Second,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "guardflow",
		SampleRate:   0.1,
	}
}
