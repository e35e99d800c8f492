// Package guardflow provides a top-level convenience entry point for building
// a guardrail validator with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/guardflow"
//
//	v, err := guardflow.New()
//	v, err := guardflow.New(guardflow.WithTimeout(5*time.Second), guardflow.WithLocalFirst(true))
//	result, err := v.Validate(ctx, text, types.ScopeInput, guardrails)
//
// The validator wires the detection checks, the delegate resolver with its
// builtin capabilities, and the evaluation pipeline. For the full HTTP
// service, use cmd/guardflow instead.
package guardflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/guardflow/events"
	"github.com/BaSui01/guardflow/guardrail"
	"github.com/BaSui01/guardflow/hub"
	"github.com/BaSui01/guardflow/types"
)

// Validator bundles a ready-to-use guardrail pipeline.
type Validator struct {
	pipeline *guardrail.Pipeline
	resolver *hub.Resolver
}

// Option configures the validator created by [New].
type Option func(*options)

type options struct {
	logger     *zap.Logger
	config     guardrail.PipelineConfig
	localFirst bool
	client     *hub.Client
	sinks      []events.Sink
	plugins    map[string]hub.Capability
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTimeout bounds total evaluation time per request. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.config.Timeout = timeout }
}

// WithPipelineConfig replaces the whole pipeline configuration.
func WithPipelineConfig(cfg guardrail.PipelineConfig) Option {
	return func(o *options) { o.config = cfg }
}

// WithLocalFirst makes regex-shaped guardrails run locally before delegate
// resolution.
func WithLocalFirst(localFirst bool) Option {
	return func(o *options) { o.localFirst = localFirst }
}

// WithHubClient enables remote catalog resolution through the given client.
func WithHubClient(client *hub.Client) Option {
	return func(o *options) { o.client = client }
}

// WithSink registers an additional validation event sink.
func WithSink(sink events.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sink) }
}

// WithPlugin registers a plugin capability under the given slug.
func WithPlugin(slug string, c hub.Capability) Option {
	return func(o *options) {
		if o.plugins == nil {
			o.plugins = make(map[string]hub.Capability)
		}
		o.plugins[slug] = c
	}
}

// New creates a [Validator] with detection checks and builtin delegate
// capabilities registered.
func New(opts ...Option) (*Validator, error) {
	o := &options{
		logger: zap.NewNop(),
		config: guardrail.DefaultPipelineConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	resolver := hub.NewResolver(o.client, nil, o.logger)
	for slug, c := range o.plugins {
		resolver.RegisterPlugin(slug, c)
	}

	check := hub.NewHubCheck(resolver, hub.NewInvoker(o.logger), o.logger).
		WithLocalFirst(o.localFirst)

	registry := guardrail.NewRegistry(o.logger)
	registry.RegisterDetectionChecks(o.logger)
	hub.RegisterHubChecks(registry, check)

	var emitter *events.Emitter
	if len(o.sinks) > 0 {
		emitter = events.NewEmitter(o.logger, o.sinks...)
	}

	pipeline := guardrail.NewPipeline(o.config, registry, emitter, nil, o.logger)

	return &Validator{pipeline: pipeline, resolver: resolver}, nil
}

// Validate runs the guardrails against text under the given runtime scope.
func (v *Validator) Validate(ctx context.Context, text string, scope types.GuardrailScope, guardrails []types.Guardrail) (*guardrail.EvaluationResult, error) {
	return v.pipeline.Evaluate(ctx, text, scope, guardrails)
}

// Resolver exposes the delegate resolver for plugin registration after
// construction.
func (v *Validator) Resolver() *hub.Resolver {
	return v.resolver
}
