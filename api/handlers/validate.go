package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/guardflow/api"
	"github.com/BaSui01/guardflow/config"
	"github.com/BaSui01/guardflow/events"
	"github.com/BaSui01/guardflow/guardrail"
	"github.com/BaSui01/guardflow/hub"
	"github.com/BaSui01/guardflow/internal/metrics"
	"github.com/BaSui01/guardflow/types"
)

// =============================================================================
// 🛡️ 文本校验 Handler
// =============================================================================

// ValidateHandler 文本校验处理器。
// 每次请求构造独立管道，使 include_logs 的请求级日志捕获
// 覆盖管道内部日志。
type ValidateHandler struct {
	pipelineConfig guardrail.PipelineConfig
	registry       *guardrail.Registry
	emitter        *events.Emitter
	collector      *metrics.Collector
	resolver       *hub.Resolver
	hubClient      *hub.Client
	limits         config.GuardrailsConfig
	logger         *zap.Logger
}

// ViolationResponse 校验失败响应体
type ViolationResponse struct {
	Message    string                `json:"message"`
	Violations []guardrail.Violation `json:"violations"`
	ServerLogs []string              `json:"server_logs,omitempty"`
}

// NewValidateHandler 创建文本校验处理器
func NewValidateHandler(
	pipelineConfig guardrail.PipelineConfig,
	registry *guardrail.Registry,
	emitter *events.Emitter,
	collector *metrics.Collector,
	resolver *hub.Resolver,
	hubClient *hub.Client,
	limits config.GuardrailsConfig,
	logger *zap.Logger,
) *ValidateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidateHandler{
		pipelineConfig: pipelineConfig,
		registry:       registry,
		emitter:        emitter,
		collector:      collector,
		resolver:       resolver,
		hubClient:      hubClient,
		limits:         limits,
		logger:         logger.With(zap.String("component", "validate_handler")),
	}
}

// HandleValidate 处理 POST /validate 请求
// @Summary 文本护栏校验
// @Description 按作用域依次执行校验器并返回聚合结果
// @Tags 校验
// @Accept json
// @Produce json
// @Param include_logs query bool false "在响应中附带服务端日志"
// @Param request body api.ValidateRequest true "校验请求"
// @Success 200 {object} api.ValidateResponse "校验通过"
// @Failure 400 {object} Response "请求格式错误"
// @Failure 422 {object} ViolationResponse "校验失败"
// @Router /validate [post]
func (h *ValidateHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ValidateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := h.checkLimits(req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	includeLogs, _ := strconv.ParseBool(r.URL.Query().Get("include_logs"))

	logger := h.logger
	var capture *LogCapture
	if includeLogs {
		capture = NewLogCapture(defaultCaptureLimit)
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, capture)
		}))
	}

	text := req.EffectiveText()
	scope := req.EffectiveScope()
	guardrails := req.Guardrails()

	logger.Info("validation request",
		zap.String("scope", string(scope)),
		zap.Int("validators", len(guardrails)),
		zap.Int("text_bytes", len(text)),
		zap.Bool("include_logs", includeLogs),
	)

	// 依赖远端目录且目录不可达的护栏在边界上报 hub_unavailable，
	// 不进入管道
	runnable, boundary := h.splitUnreachable(r, guardrails, logger)

	pipeline := guardrail.NewPipeline(h.pipelineConfig, h.registry, h.emitter, h.collector, logger)
	result, err := pipeline.Evaluate(r.Context(), text, scope, runnable)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "evaluation failed").WithCause(err), h.logger)
		return
	}

	for _, v := range boundary {
		result.Violations = append(result.Violations, v.violation)
		if !v.tolerated {
			result.Valid = false
		}
	}

	if !result.Valid {
		resp := ViolationResponse{
			Message:    "Guardrail validation failed",
			Violations: result.Violations,
		}
		if capture != nil {
			resp.ServerLogs = capture.Entries()
		}
		logger.Info("validation rejected", zap.Int("violations", len(result.Violations)))
		WriteJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	details := map[string]any{
		"valid":      true,
		"violations": result.Violations,
		"executed":   result.Executed,
	}
	if len(result.Metadata) > 0 {
		details["metadata"] = result.Metadata
	}
	if capture != nil {
		details["server_logs"] = capture.Entries()
	}

	WriteJSON(w, http.StatusOK, api.ValidateResponse{
		Text:    result.Text,
		Valid:   true,
		Details: details,
	})
}

// checkLimits 校验请求体上限
func (h *ValidateHandler) checkLimits(req api.ValidateRequest) *types.Error {
	if h.limits.MaxTextBytes > 0 && len(req.EffectiveText()) > h.limits.MaxTextBytes {
		return types.NewError(types.ErrInvalidRequest, "text exceeds size limit").
			WithHTTPStatus(http.StatusBadRequest)
	}
	if h.limits.MaxGuardrails > 0 && len(req.Validators) > h.limits.MaxGuardrails {
		return types.NewError(types.ErrInvalidRequest, "too many validators").
			WithHTTPStatus(http.StatusBadRequest)
	}
	return nil
}

// boundaryViolation 边界上报的违规及其容忍标记
type boundaryViolation struct {
	violation guardrail.Violation
	tolerated bool
}

// splitUnreachable 把护栏分为可执行与仅能靠远端目录解析的两类。
// 后者在目录不可达时转为 hub_unavailable 边界违规。
func (h *ValidateHandler) splitUnreachable(r *http.Request, guardrails []types.Guardrail, logger *zap.Logger) ([]types.Guardrail, []boundaryViolation) {
	if h.resolver == nil {
		return guardrails, nil
	}

	runnable := make([]types.Guardrail, 0, len(guardrails))
	var boundary []boundaryViolation
	hubAvailable := true
	hubProbed := false

	for _, g := range guardrails {
		if !hub.IsDelegate(g) || h.resolver.HasLocal(g) {
			runnable = append(runnable, g)
			continue
		}
		if !hubProbed {
			hubProbed = true
			hubAvailable = h.hubClient != nil && h.hubClient.Available(r.Context())
		}
		if hubAvailable {
			runnable = append(runnable, g)
			continue
		}

		logger.Warn("hub unavailable for remote-only validator",
			zap.String("slug", g.HubSlug()),
		)
		boundary = append(boundary, boundaryViolation{
			violation: guardrail.NewViolation(g, guardrail.ErrTagHubUnavailable),
			tolerated: g.EffectiveOnFail() == types.OnFailNoop,
		})
	}

	return runnable, boundary
}
