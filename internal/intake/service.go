package intake

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/lead-intake/internal/observability/metrics"
	"github.com/wolfman30/lead-intake/internal/ratelimit"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// ServiceConfig tunes the gates in front of the orchestrator.
type ServiceConfig struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
	// HoneypotField names a form field humans never fill. Empty disables the check.
	HoneypotField string
}

// Service runs a submission through the rate guard, the gates and the
// orchestrator.
type Service struct {
	guard   ratelimit.Guard
	orch    *Orchestrator
	cfg     ServiceConfig
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger
}

// NewService wires a Service.
func NewService(guard ratelimit.Guard, orch *Orchestrator, cfg ServiceConfig, m *metrics.IntakeMetrics, logger *logging.Logger) *Service {
	if guard == nil {
		panic("intake: rate guard required")
	}
	if orch == nil {
		panic("intake: orchestrator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{guard: guard, orch: orch, cfg: cfg, metrics: m, logger: logger}
}

// Admit records an attempt for clientIP. It returns a rejection and false
// when the client has exhausted its window.
func (s *Service) Admit(ctx context.Context, clientIP string) (Result, bool) {
	if s.guard.Check(ctx, clientIP, s.cfg.RateLimitMax, s.cfg.RateLimitWindow) {
		s.logger.Warn("rate limit exceeded", "client_ip", clientIP)
		s.metrics.ObserveRateLimited()
		s.metrics.ObserveSubmission(string(CodeRateLimited))
		return failure(CodeRateLimited, MessageRateLimited), false
	}
	return Result{}, true
}

// Process runs an already admitted submission through the gates and the
// orchestrator. Gate rejections never touch a collaborator.
func (s *Service) Process(ctx context.Context, raw RawSubmission) Result {
	res := s.process(ctx, raw)
	s.metrics.ObserveSubmission(res.Outcome())
	return res
}

func (s *Service) process(ctx context.Context, raw RawSubmission) Result {
	if s.cfg.HoneypotField != "" && fieldString(raw.Fields[s.cfg.HoneypotField]) != "" {
		s.logger.Warn("honeypot triggered", "client_ip", raw.ClientIP)
		return failure(CodeInvalidSubmission, MessageInvalidSubmission)
	}

	outcome := Validate(Normalize(raw))
	if !outcome.Accepted() {
		s.logger.Info("submission rejected", "client_ip", raw.ClientIP, "fields", len(outcome.Errors))
		res := failure(CodeValidationFailed, MessageValidationFailed)
		res.FieldErrors = outcome.Errors
		return res
	}

	if reasons := CheckAttachment(raw.Attachment); len(reasons) > 0 {
		s.logger.Info("attachment rejected", "client_ip", raw.ClientIP, "reasons", reasons)
		return failure(CodeInvalidAttachment, strings.Join(reasons, ", "))
	}

	return s.orch.Run(ctx, outcome.Submission, raw.Attachment)
}

// Submit is Admit followed by Process.
func (s *Service) Submit(ctx context.Context, raw RawSubmission) Result {
	if res, ok := s.Admit(ctx, raw.ClientIP); !ok {
		return res
	}
	return s.Process(ctx, raw)
}
