package bootstrap

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/lead-intake/internal/config"
	"github.com/wolfman30/lead-intake/internal/intake"
	"github.com/wolfman30/lead-intake/internal/notify"
	"github.com/wolfman30/lead-intake/internal/observability/metrics"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// Runtime is a fully wired intake service and the resources it holds.
type Runtime struct {
	Service *intake.Service
	Handler *intake.Handler
	Metrics *metrics.IntakeMetrics
	closers []func()
}

// Close releases pooled connections in reverse order of acquisition.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// BuildIntake wires every collaborator named by cfg into an intake service.
// reg may be nil to skip metrics.
func BuildIntake(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, reg prometheus.Registerer, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{}
	if reg != nil {
		rt.Metrics = metrics.NewIntakeMetrics(reg)
	}

	store, closeStore, err := BuildLeadStore(ctx, cfg, loadAWS, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeStore)

	deps := intake.Dependencies{
		Leads: store,
		Files: BuildFileStore(ctx, cfg, loadAWS, logger),
	}
	if cfg.InternalEmail == "" {
		logger.Warn("INTERNAL_EMAIL not set; internal alerts will fail")
	}
	deps.Notifier = notify.NewService(BuildEmailSender(ctx, cfg, loadAWS, logger), notify.Config{
		InternalEmail: cfg.InternalEmail,
		Brand:         cfg.BrandName,
	}, logger)

	messenger, provider := BuildMessenger(cfg, logger)
	logger.Info("whatsapp provider", "provider", provider)
	deps.Messenger = messenger

	if publisher := BuildEventPublisher(ctx, cfg, loadAWS, logger); publisher != nil {
		deps.Events = publisher
	}

	orch := intake.NewOrchestrator(deps, logger,
		intake.WithStageTimeout(cfg.CollaboratorTimeout),
		intake.WithLocation(loadLocation(cfg.Timezone, logger)),
		intake.WithMetrics(rt.Metrics),
	)

	guard, closeGuard := BuildRateGuard(ctx, cfg, logger)
	rt.closers = append(rt.closers, closeGuard)

	rt.Service = intake.NewService(guard, orch, intake.ServiceConfig{
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		HoneypotField:   cfg.HoneypotField,
	}, rt.Metrics, logger)
	rt.Handler = intake.NewHandler(rt.Service, logger)
	return rt, nil
}

func loadLocation(name string, logger *logging.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("unknown timezone; using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}
