package gifts

import (
	"context"
	"time"

	"giftomatic/internal/dedup"
	"giftomatic/internal/transport"
	"giftomatic/pkg/logx"
)

type Service struct {
	cfg Config
	log logx.Logger

	catalog   transport.Catalog
	messenger transport.Messenger
	store     Store
	registry  dedup.Registry
}

func New(cfg Config, catalog transport.Catalog, messenger transport.Messenger, store Store, registry dedup.Registry, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:       cfg.withDefaults(),
		log:       log,
		catalog:   catalog,
		messenger: messenger,
		store:     store,
		registry:  registry,
	}
}

// Run drives the harmonized tick loop until ctx is cancelled. Scan failures
// are contained inside Scan; nothing escapes this loop except cancellation.
func (s *Service) Run(ctx context.Context) error {
	sched, err := NewSchedule(s.cfg.VIPPollInterval, s.cfg.DefaultPollInterval)
	if err != nil {
		return err
	}
	s.log.Info("gift scheduler started",
		logx.Duration("base_interval", sched.Base),
		logx.Duration("default_interval", s.cfg.DefaultPollInterval),
		logx.Duration("vip_interval", s.cfg.VIPPollInterval),
		logx.Int("batch_size", s.cfg.BatchSize))

	timer := time.NewTimer(sched.Base)
	defer timer.Stop()

	for cycle := 0; ; cycle = sched.Next(cycle) {
		defaultDue, vipDue := sched.Due(cycle)
		if defaultDue {
			s.Scan(ctx, false)
		}
		if vipDue {
			s.Scan(ctx, true)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(sched.Base)
		select {
		case <-ctx.Done():
			s.log.Info("gift scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// callCtx bounds one external call.
func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}
