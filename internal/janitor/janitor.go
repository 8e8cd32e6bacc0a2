// Package janitor runs background maintenance on the store: stale pending
// deliveries are released so later scans can retry them, and old unpaid
// invoices are closed.
package janitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"giftomatic/internal/storage"
	"giftomatic/pkg/logx"
)

type Config struct {
	Enabled       bool
	SweepEvery    time.Duration
	PendingMaxAge time.Duration
	InvoiceMaxAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.SweepEvery <= 0 {
		c.SweepEvery = 10 * time.Minute
	}
	if c.PendingMaxAge <= 0 {
		c.PendingMaxAge = 30 * time.Minute
	}
	if c.InvoiceMaxAge <= 0 {
		c.InvoiceMaxAge = 24 * time.Hour
	}
	return c
}

type Service struct {
	mu    sync.Mutex
	cfg   Config
	log   logx.Logger
	store *storage.Store
	c     *cron.Cron
}

func New(cfg Config, store *storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg.withDefaults(), log: log, store: store}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.c != nil {
		return nil
	}
	s.c = cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.SweepEvery)
	if _, err := s.c.AddFunc(spec, func() { s.sweep(ctx) }); err != nil {
		s.c = nil
		return err
	}
	s.c.Start()
	s.log.Info("janitor started", logx.Duration("every", s.cfg.SweepEvery))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
		s.log.Info("janitor stopped")
	}
}

func (s *Service) sweep(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	released, err := s.store.ReleaseStalePending(sctx, s.cfg.PendingMaxAge)
	if err != nil {
		s.log.Warn("stale pending sweep failed", logx.Err(err))
	} else if released > 0 {
		s.log.Info("released stale pending deliveries", logx.Int64("count", released))
	}

	cutoff := time.Now().Add(-s.cfg.InvoiceMaxAge)
	expired, err := s.store.ExpireInvoicesBefore(sctx, cutoff)
	if err != nil {
		s.log.Warn("invoice expiry sweep failed", logx.Err(err))
	} else if expired > 0 {
		s.log.Info("expired unpaid invoices", logx.Int64("count", expired))
	}
}
