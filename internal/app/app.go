// Package app wires the bot together: config, logging, storage, the dedup
// registry, the telegram adapter, the gift scheduler and the janitor.
package app

import (
	"context"
	"errors"
	"time"

	"giftomatic/internal/config"
	"giftomatic/internal/dedup"
	"giftomatic/internal/gifts"
	"giftomatic/internal/janitor"
	"giftomatic/internal/runtime/supervisor"
	"giftomatic/internal/storage"
	"giftomatic/internal/transport/telegram"
	"giftomatic/pkg/logx"
	"giftomatic/pkg/sdnotify"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store     *storage.Store
	scheduler *gifts.Service
	jan       *janitor.Service

	sup *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(
		storage.Config{Path: cfg.Storage.Path, BusyTimeout: busyTimeout},
		log.With(logx.String("comp", "storage")),
	)
	if err != nil {
		return nil, err
	}

	registry, err := dedup.OpenSQLite(context.Background(), store.DB())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	adapter, err := telegram.New(telegram.Config{
		Token:      cfg.Telegram.Token,
		ChannelID:  cfg.Telegram.ChannelID,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	gcfg, err := giftsConfig(cfg.Gifts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	scheduler := gifts.New(gcfg, adapter, adapter, storeAdapter{store}, registry,
		log.With(logx.String("comp", "gifts")))

	jcfg, err := janitorConfig(cfg.Janitor)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	jan := janitor.New(jcfg, store, log.With(logx.String("comp", "janitor")))

	return &App{
		cfgMgr:    mgr,
		logSvc:    logSvc,
		log:       log,
		store:     store,
		scheduler: scheduler,
		jan:       jan,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	a.sup.Go("gifts.run", func(ctx context.Context) error {
		err := a.scheduler.Run(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	a.sup.Go("config.watch", a.cfgMgr.Watch)
	a.sup.Go0("config.apply", a.applyLoop)
	a.sup.Go0("sdnotify.watchdog", sdnotify.Watchdog)

	if err := a.jan.Start(a.sup.Context()); err != nil {
		return err
	}

	sdnotify.Ready()
	a.log.Info("giftomatic started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	sdnotify.Stopping()
	a.jan.Stop()

	var err error
	if a.sup != nil {
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = a.sup.Stop(wctx)
		cancel()
	}
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.logSvc.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyLoop pushes config reloads into the running services. Only logging is
// hot-swappable; scheduler and storage changes need a restart.
func (a *App) applyLoop(ctx context.Context) {
	ch := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
		}
	}
}

// storeAdapter narrows *storage.Store to the scheduler's Store interface.
type storeAdapter struct {
	*storage.Store
}

func (s storeAdapter) ListEligibleUsers(ctx context.Context, vipOnly bool) ([]gifts.User, error) {
	us, err := s.Store.ListEligibleUsers(ctx, vipOnly)
	if err != nil {
		return nil, err
	}
	out := make([]gifts.User, 0, len(us))
	for _, u := range us {
		out = append(out, gifts.User{ID: u.ID, VIP: u.VIP})
	}
	return out, nil
}
