package gifts

import (
	"context"
	"fmt"
	"time"

	"giftomatic/pkg/logx"
)

// deliverOne purchases and delivers one gift to one user, idempotently:
// a recorded delivery is the sole completion signal, so re-running after a
// crash or a stale pending record converges instead of double-charging.
//
// A failed debit means insufficient balance. That is retried with backoff up
// to MaxAttempts, then surfaced as ErrAttemptsExhausted; the next scan that
// rediscovers a stale pending record (via the janitor) can try again.
func (s *Service) deliverOne(ctx context.Context, g gift, userID int64) error {
	for attempt := 1; ; attempt++ {
		cctx, cancel := s.callCtx(ctx)
		done, err := s.store.IsDelivered(cctx, g.id, userID)
		cancel()
		if err != nil {
			return fmt.Errorf("delivery lookup: %w", err)
		}
		if done {
			return nil
		}

		cctx, cancel = s.callCtx(ctx)
		deliveryID, err := s.store.EnsurePendingDelivery(cctx, g.id, userID)
		cancel()
		if err != nil {
			return fmt.Errorf("pending record: %w", err)
		}

		cctx, cancel = s.callCtx(ctx)
		paid, err := s.store.Debit(cctx, userID, g.amount)
		cancel()
		if err != nil {
			return fmt.Errorf("debit: %w", err)
		}

		if paid {
			cctx, cancel = s.callCtx(ctx)
			err = s.messenger.DeliverGift(cctx, userID, g.id)
			cancel()
			if err != nil {
				// The debit went through but the send did not; the pending
				// record stays so the janitor can release it for a retry.
				return fmt.Errorf("send gift: %w", err)
			}

			cctx, cancel = s.callCtx(ctx)
			err = s.store.MarkDelivered(cctx, deliveryID)
			cancel()
			if err != nil {
				return fmt.Errorf("mark delivered: %w", err)
			}
			s.log.Info("gift delivered", logx.Int64("gift_id", g.id), logx.Int64("user_id", userID))
			return nil
		}

		if attempt >= s.cfg.MaxAttempts {
			return fmt.Errorf("gift %d to user %d after %d attempts: %w",
				g.id, userID, attempt, ErrAttemptsExhausted)
		}
		if err := s.sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

// sleepBackoff waits base*2^(attempt-1), capped at RetryMaxDelay.
func (s *Service) sleepBackoff(ctx context.Context, attempt int) error {
	d := s.cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.RetryMaxDelay {
			d = s.cfg.RetryMaxDelay
			break
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
