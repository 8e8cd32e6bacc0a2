package gifts

import (
	"context"
	"errors"
	"sync"

	"giftomatic/pkg/logx"
)

// fanout partitions users into contiguous batches of at most BatchSize and
// delivers g to each batch concurrently. It returns only when every batch
// finished; a failing batch never cancels its siblings.
func (s *Service) fanout(ctx context.Context, g gift, users []User) {
	if len(users) == 0 {
		return
	}
	var wg sync.WaitGroup
	for start := 0; start < len(users); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(users) {
			end = len(users)
		}
		batch := users[start:end]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.deliverBatch(ctx, g, batch)
		}()
	}
	wg.Wait()
}

// deliverBatch processes one batch sequentially, in listing order. Errors
// are contained per user.
func (s *Service) deliverBatch(ctx context.Context, g gift, batch []User) {
	for _, u := range batch {
		if ctx.Err() != nil {
			return
		}
		if err := s.deliverOne(ctx, g, u.ID); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.Error("gift delivery failed",
				logx.Int64("gift_id", g.id), logx.Int64("user_id", u.ID), logx.Err(err))
		}
	}
}
