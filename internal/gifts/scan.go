package gifts

import (
	"context"
	"sort"

	"giftomatic/pkg/logx"
)

// Scan is one discovery pass over the catalog for the given tier.
// It reports false when the pass could not run (catalog or user listing
// unavailable); the next due tick retries naturally.
func (s *Service) Scan(ctx context.Context, vipOnly bool) bool {
	log := s.log.With(logx.Bool("vip", vipOnly))

	lctx, cancel := s.callCtx(ctx)
	items, err := s.catalog.AvailableGifts(lctx)
	cancel()
	if err != nil {
		log.Error("catalog listing failed", logx.Err(err))
		return false
	}

	var fresh []gift
	for _, it := range items {
		ictx, cancel := s.callCtx(ctx)
		wasNew, err := s.registry.TestAndInsert(ictx, it.ID, vipOnly)
		cancel()
		if err != nil {
			log.Warn("seen-set check failed", logx.Int64("gift_id", it.ID), logx.Err(err))
			continue
		}
		if !wasNew {
			continue
		}

		log.Info("new gift registered",
			logx.Int64("gift_id", it.ID),
			logx.Int64("stars", it.StarCount),
			logx.Int64("supply", it.TotalCount))

		actx, cancel := s.callCtx(ctx)
		if err := s.messenger.Announce(actx, it); err != nil {
			log.Warn("announce failed", logx.Int64("gift_id", it.ID), logx.Err(err))
		}
		cancel()

		count := it.Remaining
		if count <= 0 {
			count = it.TotalCount
		}
		if count <= 0 {
			count = abundantSupply
		}
		fresh = append(fresh, gift{id: it.ID, count: count, amount: it.StarCount})
	}

	if len(fresh) == 0 {
		return true
	}

	// Scarcest first; among equally scarce, priciest first. Fast-moving
	// inventory gets bought before competitors empty it.
	sort.SliceStable(fresh, func(i, j int) bool {
		if fresh[i].count != fresh[j].count {
			return fresh[i].count < fresh[j].count
		}
		return fresh[i].amount > fresh[j].amount
	})

	uctx, cancel := s.callCtx(ctx)
	users, err := s.store.ListEligibleUsers(uctx, vipOnly)
	cancel()
	if err != nil {
		log.Error("eligible user listing failed", logx.Err(err))
		return false
	}
	log.Info("delivering new gifts", logx.Int("gifts", len(fresh)), logx.Int("users", len(users)))

	// One gift fully completes its fan-out before the next starts.
	for _, g := range fresh {
		s.fanout(ctx, g, users)
	}
	return true
}
