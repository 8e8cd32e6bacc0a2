package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"giftomatic/internal/transport"
	"giftomatic/pkg/logx"
)

// The gift endpoints are not wrapped by telebot yet, so they go through Raw.

type rawGift struct {
	ID             string `json:"id"`
	StarCount      int64  `json:"star_count"`
	TotalCount     int64  `json:"total_count"`
	RemainingCount int64  `json:"remaining_count"`
	Sticker        struct {
		Emoji string `json:"emoji"`
	} `json:"sticker"`
}

// AvailableGifts lists the gifts currently purchasable with stars.
func (a *Adapter) AvailableGifts(ctx context.Context) ([]transport.Gift, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	data, err := a.bot.Raw("getAvailableGifts", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("getAvailableGifts: %w", err)
	}

	var resp struct {
		Result struct {
			Gifts []rawGift `json:"gifts"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("getAvailableGifts: decode: %w", err)
	}

	out := make([]transport.Gift, 0, len(resp.Result.Gifts))
	for _, rg := range resp.Result.Gifts {
		id, err := strconv.ParseInt(rg.ID, 10, 64)
		if err != nil {
			a.log.Warn("skipping gift with non-numeric id", logx.String("id", rg.ID))
			continue
		}
		out = append(out, transport.Gift{
			ID:         id,
			Name:       rg.Sticker.Emoji,
			StarCount:  rg.StarCount,
			TotalCount: rg.TotalCount,
			Remaining:  rg.RemainingCount,
		})
	}
	return out, nil
}

// DeliverGift purchases the gift for the user. The stars are charged to the
// bot's own balance; the user's ledger debit happens in storage beforehand.
func (a *Adapter) DeliverGift(ctx context.Context, userID, giftID int64) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := a.bot.Raw("sendGift", map[string]any{
		"user_id": userID,
		"gift_id": strconv.FormatInt(giftID, 10),
	})
	if err != nil {
		return fmt.Errorf("sendGift(user=%d, gift=%d): %w", userID, giftID, err)
	}
	return nil
}
