// Package telegram implements the transport gateways on top of the Bot API
// via telebot. The adapter is outbound-only: the bot has no interactive
// surface, it just announces and fulfills gifts.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"giftomatic/internal/transport"
	"giftomatic/pkg/logx"
)

type Config struct {
	Token     string
	ChannelID int64

	// RatePerSec caps outgoing Bot API calls (default 25; Telegram allows ~30).
	RatePerSec int
}

type Adapter struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChannelID == 0 {
		return nil, errors.New("telegram channel id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 25
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Announce posts the new-gift notice to the configured channel.
func (a *Adapter) Announce(ctx context.Context, g transport.Gift) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := a.bot.Send(
		tele.ChatID(a.cfg.ChannelID),
		announcementText(g),
		&tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true},
	)
	if err != nil {
		return err
	}
	a.log.Debug("gift announced", logx.Int64("gift_id", g.ID))
	return nil
}

var _ transport.Catalog = (*Adapter)(nil)
var _ transport.Messenger = (*Adapter)(nil)
