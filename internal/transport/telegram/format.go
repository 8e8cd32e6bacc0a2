package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"giftomatic/internal/transport"
)

// announcementText renders the channel notice for a newly listed gift.
func announcementText(g transport.Gift) string {
	supply := "∞"
	if !g.Unlimited() {
		supply = strconv.FormatInt(g.TotalCount, 10)
	}
	name := g.Name
	if strings.TrimSpace(name) == "" {
		name = strconv.FormatInt(g.ID, 10)
	}

	var b strings.Builder
	b.WriteString("🎁 Новый подарок!\n")
	fmt.Fprintf(&b, "Название: <b>%s</b>\n", name)
	fmt.Fprintf(&b, "Цена: <b>%d⭐️</b>\n", g.StarCount)
	fmt.Fprintf(&b, "Количество (supply): <b>%s</b>\n\n", supply)
	b.WriteString(`<a href="https://t.me/giftomaticrobot">💎Моментальная автоскупка подарков — Giftomatic</a>`)
	return b.String()
}
