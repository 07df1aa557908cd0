// Package telegram delivers profitable-deal notifications via the Telegram
// Bot API. It formats a match summary into a MarkdownV2 message and handles
// delivery with retry logic for reliability.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/autodropshipper/dealscout/internal/dispatch"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Notify sends a profitable-deal summary. Implements dispatch.Notifier.
func (c *Client) Notify(ctx context.Context, summary dispatch.Summary) error {
	msg := tgbotapi.NewMessage(c.chatID, formatSummary(summary))
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true

	// Send with retry
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatSummary formats a profitable deal into a Telegram message.
func formatSummary(s dispatch.Summary) string {
	profit := escapeMarkdownV2(fmt.Sprintf("€%s", s.PotentialProfit.StringFixed(2)))
	refPrice := escapeMarkdownV2(fmt.Sprintf("€%s", s.Product.ReferencePrice.StringFixed(2)))
	basisPrice := escapeMarkdownV2(fmt.Sprintf("€%s", s.Basis.Price.StringFixed(2)))

	var productLine string
	if s.Product.SourceURL != "" {
		productLine = fmt.Sprintf("[%s](%s)", escapeMarkdownV2(s.Product.Name), s.Product.SourceURL)
	} else {
		productLine = escapeMarkdownV2(s.Product.Name)
	}

	message := "💰 *Profitable deal found*\n\n"
	message += fmt.Sprintf("🔎 %s\n", productLine)
	message += fmt.Sprintf("Source price: %s\n", refPrice)
	message += fmt.Sprintf("Potential profit: *%s*\n\n", profit)
	message += fmt.Sprintf("Cheapest match \\(%s\\):\n", basisPrice)
	message += fmt.Sprintf("[%s](%s)\n", escapeMarkdownV2(s.Basis.Title), s.Basis.Link)

	if len(s.Listings) > 1 {
		message += fmt.Sprintf("\nOther candidates \\(%d\\):\n", len(s.Listings)-1)
		for _, l := range s.Listings {
			if l.Link == s.Basis.Link {
				continue
			}
			price := escapeMarkdownV2(fmt.Sprintf("€%s", l.Price.StringFixed(2)))
			message += fmt.Sprintf("• [%s](%s): %s\n", escapeMarkdownV2(l.Title), l.Link, price)
		}
	}

	return message
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}
