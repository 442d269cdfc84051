package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"status-notification/internal/config"
	output "status-notification/internal/core/ports/output"
)

type telegramNotifier struct {
	bot     *telego.Bot
	chatID  telego.ChatID
	timeout time.Duration
}

// NewNotifier returns a Telegram-backed notifier, or a notifier that only
// logs when no bot token is configured.
func NewNotifier(cfg *config.TelegramConfig) (output.Notifier, error) {
	if cfg.BotToken == "" {
		return &logNotifier{}, nil
	}
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram chat id is required when a bot token is set")
	}

	opts := []telego.BotOption{
		telego.WithLogger(log.WithField("component", "telegram")),
	}
	if cfg.APIServer != "" {
		opts = append(opts, telego.WithAPIServer(cfg.APIServer))
	}

	bot, err := telego.NewBot(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &telegramNotifier{
		bot:     bot,
		chatID:  chatID(cfg.ChatID),
		timeout: timeout,
	}, nil
}

func (n *telegramNotifier) Notify(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if _, err := n.bot.SendMessage(ctx, tu.Message(n.chatID, text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// chatID addresses a numeric chat id, or a public channel by its @username.
func chatID(raw string) telego.ChatID {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return tu.ID(id)
	}
	return tu.Username(raw)
}

// logNotifier stands in for Telegram in development and tests.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, text string) error {
	log.WithField("component", "notifier").Warn(text)
	return nil
}
