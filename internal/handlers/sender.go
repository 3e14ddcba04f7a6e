package handlers

import (
	"context"

	"github.com/deface-tgbot-go/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Sender is the outbound reply sink. Delivery is best effort: callers log
// failures and move on, they never surface them to the chat.
type Sender interface {
	SendText(chatID int64, text string) error
	SendHTML(chatID int64, html string) error
	SendPhoto(chatID int64, image []byte) error
}

// TelegramSender sends replies through the Bot API, paced by a token bucket
// so bursts of concurrent updates stay under Telegram's send throughput cap.
type TelegramSender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewTelegramSender creates a paced sender around the bot API
func NewTelegramSender(bot *tgbotapi.BotAPI, cfg *config.SendConfig, logger *logrus.Logger) *TelegramSender {
	return &TelegramSender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), cfg.Burst),
		logger:  logger,
	}
}

// SendText sends a plain text message
func (s *TelegramSender) SendText(chatID int64, text string) error {
	return s.send(tgbotapi.NewMessage(chatID, text))
}

// SendHTML sends a message rendered with Telegram HTML formatting
func (s *TelegramSender) SendHTML(chatID int64, html string) error {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	return s.send(msg)
}

// SendPhoto sends a processed image back to the chat
func (s *TelegramSender) SendPhoto(chatID int64, image []byte) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "processed.jpg",
		Bytes: image,
	})
	return s.send(photo)
}

func (s *TelegramSender) send(msg tgbotapi.Chattable) error {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return err
	}
	_, err := s.bot.Send(msg)
	return err
}
