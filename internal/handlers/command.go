package handlers

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/deface-tgbot-go/internal/i18n"
	"github.com/deface-tgbot-go/internal/middleware"
	"github.com/deface-tgbot-go/internal/settings"
	"github.com/deface-tgbot-go/pkg/markdown"
	"github.com/sirupsen/logrus"
)

// CommandHandler routes chat commands to the settings store
type CommandHandler struct {
	config    *config.Config
	store     *settings.Store
	sender    Sender
	localizer *i18n.Localizer
	metrics   *middleware.Metrics
	logger    *logrus.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	cfg *config.Config,
	store *settings.Store,
	sender Sender,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		config:    cfg,
		store:     store,
		sender:    sender,
		localizer: localizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleText processes one inbound text message. Text that is not a known
// command is ignored without a reply so the bot stays quiet in group chats.
func (h *CommandHandler) HandleText(ctx context.Context, chatID int64, text string) error {
	command, arg, ok := parseCommand(text)
	if !ok {
		return nil
	}

	lang := h.config.I18n.DefaultLanguage

	switch command {
	case "/start":
		h.metrics.RecordCommandExecuted("start")
		return h.sender.SendHTML(chatID, markdown.ToTelegramHTML(h.localizer.Get(lang, i18n.MsgWelcome, nil)))

	case "/help":
		h.metrics.RecordCommandExecuted("help")
		help := h.localizer.Get(lang, i18n.MsgHelp, map[string]interface{}{
			"Filters": strings.Join(h.store.AllowedFilters(), ", "),
			"Styles":  strings.Join(h.store.AllowedPasteStyles(), ", "),
		})
		return h.sender.SendHTML(chatID, markdown.ToTelegramHTML(help))

	case "/status":
		h.metrics.RecordCommandExecuted("status")
		current := h.store.Get(chatID)
		return h.sender.SendText(chatID, h.localizer.Get(lang, i18n.MsgStatus, map[string]interface{}{
			"Filter":     current.Filter,
			"PasteStyle": current.PasteStyle,
		}))

	case "/filter":
		h.metrics.RecordCommandExecuted("filter")
		if arg == "" {
			return h.sender.SendText(chatID, h.localizer.Get(lang, i18n.MsgFilterUsage, nil))
		}
		updated, err := h.store.UpdateFilter(chatID, arg)
		if err != nil {
			return h.replyInvalid(chatID, lang, "filter", i18n.MsgFilterInvalid, err)
		}
		h.metrics.RecordSettingsUpdate("filter", "success")
		h.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"filter":  updated.Filter,
		}).Info("Filter updated")
		return h.sender.SendText(chatID, h.localizer.Get(lang, i18n.MsgFilterSet, map[string]interface{}{
			"Filter": updated.Filter,
		}))

	case "/paste":
		h.metrics.RecordCommandExecuted("paste")
		if arg == "" {
			return h.sender.SendText(chatID, h.localizer.Get(lang, i18n.MsgPasteUsage, nil))
		}
		updated, err := h.store.UpdatePasteStyle(chatID, arg)
		if err != nil {
			return h.replyInvalid(chatID, lang, "paste_style", i18n.MsgPasteInvalid, err)
		}
		h.metrics.RecordSettingsUpdate("paste_style", "success")
		h.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"paste":   updated.PasteStyle,
		}).Info("Paste style updated")
		return h.sender.SendText(chatID, h.localizer.Get(lang, i18n.MsgPasteSet, map[string]interface{}{
			"PasteStyle": updated.PasteStyle,
		}))

	default:
		// Unknown commands get no reply, same as plain chatter
		return nil
	}
}

// replyInvalid renders the store's rejection, including the allowed values,
// back to the chat.
func (h *CommandHandler) replyInvalid(chatID int64, lang, setting, messageID string, err error) error {
	var invalid *settings.InvalidValueError
	if !errors.As(err, &invalid) {
		return err
	}
	h.metrics.RecordSettingsUpdate(setting, "invalid")
	return h.sender.SendText(chatID, h.localizer.Get(lang, messageID, map[string]interface{}{
		"Allowed": strings.Join(invalid.Allowed, ", "),
	}))
}

// parseCommand splits a text line into a command token and a single trimmed
// argument. A bot mention suffix on the command ("/filter@somebot") is
// stripped before matching.
func parseCommand(text string) (command, arg string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}

	first := trimmed
	rest := ""
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i >= 0 {
		first = trimmed[:i]
		rest = strings.TrimSpace(trimmed[i:])
	}

	if at := strings.Index(first, "@"); at > 0 {
		first = first[:at]
	}

	return first, rest, true
}
