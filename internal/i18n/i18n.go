package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Message IDs
const (
	MsgWelcome         = "welcome"
	MsgHelp            = "help"
	MsgStatus          = "status"
	MsgFilterSet       = "filter_set"
	MsgPasteSet        = "paste_set"
	MsgFilterUsage     = "filter_usage"
	MsgPasteUsage      = "paste_usage"
	MsgFilterInvalid   = "filter_invalid"
	MsgPasteInvalid    = "paste_invalid"
	MsgPhotoUnreadable = "photo_unreadable"
	MsgPhotoFailed     = "photo_failed"
)

// englishDefaults ships the reply catalog in code so the bot runs without
// message files on disk. Language files, when configured, override these.
var englishDefaults = []*i18n.Message{
	{ID: MsgWelcome, Other: "Welcome. Send a photo to process or /help for commands."},
	{ID: MsgHelp, Other: "**Commands:**\n" +
		"/start - start the bot\n" +
		"/help - show this help\n" +
		"/filter `<name>` - set filter\n" +
		"/paste `<name>` - set paste style\n" +
		"/status - show current settings\n" +
		"Allowed filters: {{.Filters}}\n" +
		"Allowed paste styles: {{.Styles}}\n" +
		"Send a photo to process it with the current settings."},
	{ID: MsgStatus, Other: "Filter: {{.Filter}}\nPaste style: {{.PasteStyle}}"},
	{ID: MsgFilterSet, Other: "Filter set to {{.Filter}}"},
	{ID: MsgPasteSet, Other: "Paste style set to {{.PasteStyle}}"},
	{ID: MsgFilterUsage, Other: "Usage: /filter <name>"},
	{ID: MsgPasteUsage, Other: "Usage: /paste <name>"},
	{ID: MsgFilterInvalid, Other: "Invalid filter. Allowed: {{.Allowed}}"},
	{ID: MsgPasteInvalid, Other: "Invalid paste style. Allowed: {{.Allowed}}"},
	{ID: MsgPhotoUnreadable, Other: "I couldn't read that photo. Please try again."},
	{ID: MsgPhotoFailed, Other: "Sorry, I couldn't process that image right now. Ref: {{.Ref}}"},
}

// Localizer manages the user-facing reply texts
type Localizer struct {
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a localizer with the built-in English catalog plus any
// per-language override files found in the configured directory.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	if err := bundle.AddMessages(language.English, englishDefaults...); err != nil {
		return nil, fmt.Errorf("failed to register default messages: %w", err)
	}

	if cfg.Directory != "" {
		for _, lang := range cfg.Languages {
			path := filepath.Join(cfg.Directory, lang+".json")
			if _, err := bundle.LoadMessageFile(path); err != nil {
				return nil, fmt.Errorf("failed to load language file %s: %w", path, err)
			}
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}
	if _, ok := localizers[cfg.DefaultLanguage]; !ok {
		localizers[cfg.DefaultLanguage] = i18n.NewLocalizer(bundle, cfg.DefaultLanguage)
	}

	return &Localizer{
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns the localized message for lang, falling back to the default
// language and finally to the message ID itself.
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}

	return msg
}
