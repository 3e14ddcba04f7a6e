package handlers

import (
	"context"
	"io"
	"testing"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/deface-tgbot-go/internal/i18n"
	"github.com/deface-tgbot-go/internal/middleware"
	"github.com/deface-tgbot-go/internal/settings"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	texts  []string
	htmls  []string
	photos [][]byte
}

func (f *fakeSender) SendText(chatID int64, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendHTML(chatID int64, html string) error {
	f.htmls = append(f.htmls, html)
	return nil
}

func (f *fakeSender) SendPhoto(chatID int64, image []byte) error {
	f.photos = append(f.photos, image)
	return nil
}

func (f *fakeSender) sendCount() int {
	return len(f.texts) + len(f.htmls) + len(f.photos)
}

func testConfig() *config.Config {
	return &config.Config{
		Filters: config.AllowListConfig{
			Default: "blur",
			Allowed: []string{"blur", "pixelate"},
		},
		Paste: config.AllowListConfig{
			Default: "feathered",
			Allowed: []string{"feathered", "solid"},
		},
		I18n: config.I18nConfig{
			DefaultLanguage: "en",
			Languages:       []string{"en"},
		},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newCommandFixture(t *testing.T) (*CommandHandler, *settings.Store, *fakeSender) {
	t.Helper()
	cfg := testConfig()
	store := settings.NewStore(cfg)
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	require.NoError(t, err)
	sender := &fakeSender{}
	handler := NewCommandHandler(cfg, store, sender, localizer, middleware.NewMetrics(), quietLogger())
	return handler, store, sender
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		command string
		arg     string
		ok      bool
	}{
		{"bare command", "/status", "/status", "", true},
		{"command with argument", "/filter blur", "/filter", "blur", true},
		{"mention suffix stripped", "/filter@mybot blur", "/filter", "blur", true},
		{"extra whitespace", "  /paste   solid  ", "/paste", "solid", true},
		{"argument keeps inner spacing", "/filter a b", "/filter", "a b", true},
		{"plain text", "hello", "", "", false},
		{"empty", "", "", "", false},
		{"slash only", "/", "/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, arg, ok := parseCommand(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.arg, arg)
		})
	}
}

func TestStatusReportsCurrentSettings(t *testing.T) {
	handler, _, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/status"))
	require.Len(t, sender.texts, 1)
	assert.Equal(t, "Filter: blur\nPaste style: feathered", sender.texts[0])
}

func TestFilterCommandUpdatesStore(t *testing.T) {
	handler, store, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/filter@mybot pixelate"))
	require.Len(t, sender.texts, 1)
	assert.Equal(t, "Filter set to pixelate", sender.texts[0])
	assert.Equal(t, "pixelate", store.Get(1).Filter)
}

func TestPasteCommandUpdatesStore(t *testing.T) {
	handler, store, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/paste solid"))
	require.Len(t, sender.texts, 1)
	assert.Equal(t, "Paste style set to solid", sender.texts[0])
	assert.Equal(t, "solid", store.Get(1).PasteStyle)
}

func TestMissingArgumentGetsUsageHint(t *testing.T) {
	handler, store, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/filter"))
	require.Len(t, sender.texts, 1)
	assert.Equal(t, "Usage: /filter <name>", sender.texts[0])
	assert.Equal(t, "blur", store.Get(1).Filter, "no mutation on usage error")

	require.NoError(t, handler.HandleText(context.Background(), 1, "/paste"))
	assert.Equal(t, "Usage: /paste <name>", sender.texts[1])
}

func TestInvalidValueListsAllowedSet(t *testing.T) {
	handler, store, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/filter sepia"))
	require.Len(t, sender.texts, 1)
	assert.Equal(t, "Invalid filter. Allowed: blur, pixelate", sender.texts[0])
	assert.Equal(t, "blur", store.Get(1).Filter)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/paste hard"))
	assert.Equal(t, "Invalid paste style. Allowed: feathered, solid", sender.texts[1])
}

func TestNonCommandsAndUnknownCommandsStaySilent(t *testing.T) {
	handler, _, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "hello"))
	require.NoError(t, handler.HandleText(context.Background(), 1, "/frobnicate"))
	require.NoError(t, handler.HandleText(context.Background(), 1, "/"))
	assert.Zero(t, sender.sendCount())
}

func TestHelpListsBothAllowLists(t *testing.T) {
	handler, _, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/help"))
	require.Len(t, sender.htmls, 1)
	assert.Contains(t, sender.htmls[0], "blur, pixelate")
	assert.Contains(t, sender.htmls[0], "feathered, solid")
	assert.Contains(t, sender.htmls[0], "/filter")
	assert.Contains(t, sender.htmls[0], "/paste")
}

func TestStartSendsWelcome(t *testing.T) {
	handler, _, sender := newCommandFixture(t)

	require.NoError(t, handler.HandleText(context.Background(), 1, "/start"))
	require.Len(t, sender.htmls, 1)
	assert.Contains(t, sender.htmls[0], "Send a photo")
}
