package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/deface-tgbot-go/internal/i18n"
	"github.com/deface-tgbot-go/internal/middleware"
	"github.com/deface-tgbot-go/internal/models"
	"github.com/deface-tgbot-go/internal/services/cache"
	"github.com/deface-tgbot-go/internal/services/deface"
	"github.com/deface-tgbot-go/internal/settings"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDownloader struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeDownloader) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeDeface struct {
	result    []byte
	err       error
	gotFilter string
	gotPaste  string
	calls     int
}

func (f *fakeDeface) Process(ctx context.Context, image []byte, filter, pasteStyle string) ([]byte, error) {
	f.calls++
	f.gotFilter = filter
	f.gotPaste = pasteStyle
	return f.result, f.err
}

type photoFixture struct {
	handler    *PhotoHandler
	store      *settings.Store
	downloader *fakeDownloader
	deface     *fakeDeface
	sender     *fakeSender
	logHook    *logrustest.Hook
}

func newPhotoFixture(t *testing.T, cacheCfg config.CacheConfig) *photoFixture {
	t.Helper()
	cfg := testConfig()
	cfg.Cache = cacheCfg
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Minute
	}
	store := settings.NewStore(cfg)
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	require.NoError(t, err)

	log, hook := logrustest.NewNullLogger()
	downloader := &fakeDownloader{data: []byte("original")}
	defaceService := &fakeDeface{result: []byte("processed")}
	sender := &fakeSender{}
	handler := NewPhotoHandler(
		cfg, store, downloader, defaceService,
		cache.NewCache(&cfg.Cache, log),
		sender, localizer, middleware.NewMetrics(), log,
	)
	return &photoFixture{
		handler:    handler,
		store:      store,
		downloader: downloader,
		deface:     defaceService,
		sender:     sender,
		logHook:    hook,
	}
}

func variant(fileID string, size, w, h int) models.PhotoVariant {
	return models.PhotoVariant{FileID: fileID, FileUniqueID: "u-" + fileID, FileSize: size, Width: w, Height: h}
}

func TestSelectBestVariant(t *testing.T) {
	tests := []struct {
		name     string
		variants []models.PhotoVariant
		want     string
	}{
		{
			name: "file size wins over pixel area",
			variants: []models.PhotoVariant{
				variant("a", 100, 0, 0),
				variant("b", 500, 0, 0),
				variant("c", 0, 10, 10),
			},
			want: "b",
		},
		{
			name: "pixel area fallback when sizes are absent",
			variants: []models.PhotoVariant{
				variant("a", 0, 4, 4),
				variant("b", 0, 10, 2),
			},
			want: "b",
		},
		{
			name: "first maximal variant wins ties",
			variants: []models.PhotoVariant{
				variant("a", 300, 0, 0),
				variant("b", 300, 0, 0),
			},
			want: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, ok := selectBestVariant(tt.variants)
			require.True(t, ok)
			assert.Equal(t, tt.want, best.FileID)
		})
	}

	_, ok := selectBestVariant(nil)
	assert.False(t, ok)
}

func TestNoVariantsRepliesWithoutExternalCalls(t *testing.T) {
	f := newPhotoFixture(t, config.CacheConfig{})

	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, nil))
	require.Len(t, f.sender.texts, 1)
	assert.Equal(t, "I couldn't read that photo. Please try again.", f.sender.texts[0])
	assert.Zero(t, f.downloader.calls)
	assert.Zero(t, f.deface.calls)
}

func TestPhotoProcessedWithCurrentSettings(t *testing.T) {
	f := newPhotoFixture(t, config.CacheConfig{})

	_, err := f.store.UpdateFilter(1, "pixelate")
	require.NoError(t, err)
	_, err = f.store.UpdatePasteStyle(1, "solid")
	require.NoError(t, err)

	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, []models.PhotoVariant{variant("a", 500, 0, 0)}))

	assert.Equal(t, "pixelate", f.deface.gotFilter)
	assert.Equal(t, "solid", f.deface.gotPaste)
	require.Len(t, f.sender.photos, 1)
	assert.Equal(t, []byte("processed"), f.sender.photos[0])
	assert.Empty(t, f.sender.texts)
}

func TestProcessingFailureYieldsOpaqueReference(t *testing.T) {
	f := newPhotoFixture(t, config.CacheConfig{})
	f.deface.err = &deface.ProcessingError{StatusCode: 502}

	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, []models.PhotoVariant{variant("a", 500, 0, 0)}))

	require.Len(t, f.sender.texts, 1)
	reply := f.sender.texts[0]
	assert.True(t, strings.HasPrefix(reply, "Sorry, I couldn't process that image right now. Ref: "), reply)
	assert.NotContains(t, reply, "502", "status codes never reach the user")
	assert.Empty(t, f.sender.photos)

	// The reference token pairs the user reply with the logged error detail
	ref := strings.TrimPrefix(reply, "Sorry, I couldn't process that image right now. Ref: ")
	require.NotEmpty(t, ref)

	var logged bool
	for _, entry := range f.logHook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data["ref"] == ref {
			require.Error(t, entry.Data["error"].(error))
			assert.Contains(t, entry.Data["error"].(error).Error(), "502")
			logged = true
		}
	}
	assert.True(t, logged, "error log must carry the reference token")
}

func TestDownloadFailureYieldsOpaqueReference(t *testing.T) {
	f := newPhotoFixture(t, config.CacheConfig{})
	f.downloader.err = errors.New("getFile exploded")
	f.downloader.data = nil

	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, []models.PhotoVariant{variant("a", 500, 0, 0)}))

	require.Len(t, f.sender.texts, 1)
	assert.NotContains(t, f.sender.texts[0], "exploded")
	assert.Zero(t, f.deface.calls)
}

func TestCachedResultSkipsPipeline(t *testing.T) {
	f := newPhotoFixture(t, config.CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 8})
	v := variant("a", 500, 0, 0)

	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, []models.PhotoVariant{v}))
	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, []models.PhotoVariant{v}))

	assert.Equal(t, 1, f.downloader.calls)
	assert.Equal(t, 1, f.deface.calls)
	require.Len(t, f.sender.photos, 2)
	assert.Equal(t, f.sender.photos[0], f.sender.photos[1])
}

func TestSettingsChangeAppliesToNextPhoto(t *testing.T) {
	f := newPhotoFixture(t, config.CacheConfig{})
	v := variant("a", 500, 0, 0)

	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, []models.PhotoVariant{v}))
	assert.Equal(t, "blur", f.deface.gotFilter)

	_, err := f.store.UpdateFilter(1, "pixelate")
	require.NoError(t, err)

	require.NoError(t, f.handler.HandlePhoto(context.Background(), 1, []models.PhotoVariant{v}))
	assert.Equal(t, "pixelate", f.deface.gotFilter)
}
