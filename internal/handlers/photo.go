package handlers

import (
	"context"
	"time"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/deface-tgbot-go/internal/i18n"
	"github.com/deface-tgbot-go/internal/middleware"
	"github.com/deface-tgbot-go/internal/models"
	"github.com/deface-tgbot-go/internal/services/cache"
	"github.com/deface-tgbot-go/internal/services/deface"
	"github.com/deface-tgbot-go/internal/services/files"
	"github.com/deface-tgbot-go/internal/settings"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PhotoHandler runs the photo pipeline: pick the best variant, download it,
// process it with the chat's current settings and send the result back.
type PhotoHandler struct {
	config     *config.Config
	store      *settings.Store
	downloader files.Downloader
	deface     deface.Service
	cache      cache.Service
	sender     Sender
	localizer  *i18n.Localizer
	metrics    *middleware.Metrics
	logger     *logrus.Logger
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(
	cfg *config.Config,
	store *settings.Store,
	downloader files.Downloader,
	defaceService deface.Service,
	cacheService cache.Service,
	sender Sender,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *PhotoHandler {
	return &PhotoHandler{
		config:     cfg,
		store:      store,
		downloader: downloader,
		deface:     defaceService,
		cache:      cacheService,
		sender:     sender,
		localizer:  localizer,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandlePhoto processes one inbound photo message. Failures past variant
// selection are collapsed into a generic apology carrying an opaque reference
// token; the full error goes only to the log.
func (h *PhotoHandler) HandlePhoto(ctx context.Context, chatID int64, variants []models.PhotoVariant) error {
	lang := h.config.I18n.DefaultLanguage

	best, ok := selectBestVariant(variants)
	if !ok {
		h.metrics.RecordPhotoProcessed("unreadable")
		return h.sender.SendText(chatID, h.localizer.Get(lang, i18n.MsgPhotoUnreadable, nil))
	}

	// Settings are read once before any I/O; a change made while this photo
	// is in flight applies to the next one.
	current := h.store.Get(chatID)

	if cached, hit := h.cache.Get(best.FileUniqueID, current.Filter, current.PasteStyle); hit {
		h.metrics.RecordCacheHit()
		h.metrics.RecordPhotoProcessed("cached")
		if err := h.sender.SendPhoto(chatID, cached); err != nil {
			h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send cached photo")
		}
		return nil
	}
	h.metrics.RecordCacheMiss()

	processed, err := h.process(ctx, chatID, best, current)
	if err != nil {
		ref := uuid.NewString()
		h.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": chatID,
			"ref":     ref,
		}).Error("Failed to process photo")
		h.metrics.RecordPhotoProcessed("error")
		return h.sender.SendText(chatID, h.localizer.Get(lang, i18n.MsgPhotoFailed, map[string]interface{}{
			"Ref": ref,
		}))
	}

	h.cache.Set(best.FileUniqueID, current.Filter, current.PasteStyle, processed)

	if err := h.sender.SendPhoto(chatID, processed); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send processed photo")
		return nil
	}

	h.metrics.RecordPhotoProcessed("success")
	h.logger.WithField("chat_id", chatID).Info("Processed image sent")
	return nil
}

func (h *PhotoHandler) process(ctx context.Context, chatID int64, variant models.PhotoVariant, current models.ChatSettings) ([]byte, error) {
	h.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"file_id": variant.FileID,
	}).Info("Downloading photo")

	original, err := h.downloader.Fetch(ctx, variant.FileID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	processed, err := h.deface.Process(ctx, original, current.Filter, current.PasteStyle)
	if err != nil {
		h.metrics.RecordDefaceRequest("error", time.Since(start))
		return nil, err
	}
	h.metrics.RecordDefaceRequest("success", time.Since(start))

	return processed, nil
}

// selectBestVariant picks the variant with the largest reported file size,
// falling back to pixel area when the platform omits the size. The first
// maximal variant wins ties.
func selectBestVariant(variants []models.PhotoVariant) (models.PhotoVariant, bool) {
	if len(variants) == 0 {
		return models.PhotoVariant{}, false
	}

	best := variants[0]
	bestScore := variantScore(best)
	for _, v := range variants[1:] {
		if s := variantScore(v); s > bestScore {
			best = v
			bestScore = s
		}
	}
	return best, true
}

func variantScore(v models.PhotoVariant) int64 {
	if v.FileSize > 0 {
		return int64(v.FileSize)
	}
	return int64(v.Width) * int64(v.Height)
}
