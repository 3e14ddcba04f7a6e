package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Service caches processed images so resending the same photo with the same
// settings skips the deface round-trip.
type Service interface {
	Get(fileUniqueID, filter, pasteStyle string) ([]byte, bool)
	Set(fileUniqueID, filter, pasteStyle string, image []byte)
}

// Cache implements Service on top of an in-memory TTL cache
type Cache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates a new cache service
func NewCache(cfg *config.CacheConfig, logger *logrus.Logger) Service {
	if !cfg.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   cache.New(cfg.TTL, cfg.TTL*2),
		logger:  logger,
		maxSize: cfg.MaxSize,
	}
}

// Get retrieves a cached processed image
func (c *Cache) Get(fileUniqueID, filter, pasteStyle string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	key := generateKey(fileUniqueID, filter, pasteStyle)
	if val, found := c.cache.Get(key); found {
		c.logger.WithField("file", fileUniqueID).Debug("Processed image cache hit")
		return val.([]byte), true
	}

	return nil, false
}

// Set stores a processed image
func (c *Cache) Set(fileUniqueID, filter, pasteStyle string, image []byte) {
	if !c.enabled {
		return
	}

	if c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Image cache size limit reached, dropping expired entries")
		c.cache.DeleteExpired()
	}

	c.cache.SetDefault(generateKey(fileUniqueID, filter, pasteStyle), image)
}

func generateKey(fileUniqueID, filter, pasteStyle string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", fileUniqueID, filter, pasteStyle)))
	return hex.EncodeToString(sum[:])
}
