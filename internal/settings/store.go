package settings

import (
	"fmt"
	"strings"
	"sync"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/deface-tgbot-go/internal/models"
)

// InvalidValueError reports a value that is not in the allowed list for a
// setting. It carries the list so callers can show the user what is valid.
type InvalidValueError struct {
	Setting string
	Value   string
	Allowed []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %q, allowed: %s", e.Setting, e.Value, strings.Join(e.Allowed, ", "))
}

// Store maps chat ids to their current processing settings. It is the sole
// owner of the settings map and the single validation authority for mutations:
// every update path goes through it, so no caller can slip an out-of-list
// value past the command layer.
//
// Updates for the same chat are atomic read-modify-write operations built on
// sync.Map's compare-and-swap; updates for different chats never contend.
type Store struct {
	byChat   sync.Map // int64 -> models.ChatSettings
	defaults models.ChatSettings
	filters  []string
	styles   []string
}

// NewStore creates a store seeded with the process-wide defaults and
// allow-lists. The config is validated at load time, so the defaults are
// known members of their lists.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		defaults: models.ChatSettings{
			Filter:     cfg.Filters.Default,
			PasteStyle: cfg.Paste.Default,
		},
		filters: cfg.Filters.Allowed,
		styles:  cfg.Paste.Allowed,
	}
}

// Get returns the current settings for a chat, materializing the defaults on
// first access. It never fails.
func (s *Store) Get(chatID int64) models.ChatSettings {
	if current, ok := s.byChat.Load(chatID); ok {
		return current.(models.ChatSettings)
	}
	actual, _ := s.byChat.LoadOrStore(chatID, s.defaults)
	return actual.(models.ChatSettings)
}

// AllowedFilters returns the immutable filter allow-list.
func (s *Store) AllowedFilters() []string {
	return s.filters
}

// AllowedPasteStyles returns the immutable paste-style allow-list.
func (s *Store) AllowedPasteStyles() []string {
	return s.styles
}

// UpdateFilter atomically sets the chat's filter, leaving its paste style
// untouched, and returns the resulting settings.
func (s *Store) UpdateFilter(chatID int64, filter string) (models.ChatSettings, error) {
	if !member(s.filters, filter) {
		return models.ChatSettings{}, &InvalidValueError{Setting: "filter", Value: filter, Allowed: s.filters}
	}
	return s.update(chatID, func(current models.ChatSettings) models.ChatSettings {
		current.Filter = filter
		return current
	}), nil
}

// UpdatePasteStyle atomically sets the chat's paste style, leaving its filter
// untouched, and returns the resulting settings.
func (s *Store) UpdatePasteStyle(chatID int64, style string) (models.ChatSettings, error) {
	if !member(s.styles, style) {
		return models.ChatSettings{}, &InvalidValueError{Setting: "paste style", Value: style, Allowed: s.styles}
	}
	return s.update(chatID, func(current models.ChatSettings) models.ChatSettings {
		current.PasteStyle = style
		return current
	}), nil
}

// update performs a compare-and-swap loop against the chat's entry. A lost
// race rereads the current value and retries, so concurrent updates to the
// same chat interleave without dropping either write.
func (s *Store) update(chatID int64, apply func(models.ChatSettings) models.ChatSettings) models.ChatSettings {
	for {
		current, _ := s.byChat.LoadOrStore(chatID, s.defaults)
		old := current.(models.ChatSettings)
		next := apply(old)
		if old == next {
			return next
		}
		if s.byChat.CompareAndSwap(chatID, old, next) {
			return next
		}
	}
}

func member(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
