package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/deface-tgbot-go/internal/handlers"
	"github.com/deface-tgbot-go/internal/i18n"
	"github.com/deface-tgbot-go/internal/middleware"
	"github.com/deface-tgbot-go/internal/models"
	"github.com/deface-tgbot-go/internal/services/cache"
	"github.com/deface-tgbot-go/internal/services/deface"
	"github.com/deface-tgbot-go/internal/services/files"
	"github.com/deface-tgbot-go/internal/settings"
	"github.com/deface-tgbot-go/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting deface bot...")
	log.WithFields(logrus.Fields{
		"token_length":   len(cfg.Bot.Token),
		"endpoint":       cfg.Deface.Endpoint,
		"default_filter": cfg.Filters.Default,
		"default_paste":  cfg.Paste.Default,
	}).Info("Configuration loaded")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}

	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	store := settings.NewStore(cfg)
	downloader := files.NewClient(cfg.Bot.Token, cfg.Bot.APIEndpoint, log)
	defaceClient := deface.NewClient(&cfg.Deface, log)
	cacheService := cache.NewCache(&cfg.Cache, log)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	metrics := middleware.NewMetrics()

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Initialize handlers
	sender := handlers.NewTelegramSender(bot, &cfg.Send, log)
	commandHandler := handlers.NewCommandHandler(cfg, store, sender, localizer, metrics, log)
	photoHandler := handlers.NewPhotoHandler(cfg, store, downloader, defaceClient, cacheService, sender, localizer, metrics, log)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.UpdateTimeout
	updates := bot.GetUpdatesChan(u)
	log.Info("Using long polling")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Main bot loop: each update gets its own goroutine so a slow deface
	// round-trip for one chat never stalls the others.
	go func() {
		for update := range updates {
			if update.Message == nil {
				continue
			}
			message := update.Message

			switch {
			case message.Text != "":
				metrics.RecordUpdateReceived("text")
				go func() {
					if err := commandHandler.HandleText(ctx, message.Chat.ID, message.Text); err != nil {
						log.WithError(err).WithField("chat_id", message.Chat.ID).Error("Failed to handle command")
					}
				}()
			case len(message.Photo) > 0:
				metrics.RecordUpdateReceived("photo")
				variants := photoVariants(message.Photo)
				go func() {
					if err := photoHandler.HandlePhoto(ctx, message.Chat.ID, variants); err != nil {
						log.WithError(err).WithField("chat_id", message.Chat.ID).Error("Failed to handle photo")
					}
				}()
			default:
				metrics.RecordUpdateReceived("other")
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("Shutdown signal received")

	bot.StopReceivingUpdates()
	cancel()

	// Give in-flight handlers time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}

func photoVariants(photo []tgbotapi.PhotoSize) []models.PhotoVariant {
	variants := make([]models.PhotoVariant, 0, len(photo))
	for _, p := range photo {
		variants = append(variants, models.PhotoVariant{
			FileID:       p.FileID,
			FileUniqueID: p.FileUniqueID,
			Width:        p.Width,
			Height:       p.Height,
			FileSize:     p.FileSize,
		})
	}
	return variants
}
